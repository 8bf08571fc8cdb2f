package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/helpdesk-access/internal"
)

// RequireSubject rejects requests that carry no caller identity.
func RequireSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := internal.CallerFromContext(r.Context()); !ok {
			slog.WarnContext(r.Context(), "request rejected: no subject", "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
