package middleware

import (
	"net/http"
	"strings"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/pkg/logger"
)

const (
	HeaderSubjectID  = "X-Subject-ID"
	HeaderDepartment = "X-Department"
	HeaderTeam       = "X-Team"
)

// SubjectContext reads the caller identity and its current department and
// team from request headers. Authentication happens upstream; this service
// trusts the gateway that sets them.
func SubjectContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subjectID := strings.TrimSpace(r.Header.Get(HeaderSubjectID))
		if subjectID == "" {
			next.ServeHTTP(w, r)
			return
		}

		caller := internal.Caller{
			SubjectID: subjectID,
			Context: access.EvaluationContext{
				CurrentDepartment: strings.TrimSpace(r.Header.Get(HeaderDepartment)),
				CurrentTeam:       strings.TrimSpace(r.Header.Get(HeaderTeam)),
			},
		}

		ctx := internal.ContextWithCaller(r.Context(), caller)
		ctx = logger.WithCaller(ctx, subjectID, caller.Context.CurrentDepartment, caller.Context.CurrentTeam)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
