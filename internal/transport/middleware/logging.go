package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/helpdesk-access/internal"
)

// maxLoggedBody caps how much of a write request's body is logged.
const maxLoggedBody = 4 << 10

// redactedKeys match header names and JSON keys by substring. Callers reach
// this service through a gateway, so only gateway credentials can show up.
var redactedKeys = []string{
	"authorization",
	"cookie",
	"api_key",
	"secret",
	"token",
}

// LoggingMiddleware logs each request with the caller's department and team,
// the context its access decisions are evaluated in. It runs after
// SubjectContext.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With(requestAttrs(r)...)

			reqLogger.InfoContext(r.Context(), "incoming request",
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"headers", redactHeaders(r.Header),
				"body", readBody(r),
			)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			reqLogger.Log(r.Context(), level, "response",
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", sw.size,
			)
		})
	}
}

func requestAttrs(r *http.Request) []any {
	attrs := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	}
	if caller, ok := internal.CallerFromContext(r.Context()); ok {
		attrs = append(attrs,
			"subject_id", caller.SubjectID,
			"department", caller.Context.CurrentDepartment,
			"team", caller.Context.CurrentTeam,
		)
	}
	return attrs
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// readBody returns the redacted body of a write request and leaves r.Body
// readable for the handler. Reads carry no body worth logging.
func readBody(r *http.Request) string {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}
	raw, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return ""
	}
	if len(raw) > maxLoggedBody {
		return "[TRUNCATED]"
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		if isRedacted(string(raw)) {
			return "[FILTERED]"
		}
		return string(raw)
	}
	out, err := json.Marshal(redactJSON(doc))
	if err != nil {
		return "[FILTERED]"
	}
	return string(out)
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isRedacted(name) {
			out[name] = "[FILTERED]"
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if isRedacted(k) {
				out[k] = "[FILTERED]"
				continue
			}
			out[k] = redactJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = redactJSON(item)
		}
		return out
	default:
		return v
	}
}

func isRedacted(s string) bool {
	s = strings.ToLower(s)
	for _, key := range redactedKeys {
		if strings.Contains(s, key) {
			return true
		}
	}
	return false
}
