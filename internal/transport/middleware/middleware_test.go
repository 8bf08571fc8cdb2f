package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	chiMiddleware "github.com/go-chi/chi/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/transport/middleware"
)

var _ = Describe("Middleware", func() {
	Describe("SubjectContext", func() {
		It("puts the caller and its context on the request", func() {
			var got internal.Caller
			var found bool
			h := middleware.SubjectContext(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got, found = internal.CallerFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.HeaderSubjectID, " agent-1 ")
			req.Header.Set(middleware.HeaderDepartment, "Support")
			req.Header.Set(middleware.HeaderTeam, "Tier 1")
			h.ServeHTTP(httptest.NewRecorder(), req)

			Expect(found).To(BeTrue())
			Expect(got.SubjectID).To(Equal("agent-1"))
			Expect(got.Context.CurrentDepartment).To(Equal("Support"))
			Expect(got.Context.CurrentTeam).To(Equal("Tier 1"))
		})

		It("leaves anonymous requests without a caller", func() {
			w := httptest.NewRecorder()
			h := middleware.SubjectContext(middleware.RequireSubject(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("RequestID", func() {
		It("echoes an incoming trace id", func() {
			var seen string
			h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = chiMiddleware.GetReqID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.HeaderTraceID, "trace-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Expect(seen).To(Equal("trace-123"))
			Expect(w.Header().Get(middleware.HeaderTraceID)).To(Equal("trace-123"))
		})

		It("mints one when missing", func() {
			w := httptest.NewRecorder()
			middleware.RequestID(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Header().Get(middleware.HeaderTraceID)).To(HaveLen(36))
		})
	})

	Describe("RecoveryMiddleware", func() {
		It("turns a panic into a 500 JSON error", func() {
			h := middleware.RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(
				http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(ContainSubstring(`"code":"INTERNAL_ERROR"`))
		})
	})

	Describe("LoggingMiddleware", func() {
		It("filters secrets but keeps role keys", func() {
			var buf bytes.Buffer
			h := middleware.LoggingMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)))(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

			body := `{"role_key":"agent","api_key":"s3cret"}`
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body)))

			Expect(buf.String()).To(ContainSubstring("agent"))
			Expect(buf.String()).NotTo(ContainSubstring("s3cret"))
		})

		It("logs the caller's department and team and redacts gateway credentials", func() {
			var buf bytes.Buffer
			h := middleware.SubjectContext(middleware.LoggingMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)))(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) })))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subjects/agent-1/can?permission=kb.publish", nil)
			req.Header.Set(middleware.HeaderSubjectID, "agent-1")
			req.Header.Set(middleware.HeaderDepartment, "Support")
			req.Header.Set(middleware.HeaderTeam, "Tier 2")
			req.Header.Set("Authorization", "Bearer gw-credential")
			h.ServeHTTP(httptest.NewRecorder(), req)

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			Expect(lines).To(HaveLen(2))
			for _, line := range lines {
				Expect(line).To(ContainSubstring(`"subject_id":"agent-1"`))
				Expect(line).To(ContainSubstring(`"department":"Support"`))
				Expect(line).To(ContainSubstring(`"team":"Tier 2"`))
			}
			Expect(lines[1]).To(ContainSubstring(`"level":"WARN"`))
			Expect(lines[1]).To(ContainSubstring(`"status_code":403`))
			Expect(buf.String()).NotTo(ContainSubstring("gw-credential"))
		})

		It("still hands the request body to the handler", func() {
			var got string
			h := middleware.LoggingMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(
				http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
					b, _ := io.ReadAll(r.Body)
					got = string(b)
				}))

			body := `{"assignments":[{"role_key":"agent","scope":{"kind":"team","ref":"Tier 1"}}]}`
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body)))
			Expect(got).To(Equal(body))
		})
	})

	Describe("RateLimit", func() {
		It("answers 429 once a subject exceeds the limit", func() {
			h := middleware.SubjectContext(middleware.RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			codes := []int{}
			for i := 0; i < 3; i++ {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set(middleware.HeaderSubjectID, "agent-1")
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				codes = append(codes, w.Code)
			}
			Expect(codes).To(Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}))
		})

		It("is a no-op when disabled", func() {
			h := middleware.RateLimit(0)(http.NotFoundHandler())
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("SecureHeaders", func() {
		It("sets hardening headers", func() {
			w := httptest.NewRecorder()
			middleware.SecureHeaders(false)(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Header().Get("X-Frame-Options")).To(Equal("DENY"))
			Expect(w.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
		})
	})
})
