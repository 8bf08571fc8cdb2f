package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/auth"
	"github.com/frahmantamala/helpdesk-access/internal/catalog"
)

type stubQuerier struct {
	granted map[access.Permission]bool
	err     error
	calls   []access.Permission
}

func (s *stubQuerier) Can(_ context.Context, _ string, p access.Permission, _ access.EvaluationContext, _ time.Time) (bool, error) {
	s.calls = append(s.calls, p)
	if s.err != nil {
		return false, s.err
	}
	return s.granted[p], nil
}

var _ = Describe("Enforcer", func() {
	var (
		silent *slog.Logger
		ok     http.Handler
	)

	BeforeEach(func() {
		silent = slog.New(slog.NewTextHandler(io.Discard, nil))
		ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	serve := func(h http.Handler, caller *internal.Caller) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
		if caller != nil {
			req = req.WithContext(internal.ContextWithCaller(req.Context(), *caller))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	Context("with a stubbed querier", func() {
		It("answers 401 without a caller", func() {
			e := auth.NewEnforcer(&stubQuerier{}, silent, nil)
			Expect(serve(e.Require("tickets.read")(ok), nil).Code).To(Equal(http.StatusUnauthorized))
		})

		It("answers 403 when the permission is missing", func() {
			e := auth.NewEnforcer(&stubQuerier{}, silent, nil)
			w := serve(e.Require("tickets.read")(ok), &internal.Caller{SubjectID: "agent-1"})
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(w.Body.String()).To(ContainSubstring("insufficient permissions"))
		})

		It("answers 500 when the store fails", func() {
			e := auth.NewEnforcer(&stubQuerier{err: errors.New("db down")}, silent, nil)
			Expect(serve(e.Require("tickets.read")(ok), &internal.Caller{SubjectID: "agent-1"}).Code).
				To(Equal(http.StatusInternalServerError))
		})

		It("checks exactly the one permission for Require", func() {
			q := &stubQuerier{granted: map[access.Permission]bool{"tickets.read": true}}
			e := auth.NewEnforcer(q, silent, nil)

			w := serve(e.Require("tickets.read")(ok), &internal.Caller{SubjectID: "agent-1"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(q.calls).To(Equal([]access.Permission{"tickets.read"}))
		})

		It("answers HasPermission straight from the querier", func() {
			q := &stubQuerier{granted: map[access.Permission]bool{"kb.read": true}}
			checker := auth.NewPermissionChecker(q)

			Expect(checker.HasPermission(context.Background(), "agent-1", "kb.read", access.EvaluationContext{}, time.Now())).To(BeTrue())
			Expect(checker.HasPermission(context.Background(), "agent-1", "kb.write", access.EvaluationContext{}, time.Now())).To(BeFalse())
		})

		It("lets RequireAny through on the first granted permission", func() {
			q := &stubQuerier{granted: map[access.Permission]bool{"kb.write": true}}
			e := auth.NewEnforcer(q, silent, nil)

			w := serve(e.RequireAny("kb.write", "kb.publish")(ok), &internal.Caller{SubjectID: "author-1"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(q.calls).To(Equal([]access.Permission{"kb.write"}))
		})

		It("requires every permission for RequireAll", func() {
			q := &stubQuerier{granted: map[access.Permission]bool{"kb.write": true}}
			e := auth.NewEnforcer(q, silent, nil)

			Expect(serve(e.RequireAll("kb.write", "kb.publish")(ok), &internal.Caller{SubjectID: "author-1"}).Code).
				To(Equal(http.StatusForbidden))
		})
	})

	Context("with the query service", func() {
		var (
			svc   *access.QueryService
			grant access.GrantStore
			now   time.Time
		)

		BeforeEach(func() {
			ctx := context.Background()
			now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

			assignments := access.NewMemoryAssignmentStore()
			overrides := access.NewMemoryOverrideStore()
			grant = access.NewMemoryGrantStore()
			svc = access.NewQueryService(catalog.Default(), assignments, overrides, grant, silent)

			Expect(assignments.Replace(ctx, "agent-1", []access.RoleAssignment{
				{RoleKey: "agent", Scope: access.TeamScope("Tier 1")},
			})).To(Succeed())
			Expect(overrides.Upsert(ctx, "agent-1", access.Override{
				Permission: catalog.TicketsDelete, Decision: access.DecisionAllow, Scope: access.TeamScope("Tier 1"),
			})).To(Succeed())
		})

		It("uses the caller's team when matching scoped overrides", func() {
			e := auth.NewEnforcer(svc, silent, func() time.Time { return now })
			guarded := e.Require(catalog.TicketsDelete)(ok)

			Expect(serve(guarded, &internal.Caller{
				SubjectID: "agent-1",
				Context:   access.EvaluationContext{CurrentTeam: "Tier 1"},
			}).Code).To(Equal(http.StatusOK))

			Expect(serve(guarded, &internal.Caller{
				SubjectID: "agent-1",
				Context:   access.EvaluationContext{CurrentTeam: "Tier 2"},
			}).Code).To(Equal(http.StatusForbidden))
		})

		It("evaluates grants at the injected clock", func() {
			start := now.Add(time.Hour)
			_, err := grant.Add(context.Background(), "agent-1", access.Grant{
				Kind: access.GrantActingRole, RoleKey: "supervisor", Scope: access.OrgScope(), StartAt: &start,
			})
			Expect(err).NotTo(HaveOccurred())

			caller := &internal.Caller{SubjectID: "agent-1"}

			before := auth.NewEnforcer(svc, silent, func() time.Time { return now })
			Expect(serve(before.Require(catalog.ReportsView)(ok), caller).Code).To(Equal(http.StatusForbidden))

			after := auth.NewEnforcer(svc, silent, func() time.Time { return start })
			Expect(serve(after.Require(catalog.ReportsView)(ok), caller).Code).To(Equal(http.StatusOK))
		})
	})
})
