package subject_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/catalog"
	"github.com/frahmantamala/helpdesk-access/internal/subject"
	"github.com/frahmantamala/helpdesk-access/internal/transport"
)

type failingAssignments struct{}

func (failingAssignments) Replace(context.Context, string, []access.RoleAssignment) error {
	return errors.New("connection reset")
}

func (failingAssignments) ListFor(context.Context, string) ([]access.RoleAssignment, error) {
	return nil, errors.New("connection reset")
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Details struct {
			Errors []internal.ValidationError `json:"errors"`
		} `json:"details"`
	} `json:"error"`
}

var _ = Describe("Handler", func() {
	var (
		router http.Handler
		stores subject.Stores
		now    time.Time
	)

	newRouter := func(stores subject.Stores) http.Handler {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service := subject.NewService(catalog.Default(), stores, nil, nil, logger)
		h := subject.NewHandler(transport.NewBaseHandler(logger), service, func() time.Time { return now })
		r := chi.NewRouter()
		h.Routes(r, nil, nil)
		return r
	}

	send := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var payload io.Reader = http.NoBody
		if body != nil {
			if raw, ok := body.(string); ok {
				payload = bytes.NewBufferString(raw)
			} else {
				b, err := json.Marshal(body)
				Expect(err).NotTo(HaveOccurred())
				payload = bytes.NewReader(b)
			}
		}
		req := httptest.NewRequest(method, path, payload)
		req = req.WithContext(internal.ContextWithCaller(req.Context(), internal.Caller{SubjectID: "admin-1"}))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		now = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
		stores = subject.MemoryStores()
		router = newRouter(stores)
	})

	Describe("assignments", func() {
		It("replaces and lists assignments", func() {
			w := send(http.MethodPut, "/subjects/sup-1/assignments", map[string]interface{}{
				"assignments": []map[string]interface{}{
					{"role_key": "supervisor", "scope": map[string]string{"kind": "department", "ref": "Billing"}},
				},
			})
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp subject.AssignmentsResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.SubjectID).To(Equal("sup-1"))
			Expect(resp.Assignments).To(Equal([]access.RoleAssignment{
				{RoleKey: "supervisor", Scope: access.DepartmentScope("Billing")},
			}))
		})

		It("rejects unknown body fields", func() {
			w := send(http.MethodPut, "/subjects/sup-1/assignments", `{"assignments":[],"roles":[]}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown scope kind before touching the store", func() {
			w := send(http.MethodPut, "/subjects/sup-1/assignments", map[string]interface{}{
				"assignments": []map[string]interface{}{
					{"role_key": "supervisor", "scope": map[string]string{"kind": "region", "ref": "EU"}},
				},
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			var body errorBody
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error.Details.Errors).NotTo(BeEmpty())
			Expect(body.Error.Details.Errors[0].Code).To(Equal("ONEOF"))
		})

		It("hides store failures behind a 500", func() {
			stores.Assignments = failingAssignments{}
			router = newRouter(stores)

			w := send(http.MethodGet, "/subjects/sup-1/assignments", nil)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("connection reset"))
		})
	})

	Describe("overrides", func() {
		It("requires a scope unless the decision is inherit", func() {
			w := send(http.MethodPut, "/subjects/agent-1/overrides", map[string]string{
				"permission": "tickets.delete",
				"decision":   "allow",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			w = send(http.MethodPut, "/subjects/agent-1/overrides", map[string]string{
				"permission": "tickets.delete",
				"decision":   "inherit",
			})
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("clears overrides with 204", func() {
			Expect(send(http.MethodPut, "/subjects/agent-1/overrides", map[string]interface{}{
				"permission": "kb.write",
				"decision":   "allow",
				"scope":      map[string]string{"kind": "org"},
			}).Code).To(Equal(http.StatusOK))

			Expect(send(http.MethodDelete, "/subjects/agent-1/overrides", nil).Code).To(Equal(http.StatusNoContent))

			var resp subject.OverridesResponse
			Expect(json.Unmarshal(send(http.MethodGet, "/subjects/agent-1/overrides", nil).Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Overrides).To(BeEmpty())
		})
	})

	Describe("grants", func() {
		It("requires allow on a permission_override grant", func() {
			w := send(http.MethodPost, "/subjects/agent-1/grants", map[string]interface{}{
				"kind":       "permission_override",
				"permission": "reports.export",
				"scope":      map[string]string{"kind": "org"},
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("reports whether each grant is active at the requested instant", func() {
			end := now.Add(2 * time.Hour)
			w := send(http.MethodPost, "/subjects/agent-1/grants", map[string]interface{}{
				"kind":       "permission_override",
				"permission": "reports.export",
				"allow":      true,
				"scope":      map[string]string{"kind": "org"},
				"end_at":     end,
			})
			Expect(w.Code).To(Equal(http.StatusCreated))

			var listNow subject.GrantsResponse
			Expect(json.Unmarshal(send(http.MethodGet, "/subjects/agent-1/grants", nil).Body.Bytes(), &listNow)).To(Succeed())
			Expect(listNow.Grants).To(HaveLen(1))
			Expect(listNow.Grants[0].Active).To(BeTrue())

			var listLater subject.GrantsResponse
			Expect(json.Unmarshal(send(http.MethodGet, "/subjects/agent-1/grants?at=2024-05-10T11:00:00Z", nil).Body.Bytes(), &listLater)).To(Succeed())
			Expect(listLater.Grants[0].Active).To(BeFalse())
		})

		It("answers 404 for an unknown grant", func() {
			w := send(http.MethodDelete, "/subjects/agent-1/grants/nope", nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("decisions", func() {
		BeforeEach(func() {
			Expect(send(http.MethodPut, "/subjects/agent-1/assignments", map[string]interface{}{
				"assignments": []map[string]interface{}{
					{"role_key": "agent", "scope": map[string]string{"kind": "team", "ref": "Tier 2"}},
				},
			}).Code).To(Equal(http.StatusOK))
		})

		It("answers a single permission check", func() {
			w := send(http.MethodGet, "/subjects/agent-1/can/tickets.update?team=Tier+2", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp subject.DecisionResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Allowed).To(BeTrue())
			Expect(resp.Context.Team).To(Equal("Tier 2"))
			Expect(resp.At).To(BeTemporally("==", now))
		})

		It("denies permissions outside the catalog", func() {
			var resp subject.DecisionResponse
			Expect(json.Unmarshal(send(http.MethodGet, "/subjects/agent-1/can/tickets.teleport", nil).Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Allowed).To(BeFalse())
		})

		It("previews effective permissions with their sources", func() {
			w := send(http.MethodGet, "/subjects/agent-1/effective?team=Tier+2&at=2024-05-11T00:00:00Z", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp subject.EffectiveResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Permissions).To(ConsistOf("tickets.read", "tickets.update"))
			Expect(resp.At).To(BeTemporally("==", time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)))
		})

		It("rejects a malformed instant", func() {
			w := send(http.MethodGet, "/subjects/agent-1/effective?at=tomorrow", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			var body errorBody
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error.Details.Errors[0].Field).To(Equal("at"))
		})
	})
})
