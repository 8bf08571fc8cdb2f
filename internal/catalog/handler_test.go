package catalog_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/helpdesk-access/internal/catalog"
	"github.com/frahmantamala/helpdesk-access/internal/transport"
)

var _ = Describe("Catalog Handler", func() {
	var handler *catalog.Handler

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = catalog.NewHandler(transport.NewBaseHandler(slogger), catalog.Default())
	})

	It("should list roles with their scope kind and permissions", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/roles", nil)
		w := httptest.NewRecorder()

		handler.GetRoles(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response catalog.RolesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Roles).To(HaveLen(6))
		Expect(response.Roles[3]).To(Equal(catalog.RoleResponse{
			Key:         "agent",
			Name:        "Agent",
			ScopeKind:   "team",
			Permissions: []string{"tickets.read", "tickets.update"},
		}))
	})

	It("should list permissions grouped by category", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/permissions", nil)
		w := httptest.NewRecorder()

		handler.GetPermissions(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))

		var response catalog.PermissionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Categories).To(HaveLen(5))
		for _, cat := range response.Categories {
			Expect(cat.Permissions).NotTo(BeEmpty())
			for _, p := range cat.Permissions {
				Expect(p.Category).To(Equal(cat.Name))
			}
		}
	})
})
