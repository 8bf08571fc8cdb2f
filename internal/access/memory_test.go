package access_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/helpdesk-access/internal/access"
)

var _ = Describe("Memory stores", func() {
	ctx := context.Background()

	Describe("MemoryOverrideStore", func() {
		var store *access.MemoryOverrideStore

		BeforeEach(func() {
			store = access.NewMemoryOverrideStore()
		})

		It("keeps one override per permission with the last write winning", func() {
			Expect(store.Upsert(ctx, "u1", access.Override{Permission: "kb.publish", Decision: access.DecisionAllow, Scope: access.OrgScope()})).To(Succeed())
			Expect(store.Upsert(ctx, "u1", access.Override{Permission: "kb.publish", Decision: access.DecisionDeny, Scope: access.TeamScope("Tier 1")})).To(Succeed())

			overrides, err := store.ListFor(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(overrides).To(Equal([]access.Override{
				{Permission: "kb.publish", Decision: access.DecisionDeny, Scope: access.TeamScope("Tier 1")},
			}))
		})

		It("keeps one override per permission under concurrent writers", func() {
			decisions := []access.Decision{access.DecisionAllow, access.DecisionDeny}
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					o := access.Override{
						Permission: "kb.publish",
						Decision:   decisions[i%2],
						Scope:      access.TeamScope(fmt.Sprintf("Tier %d", i)),
					}
					Expect(store.Upsert(ctx, "u1", o)).To(Succeed())
					Expect(store.Upsert(ctx, "u1", access.Override{Permission: "tickets.read", Decision: decisions[i%2], Scope: access.OrgScope()})).To(Succeed())
				}(i)
			}
			wg.Wait()

			overrides, err := store.ListFor(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(overrides).To(HaveLen(2))
			Expect(overrides[0].Permission).To(Equal(access.Permission("kb.publish")))
			Expect(overrides[1].Permission).To(Equal(access.Permission("tickets.read")))
		})

		It("removes the override when upserting inherit", func() {
			Expect(store.Upsert(ctx, "u1", access.Override{Permission: "kb.publish", Decision: access.DecisionAllow, Scope: access.OrgScope()})).To(Succeed())
			Expect(store.Upsert(ctx, "u1", access.Override{Permission: "kb.publish", Decision: access.DecisionInherit})).To(Succeed())

			overrides, err := store.ListFor(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(overrides).To(BeEmpty())
		})

		It("clears only the given subject", func() {
			Expect(store.Upsert(ctx, "u1", access.Override{Permission: "kb.read", Decision: access.DecisionAllow, Scope: access.OrgScope()})).To(Succeed())
			Expect(store.Upsert(ctx, "u2", access.Override{Permission: "kb.read", Decision: access.DecisionAllow, Scope: access.OrgScope()})).To(Succeed())

			Expect(store.Clear(ctx, "u1")).To(Succeed())

			Expect(store.ListFor(ctx, "u1")).To(BeEmpty())
			Expect(store.ListFor(ctx, "u2")).To(HaveLen(1))
		})

		It("lists overrides sorted by permission", func() {
			for _, p := range []access.Permission{"tickets.read", "kb.read", "reports.view"} {
				Expect(store.Upsert(ctx, "u1", access.Override{Permission: p, Decision: access.DecisionAllow, Scope: access.OrgScope()})).To(Succeed())
			}
			overrides, err := store.ListFor(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(overrides[0].Permission).To(Equal(access.Permission("kb.read")))
			Expect(overrides[2].Permission).To(Equal(access.Permission("tickets.read")))
		})
	})

	Describe("MemoryGrantStore", func() {
		var (
			store *access.MemoryGrantStore
			now   time.Time
		)

		BeforeEach(func() {
			store = access.NewMemoryGrantStore()
			now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		})

		It("assigns ids and keeps several grants for the same permission", func() {
			first, err := store.Add(ctx, "u1", access.Grant{Kind: access.GrantPermissionOverride, Permission: "kb.read", Allow: true, Scope: access.OrgScope()})
			Expect(err).NotTo(HaveOccurred())
			second, err := store.Add(ctx, "u1", access.Grant{Kind: access.GrantPermissionOverride, Permission: "kb.read", Allow: false, Scope: access.OrgScope()})
			Expect(err).NotTo(HaveOccurred())

			Expect(first.ID).NotTo(BeEmpty())
			Expect(first.ID).NotTo(Equal(second.ID))
			Expect(store.ListFor(ctx, "u1")).To(HaveLen(2))
		})

		It("filters active grants by window only", func() {
			_, _ = store.Add(ctx, "u1", access.Grant{ID: "past", Kind: access.GrantActingRole, RoleKey: "viewer", Scope: access.OrgScope(), EndAt: timePtr(now.Add(-time.Hour))})
			_, _ = store.Add(ctx, "u1", access.Grant{ID: "future", Kind: access.GrantActingRole, RoleKey: "viewer", Scope: access.OrgScope(), StartAt: timePtr(now.Add(time.Hour))})
			_, _ = store.Add(ctx, "u1", access.Grant{ID: "elsewhere", Kind: access.GrantActingRole, RoleKey: "viewer", Scope: access.TeamScope("Tier 9")})

			active, err := store.ActiveGrantsFor(ctx, "u1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(1))
			Expect(active[0].ID).To(Equal("elsewhere"))
		})

		It("revokes a grant by id", func() {
			g, _ := store.Add(ctx, "u1", access.Grant{Kind: access.GrantActingRole, RoleKey: "viewer", Scope: access.OrgScope()})
			Expect(store.Revoke(ctx, "u1", g.ID)).To(Succeed())
			Expect(store.ListFor(ctx, "u1")).To(BeEmpty())
			Expect(store.Revoke(ctx, "u1", g.ID)).To(MatchError(access.ErrGrantNotFound))
		})
	})

	Describe("MemoryAssignmentStore", func() {
		It("replaces the whole assignment set", func() {
			store := access.NewMemoryAssignmentStore()
			Expect(store.Replace(ctx, "u1", []access.RoleAssignment{{RoleKey: "agent", Scope: access.TeamScope("Tier 1")}})).To(Succeed())
			Expect(store.Replace(ctx, "u1", []access.RoleAssignment{{RoleKey: "viewer", Scope: access.OrgScope()}})).To(Succeed())

			assignments, err := store.ListFor(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(assignments).To(Equal([]access.RoleAssignment{{RoleKey: "viewer", Scope: access.OrgScope()}}))
		})
	})
})
