package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/catalog"
	"github.com/frahmantamala/helpdesk-access/internal/subject"
	"github.com/spf13/cobra"
)

const seedActor = "seeder"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the access store with demo subjects",
	Long:  `Seed the configured access store with demo staff and customers for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to initialize dependencies: %v", err)
		}
		defer deps.Close()

		ctx := context.Background()
		if clearData {
			if err := clearDemo(ctx, deps.Service); err != nil {
				log.Fatalf("failed to clear demo subjects: %v", err)
			}
			fmt.Println("Cleared demo subjects")
			return
		}

		if err := seedDemo(ctx, deps.Service); err != nil {
			log.Fatalf("failed to seed demo subjects: %v", err)
		}
		for _, s := range demoSubjects(time.Now()) {
			fmt.Printf("Seeded subject %s (%s)\n", s.id, s.note)
		}
	},
}

type demoSubject struct {
	id          string
	note        string
	assignments []access.RoleAssignment
	overrides   []access.Override
	grants      []access.Grant
}

func demoSubjects(now time.Time) []demoSubject {
	weekEnd := now.Add(7 * 24 * time.Hour)
	dayEnd := now.Add(24 * time.Hour)

	return []demoSubject{
		{
			id:          "admin-1",
			note:        "organization admin",
			assignments: []access.RoleAssignment{{RoleKey: "admin", Scope: access.OrgScope()}},
		},
		{
			id:          "supervisor-1",
			note:        "supervisor of Support",
			assignments: []access.RoleAssignment{{RoleKey: "supervisor", Scope: access.DepartmentScope("Support")}},
			overrides: []access.Override{
				{Permission: catalog.ReportsExport, Decision: access.DecisionAllow, Scope: access.DepartmentScope("Support")},
			},
		},
		{
			id:          "agent-1",
			note:        "Tier 1 agent who may edit the knowledge base there",
			assignments: []access.RoleAssignment{{RoleKey: "agent", Scope: access.TeamScope("Tier 1")}},
			overrides: []access.Override{
				{Permission: catalog.KBWrite, Decision: access.DecisionAllow, Scope: access.TeamScope("Tier 1")},
			},
		},
		{
			id:          "agent-2",
			note:        "Tier 2 agent acting as Support supervisor this week",
			assignments: []access.RoleAssignment{{RoleKey: "agent", Scope: access.TeamScope("Tier 2")}},
			grants: []access.Grant{{
				Kind:    access.GrantActingRole,
				RoleKey: "supervisor",
				Scope:   access.DepartmentScope("Support"),
				StartAt: &now,
				EndAt:   &weekEnd,
				Reason:  "covering supervisor-1's leave",
			}},
		},
		{
			id:          "viewer-1",
			note:        "read-only auditor with a one day export grant and no user directory",
			assignments: []access.RoleAssignment{{RoleKey: "viewer", Scope: access.OrgScope()}},
			overrides: []access.Override{
				{Permission: catalog.UsersRead, Decision: access.DecisionDeny, Scope: access.OrgScope()},
			},
			grants: []access.Grant{{
				Kind:       access.GrantPermissionOverride,
				Permission: catalog.ReportsExport,
				Allow:      true,
				Scope:      access.OrgScope(),
				EndAt:      &dayEnd,
				Reason:     "quarterly audit",
			}},
		},
		{
			id:          "customer-1",
			note:        "customer",
			assignments: []access.RoleAssignment{{RoleKey: "customer", Scope: access.NoScope()}},
		},
	}
}

// seedDemo resets every demo subject to its demo records, so running it
// twice leaves the same state.
func seedDemo(ctx context.Context, svc *subject.Service) error {
	if err := clearDemo(ctx, svc); err != nil {
		return err
	}
	for _, s := range demoSubjects(time.Now().UTC()) {
		if err := svc.ReplaceAssignments(ctx, seedActor, s.id, s.assignments); err != nil {
			return fmt.Errorf("assignments for %s: %w", s.id, err)
		}
		for _, o := range s.overrides {
			if err := svc.UpsertOverride(ctx, seedActor, s.id, o); err != nil {
				return fmt.Errorf("override %s for %s: %w", o.Permission, s.id, err)
			}
		}
		for _, g := range s.grants {
			if _, err := svc.AddGrant(ctx, seedActor, s.id, g); err != nil {
				return fmt.Errorf("grant for %s: %w", s.id, err)
			}
		}
	}
	return nil
}

func clearDemo(ctx context.Context, svc *subject.Service) error {
	for _, s := range demoSubjects(time.Now()) {
		if err := svc.ReplaceAssignments(ctx, seedActor, s.id, nil); err != nil {
			return fmt.Errorf("assignments for %s: %w", s.id, err)
		}
		if err := svc.ClearOverrides(ctx, seedActor, s.id); err != nil {
			return fmt.Errorf("overrides for %s: %w", s.id, err)
		}
		grants, err := svc.Grants(ctx, s.id)
		if err != nil {
			return fmt.Errorf("grants for %s: %w", s.id, err)
		}
		for _, g := range grants {
			if err := svc.RevokeGrant(ctx, seedActor, s.id, g.ID); err != nil {
				return fmt.Errorf("grant %s for %s: %w", g.ID, s.id, err)
			}
		}
	}
	return nil
}
