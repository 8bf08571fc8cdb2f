package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/spf13/cobra"
)

var (
	checkSubject    string
	checkPermission string
	checkDepartment string
	checkTeam       string
	checkAt         string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a subject's access from the command line",
	Long: `Evaluate a subject's effective permissions in a department and team at an instant.
With --permission it answers a single yes/no question; without it, it prints
every permission a rule touched and the rules behind it.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkSubject, "subject", "s", "", "subject to evaluate")
	checkCmd.Flags().StringVarP(&checkPermission, "permission", "p", "", "single permission to check")
	checkCmd.Flags().StringVar(&checkDepartment, "department", "", "current department")
	checkCmd.Flags().StringVar(&checkTeam, "team", "", "current team")
	checkCmd.Flags().StringVar(&checkAt, "at", "", "RFC3339 instant to evaluate at (defaults to now)")
	_ = checkCmd.MarkFlagRequired("subject")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	now := time.Now()
	if checkAt != "" {
		t, err := time.Parse(time.RFC3339, checkAt)
		if err != nil {
			return fmt.Errorf("--at must be an RFC3339 timestamp: %w", err)
		}
		now = t
	}

	deps, err := initializeDependencies()
	if err != nil {
		log.Fatalf("failed to initialize dependencies: %v", err)
	}
	defer deps.Close()

	ctx := context.Background()
	if deps.Config.Access.SeedDemo && deps.Config.Access.Store != storePostgres {
		if err := seedDemo(ctx, deps.Service); err != nil {
			return fmt.Errorf("seed demo subjects: %w", err)
		}
	}

	evalCtx := access.EvaluationContext{CurrentDepartment: checkDepartment, CurrentTeam: checkTeam}
	out := cmd.OutOrStdout()

	if checkPermission != "" {
		ok, err := deps.Service.Can(ctx, checkSubject, access.Permission(checkPermission), evalCtx, now)
		if err != nil {
			return err
		}
		verdict := "denied"
		if ok {
			verdict = "allowed"
		}
		fmt.Fprintf(out, "%s %s %s at %s\n", checkSubject, verdict, checkPermission, now.Format(time.RFC3339))
		return nil
	}

	effective, err := deps.Service.Effective(ctx, checkSubject, evalCtx, now)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERMISSION\tGRANTED\tGRANTED BY\tDENIED BY")
	for _, t := range effective.Trace {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", t.Permission, t.Granted, dashIfEmpty(t.GrantedBy), dashIfEmpty(t.DeniedBy))
	}
	return w.Flush()
}

func dashIfEmpty(sources []string) string {
	if len(sources) == 0 {
		return "-"
	}
	return strings.Join(sources, ", ")
}
