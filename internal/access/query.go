package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// QueryService is the read side used by enforcement middleware and the
// admin preview. It snapshots a subject's records from the stores and runs
// the evaluator. Errors only come from the stores; a decision never fails.
type QueryService struct {
	evaluator   *Evaluator
	assignments AssignmentStore
	overrides   OverrideStore
	grants      GrantStore
	logger      *slog.Logger
	loads       singleflight.Group
}

func NewQueryService(catalog *Catalog, assignments AssignmentStore, overrides OverrideStore, grants GrantStore, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		evaluator:   NewEvaluator(catalog),
		assignments: assignments,
		overrides:   overrides,
		grants:      grants,
		logger:      logger,
	}
}

// Can reports whether permission is granted to subjectID at now.
func (s *QueryService) Can(ctx context.Context, subjectID string, permission Permission, evalCtx EvaluationContext, now time.Time) (bool, error) {
	in, err := s.input(ctx, subjectID, evalCtx, now)
	if err != nil {
		return false, err
	}
	return s.evaluator.HasPermission(permission, in), nil
}

// ListGranted returns the subject's effective permissions in lexical order.
func (s *QueryService) ListGranted(ctx context.Context, subjectID string, evalCtx EvaluationContext, now time.Time) ([]Permission, error) {
	in, err := s.input(ctx, subjectID, evalCtx, now)
	if err != nil {
		return nil, err
	}
	return s.evaluator.EffectivePermissions(in).Sorted(), nil
}

func (s *QueryService) Explain(ctx context.Context, subjectID string, evalCtx EvaluationContext, now time.Time) ([]PermissionTrace, error) {
	in, err := s.input(ctx, subjectID, evalCtx, now)
	if err != nil {
		return nil, err
	}
	return s.evaluator.Explain(in), nil
}

type subjectRecords struct {
	assignments []RoleAssignment
	overrides   []Override
	grants      []Grant
}

func (s *QueryService) input(ctx context.Context, subjectID string, evalCtx EvaluationContext, now time.Time) (Input, error) {
	recs, err := s.load(ctx, subjectID)
	if err != nil {
		return Input{}, err
	}
	return Input{
		Assignments: recs.assignments,
		Overrides:   recs.overrides,
		Grants:      recs.grants,
		Context:     evalCtx,
		Now:         now,
	}, nil
}

// Forget drops any in-flight load for subjectID, so the next query reads
// the stores again. Writers call it once a write has been stored.
func (s *QueryService) Forget(subjectID string) {
	s.loads.Forget(subjectID)
}

// load reads the three record sets. Concurrent loads for the same subject
// share one round of store reads. The shared read is detached from any one
// caller's cancellation; each caller still stops waiting when its own ctx
// is done.
func (s *QueryService) load(ctx context.Context, subjectID string) (subjectRecords, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(subjectID, func() (interface{}, error) {
		var recs subjectRecords
		var err error

		if recs.assignments, err = s.assignments.ListFor(loadCtx, subjectID); err != nil {
			return nil, fmt.Errorf("load assignments: %w", err)
		}
		if recs.overrides, err = s.overrides.ListFor(loadCtx, subjectID); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
		if recs.grants, err = s.grants.ListFor(loadCtx, subjectID); err != nil {
			return nil, fmt.Errorf("load grants: %w", err)
		}
		return recs, nil
	})

	select {
	case <-ctx.Done():
		return subjectRecords{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.ErrorContext(ctx, "failed to load subject records", "subject_id", subjectID, "error", res.Err)
			return subjectRecords{}, res.Err
		}
		return res.Val.(subjectRecords), nil
	}
}
