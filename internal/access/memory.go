package access

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAssignmentStore is an in-process AssignmentStore.
type MemoryAssignmentStore struct {
	mu          sync.RWMutex
	assignments map[string][]RoleAssignment
}

func NewMemoryAssignmentStore() *MemoryAssignmentStore {
	return &MemoryAssignmentStore{assignments: make(map[string][]RoleAssignment)}
}

func (m *MemoryAssignmentStore) Replace(_ context.Context, subjectID string, assignments []RoleAssignment) error {
	cp := make([]RoleAssignment, len(assignments))
	copy(cp, assignments)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(cp) == 0 {
		delete(m.assignments, subjectID)
		return nil
	}
	m.assignments[subjectID] = cp
	return nil
}

func (m *MemoryAssignmentStore) ListFor(_ context.Context, subjectID string) ([]RoleAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoleAssignment, len(m.assignments[subjectID]))
	copy(out, m.assignments[subjectID])
	return out, nil
}

// MemoryOverrideStore is an in-process OverrideStore. Overrides are keyed by
// permission per subject, so a second upsert for a permission replaces the first.
type MemoryOverrideStore struct {
	mu        sync.RWMutex
	overrides map[string]map[Permission]Override
}

func NewMemoryOverrideStore() *MemoryOverrideStore {
	return &MemoryOverrideStore{overrides: make(map[string]map[Permission]Override)}
}

func (m *MemoryOverrideStore) Upsert(_ context.Context, subjectID string, o Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byPerm := m.overrides[subjectID]
	if o.Decision == DecisionInherit {
		delete(byPerm, o.Permission)
		if len(byPerm) == 0 {
			delete(m.overrides, subjectID)
		}
		return nil
	}
	if byPerm == nil {
		byPerm = make(map[Permission]Override)
		m.overrides[subjectID] = byPerm
	}
	o.Scope = o.Scope.Normalize()
	byPerm[o.Permission] = o
	return nil
}

func (m *MemoryOverrideStore) Clear(_ context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, subjectID)
	return nil
}

func (m *MemoryOverrideStore) ListFor(_ context.Context, subjectID string) ([]Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byPerm := m.overrides[subjectID]
	out := make([]Override, 0, len(byPerm))
	for _, o := range byPerm {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Permission < out[j].Permission })
	return out, nil
}

// MemoryGrantStore is an in-process GrantStore.
type MemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[string][]Grant
}

func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{grants: make(map[string][]Grant)}
}

func (m *MemoryGrantStore) Add(_ context.Context, subjectID string, g Grant) (Grant, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Scope = g.Scope.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[subjectID] = append(m.grants[subjectID], g)
	return g, nil
}

func (m *MemoryGrantStore) Revoke(_ context.Context, subjectID, grantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	grants := m.grants[subjectID]
	for i, g := range grants {
		if g.ID == grantID {
			m.grants[subjectID] = append(grants[:i:i], grants[i+1:]...)
			return nil
		}
	}
	return ErrGrantNotFound
}

func (m *MemoryGrantStore) ListFor(_ context.Context, subjectID string) ([]Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Grant, len(m.grants[subjectID]))
	copy(out, m.grants[subjectID])
	return out, nil
}

func (m *MemoryGrantStore) ActiveGrantsFor(ctx context.Context, subjectID string, now time.Time) ([]Grant, error) {
	grants, err := m.ListFor(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return FilterActive(grants, now), nil
}
