package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/helpdesk-access/internal/access"
	accessDatamodel "github.com/frahmantamala/helpdesk-access/internal/core/datamodel/access"
)

var (
	_ access.AssignmentStore = (*AssignmentRepository)(nil)
	_ access.OverrideStore   = (*OverrideRepository)(nil)
	_ access.GrantStore      = (*GrantRepository)(nil)
)

// AssignmentRepository stores role assignments with GORM.
type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Replace swaps the subject's assignments in one transaction.
func (r *AssignmentRepository) Replace(ctx context.Context, subjectID string, assignments []access.RoleAssignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subject_id = ?", subjectID).Delete(&accessDatamodel.RoleAssignment{}).Error; err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		if len(assignments) == 0 {
			return nil
		}
		rows := make([]accessDatamodel.RoleAssignment, 0, len(assignments))
		for _, a := range assignments {
			scope := a.Scope.Normalize()
			rows = append(rows, accessDatamodel.RoleAssignment{
				SubjectID: subjectID,
				RoleKey:   a.RoleKey,
				ScopeKind: string(scope.Kind),
				ScopeRef:  scope.Ref,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert assignments: %w", err)
		}
		return nil
	})
}

func (r *AssignmentRepository) ListFor(ctx context.Context, subjectID string) ([]access.RoleAssignment, error) {
	var rows []accessDatamodel.RoleAssignment
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]access.RoleAssignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, access.RoleAssignment{
			RoleKey: row.RoleKey,
			Scope:   scopeOf(row.ScopeKind, row.ScopeRef),
		})
	}
	return out, nil
}

type OverrideRepository struct {
	db *gorm.DB
}

func NewOverrideRepository(db *gorm.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Upsert writes the override for (subject, permission), replacing any
// existing one. An inherit decision deletes the row instead.
func (r *OverrideRepository) Upsert(ctx context.Context, subjectID string, o access.Override) error {
	db := r.db.WithContext(ctx)
	if o.Decision == access.DecisionInherit {
		return db.Where("subject_id = ? AND permission = ?", subjectID, string(o.Permission)).
			Delete(&accessDatamodel.PermissionOverride{}).Error
	}

	scope := o.Scope.Normalize()
	row := accessDatamodel.PermissionOverride{
		SubjectID:  subjectID,
		Permission: string(o.Permission),
		Decision:   string(o.Decision),
		ScopeKind:  string(scope.Kind),
		ScopeRef:   scope.Ref,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}, {Name: "permission"}},
		DoUpdates: clause.AssignmentColumns([]string{"decision", "scope_kind", "scope_ref", "updated_at"}),
	}).Create(&row).Error
}

func (r *OverrideRepository) Clear(ctx context.Context, subjectID string) error {
	return r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Delete(&accessDatamodel.PermissionOverride{}).Error
}

func (r *OverrideRepository) ListFor(ctx context.Context, subjectID string) ([]access.Override, error) {
	var rows []accessDatamodel.PermissionOverride
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("permission ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]access.Override, 0, len(rows))
	for _, row := range rows {
		out = append(out, access.Override{
			Permission: access.Permission(row.Permission),
			Decision:   access.Decision(row.Decision),
			Scope:      scopeOf(row.ScopeKind, row.ScopeRef),
		})
	}
	return out, nil
}

type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

func (r *GrantRepository) Add(ctx context.Context, subjectID string, g access.Grant) (access.Grant, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.Scope = g.Scope.Normalize()
	row := accessDatamodel.TemporalGrant{
		ID:         g.ID,
		SubjectID:  subjectID,
		Kind:       string(g.Kind),
		RoleKey:    g.RoleKey,
		Permission: string(g.Permission),
		Allow:      g.Allow,
		ScopeKind:  string(g.Scope.Kind),
		ScopeRef:   g.Scope.Ref,
		StartAt:    utc(g.StartAt),
		EndAt:      utc(g.EndAt),
		Reason:     g.Reason,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return access.Grant{}, err
	}
	return grantFromRow(row), nil
}

func (r *GrantRepository) Revoke(ctx context.Context, subjectID, grantID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND subject_id = ?", grantID, subjectID).
		Delete(&accessDatamodel.TemporalGrant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return access.ErrGrantNotFound
	}
	return nil
}

func (r *GrantRepository) ListFor(ctx context.Context, subjectID string) ([]access.Grant, error) {
	return r.find(r.db.WithContext(ctx).Where("subject_id = ?", subjectID))
}

// ActiveGrantsFor returns the grants whose window contains now, bounds
// inclusive. Times are stored in UTC.
func (r *GrantRepository) ActiveGrantsFor(ctx context.Context, subjectID string, now time.Time) ([]access.Grant, error) {
	now = now.UTC()
	return r.find(r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Where("start_at IS NULL OR start_at <= ?", now).
		Where("end_at IS NULL OR end_at >= ?", now))
}

func (r *GrantRepository) find(q *gorm.DB) ([]access.Grant, error) {
	var rows []accessDatamodel.TemporalGrant
	if err := q.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []access.Grant{}, nil
		}
		return nil, err
	}
	out := make([]access.Grant, 0, len(rows))
	for _, row := range rows {
		out = append(out, grantFromRow(row))
	}
	return out, nil
}

func grantFromRow(row accessDatamodel.TemporalGrant) access.Grant {
	return access.Grant{
		ID:         row.ID,
		Kind:       access.GrantKind(row.Kind),
		RoleKey:    row.RoleKey,
		Permission: access.Permission(row.Permission),
		Allow:      row.Allow,
		Scope:      scopeOf(row.ScopeKind, row.ScopeRef),
		StartAt:    row.StartAt,
		EndAt:      row.EndAt,
		Reason:     row.Reason,
	}
}

func scopeOf(kind, ref string) access.Scope {
	return access.Scope{Kind: access.ScopeKind(kind), Ref: ref}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// AutoMigrate creates the tables for local and test databases. Production
// schemas come from the goose migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&accessDatamodel.RoleAssignment{},
		&accessDatamodel.PermissionOverride{},
		&accessDatamodel.TemporalGrant{},
	)
}
