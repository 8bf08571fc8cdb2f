package access

import "time"

type RoleAssignment struct {
	ID        int64     `gorm:"primaryKey"`
	SubjectID string    `gorm:"column:subject_id;not null;index:idx_role_assignments_subject"`
	RoleKey   string    `gorm:"column:role_key;not null"`
	ScopeKind string    `gorm:"column:scope_kind;not null"`
	ScopeRef  string    `gorm:"column:scope_ref;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (RoleAssignment) TableName() string { return "role_assignments" }

type PermissionOverride struct {
	ID         int64     `gorm:"primaryKey"`
	SubjectID  string    `gorm:"column:subject_id;not null;uniqueIndex:idx_permission_overrides_subject_permission"`
	Permission string    `gorm:"column:permission;not null;uniqueIndex:idx_permission_overrides_subject_permission"`
	Decision   string    `gorm:"column:decision;not null"`
	ScopeKind  string    `gorm:"column:scope_kind;not null"`
	ScopeRef   string    `gorm:"column:scope_ref;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PermissionOverride) TableName() string { return "permission_overrides" }

type TemporalGrant struct {
	ID         string     `gorm:"primaryKey;column:id"`
	SubjectID  string     `gorm:"column:subject_id;not null;index:idx_temporal_grants_subject"`
	Kind       string     `gorm:"column:kind;not null"`
	RoleKey    string     `gorm:"column:role_key;not null;default:''"`
	Permission string     `gorm:"column:permission;not null;default:''"`
	Allow      bool       `gorm:"column:allow;not null;default:false"`
	ScopeKind  string     `gorm:"column:scope_kind;not null"`
	ScopeRef   string     `gorm:"column:scope_ref;not null;default:''"`
	StartAt    *time.Time `gorm:"column:start_at"`
	EndAt      *time.Time `gorm:"column:end_at"`
	Reason     string     `gorm:"column:reason;not null;default:''"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (TemporalGrant) TableName() string { return "temporal_grants" }
