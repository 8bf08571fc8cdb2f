package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOverrideUpserted    = "access.override_upserted"
	EventTypeOverridesCleared    = "access.overrides_cleared"
	EventTypeAssignmentsReplaced = "access.assignments_replaced"
	EventTypeGrantAdded          = "access.grant_added"
	EventTypeGrantRevoked        = "access.grant_revoked"
)

// AccessChangedEvent records a change to one subject's access records.
type AccessChangedEvent struct {
	BaseEvent
	SubjectID string `json:"subject_id"`
	ActorID   string `json:"actor_id"`
}

func NewAccessChangedEvent(eventType, subjectID, actorID string, data map[string]interface{}) *AccessChangedEvent {
	payload := map[string]interface{}{
		"subject_id": subjectID,
		"actor_id":   actorID,
	}
	for k, v := range data {
		payload[k] = v
	}
	return &AccessChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      payload,
		},
		SubjectID: subjectID,
		ActorID:   actorID,
	}
}

func NewOverrideUpsertedEvent(subjectID, actorID, permission, decision, scope string) *AccessChangedEvent {
	return NewAccessChangedEvent(EventTypeOverrideUpserted, subjectID, actorID, map[string]interface{}{
		"permission": permission,
		"decision":   decision,
		"scope":      scope,
	})
}

func NewOverridesClearedEvent(subjectID, actorID string) *AccessChangedEvent {
	return NewAccessChangedEvent(EventTypeOverridesCleared, subjectID, actorID, nil)
}

func NewAssignmentsReplacedEvent(subjectID, actorID string, roles []string) *AccessChangedEvent {
	return NewAccessChangedEvent(EventTypeAssignmentsReplaced, subjectID, actorID, map[string]interface{}{
		"roles": roles,
	})
}

func NewGrantAddedEvent(subjectID, actorID, grantID, kind string) *AccessChangedEvent {
	return NewAccessChangedEvent(EventTypeGrantAdded, subjectID, actorID, map[string]interface{}{
		"grant_id": grantID,
		"kind":     kind,
	})
}

func NewGrantRevokedEvent(subjectID, actorID, grantID string) *AccessChangedEvent {
	return NewAccessChangedEvent(EventTypeGrantRevoked, subjectID, actorID, map[string]interface{}{
		"grant_id": grantID,
	})
}

// AuditLogger returns a handler that writes every access change as a
// structured log record.
func AuditLogger(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		attrs := []any{
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
		}
		if data, ok := event.Payload().(map[string]interface{}); ok {
			for k, v := range data {
				attrs = append(attrs, k, v)
			}
		}
		logger.InfoContext(ctx, "access changed", attrs...)
		return nil
	}
}
