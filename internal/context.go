package internal

import (
	"context"

	"github.com/frahmantamala/helpdesk-access/internal/access"
)

type ctxKey string

const (
	ContextSubjectKey ctxKey = "subjectID"
	ContextEvalKey    ctxKey = "evaluationContext"
)

// Caller is the subject making a request together with its current
// department and team.
type Caller struct {
	SubjectID string
	Context   access.EvaluationContext
}

func SubjectIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subjectID, ok := ctx.Value(ContextSubjectKey).(string); ok {
		return subjectID
	}
	return ""
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	subjectID := SubjectIDFromContext(ctx)
	if subjectID == "" {
		return Caller{}, false
	}
	evalCtx, _ := ctx.Value(ContextEvalKey).(access.EvaluationContext)
	return Caller{SubjectID: subjectID, Context: evalCtx}, true
}

func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	ctx = context.WithValue(ctx, ContextSubjectKey, caller.SubjectID)
	return context.WithValue(ctx, ContextEvalKey, caller.Context)
}
