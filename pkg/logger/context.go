package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// NewContext returns a context that carries l as its logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// With returns a context whose logger carries fields on every record.
func With(ctx context.Context, fields ...any) context.Context {
	return NewContext(ctx, From(ctx).With(fields...))
}

// WithCaller tags the context logger with the calling subject and the
// department and team its decisions are evaluated in. Empty parts are
// omitted.
func WithCaller(ctx context.Context, subjectID, department, team string) context.Context {
	fields := []any{"subject_id", subjectID}
	if department != "" {
		fields = append(fields, "department", department)
	}
	if team != "" {
		fields = append(fields, "team", team)
	}
	return With(ctx, fields...)
}

// From returns the logger stored in ctx, or the process logger.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
