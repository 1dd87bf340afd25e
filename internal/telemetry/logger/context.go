package logger

import "context"

type ctxKey int

const (
	loggerKey ctxKey = iota
	runIDKey
)

// WithLogger attaches l to ctx for L.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithRunID tags ctx with the id of the current sync run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// L returns the logger attached to ctx, or Default, with run_id set when
// ctx carries one.
func L(ctx context.Context) Logger {
	l, ok := ctx.Value(loggerKey).(Logger)
	if !ok {
		l = Default()
	}
	if id, _ := ctx.Value(runIDKey).(string); id != "" {
		l = l.With("run_id", id)
	}
	return l
}
