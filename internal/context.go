package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextTaskIDKey ctxKey = "taskID"

func TaskIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if taskID, ok := ctx.Value(ContextTaskIDKey).(string); ok {
		return taskID
	}
	return ""
}

func ContextWithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, ContextTaskIDKey, taskID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
