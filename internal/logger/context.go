package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	fieldsKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithFields attaches fields that every FromCtx logger for ctx will carry,
// such as the caller's user id once authentication has run.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	prev, _ := ctx.Value(fieldsKey).([]zap.Field)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey, merged)
}

// FromCtx returns the global logger enriched with the request id and any
// fields bound through WithFields.
func FromCtx(ctx context.Context) *zap.Logger {
	fields, _ := ctx.Value(fieldsKey).([]zap.Field)
	if reqID := RequestIDFrom(ctx); reqID != "" {
		fields = append([]zap.Field{zap.String("request_id", reqID)}, fields...)
	}
	if len(fields) == 0 {
		return L()
	}
	return L().With(fields...)
}
