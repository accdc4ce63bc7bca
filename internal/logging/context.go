package logging

import (
	"context"

	"go.uber.org/zap"
)

type fieldsKey struct{}

// WithFields returns a context whose log calls include fields, in addition
// to any already attached.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing := ContextFields(ctx)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// ContextFields returns a copy of the fields attached to ctx.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	out := make([]zap.Field, len(fields))
	copy(out, fields)
	return out
}

// Owner, Entry and Op are the standard context field constructors.
func Owner(id string) zap.Field { return zap.String("owner", id) }
func Entry(id string) zap.Field { return zap.String("entry", id) }
func Op(name string) zap.Field  { return zap.String("op", name) }
