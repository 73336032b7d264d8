package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	folderRootKey
	loggerKey
)

// ContextFields returns the correlation fields carried by ctx: the active
// span, the API request id and the folder root being worked on.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := stringValue(ctx, requestIDKey); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if root := stringValue(ctx, folderRootKey); root != "" {
		fields = append(fields, zap.String("folder.root", root))
	}
	return fields
}

func withString(ctx context.Context, key ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithRequestID tags ctx with an API request id. Empty ids are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id on ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithFolderRoot tags ctx with the canonical folder root an operation runs
// against. Empty roots are ignored.
func WithFolderRoot(ctx context.Context, root string) context.Context {
	return withString(ctx, folderRootKey, root)
}

// FolderRootFromContext returns the folder root on ctx, if any.
func FolderRootFromContext(ctx context.Context) string {
	return stringValue(ctx, folderRootKey)
}

// WithLogger stores logger on ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored on ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
