package logging

import (
	"context"
)

type fieldKey string

// Context keys double as the log field names they are emitted under.
const (
	TraceIDKey     fieldKey = "trace_id"
	MessageIDKey   fieldKey = "message_id"
	RequestIDKey   fieldKey = "request_id"
	ActorKey       fieldKey = "actor"
	ServiceNameKey fieldKey = "service_name"
)

var fieldOrder = []fieldKey{TraceIDKey, MessageIDKey, RequestIDKey, ActorKey, ServiceNameKey}

func withField(ctx context.Context, key fieldKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func field(ctx context.Context, key fieldKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withField(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return withField(ctx, MessageIDKey, messageID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, RequestIDKey, requestID)
}

// WithActor records who triggered the work; audit entries are attributed to it.
func WithActor(ctx context.Context, actor string) context.Context {
	return withField(ctx, ActorKey, actor)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return withField(ctx, ServiceNameKey, serviceName)
}

func TraceID(ctx context.Context) string     { return field(ctx, TraceIDKey) }
func MessageID(ctx context.Context) string   { return field(ctx, MessageIDKey) }
func RequestID(ctx context.Context) string   { return field(ctx, RequestIDKey) }
func Actor(ctx context.Context) string       { return field(ctx, ActorKey) }
func ServiceName(ctx context.Context) string { return field(ctx, ServiceNameKey) }

// Fields returns the context's correlation values as zap key/value pairs.
func Fields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, len(fieldOrder)*2)
	for _, key := range fieldOrder {
		if v := field(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
