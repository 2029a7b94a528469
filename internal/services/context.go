package services

import "context"

type contextKey string

const (
	cargoIDKey   contextKey = "cargo_id"
	jobKey       contextKey = "job"
	requestIDKey contextKey = "request_id"
)

// WithCargoID annotates context with the cargo identifier.
func WithCargoID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, cargoIDKey, id)
}

// CargoIDFromContext extracts the cargo identifier if present.
func CargoIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(cargoIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJob annotates context with the scheduler job kind.
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, job)
}

// JobFromContext returns the job kind if present.
func JobFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
