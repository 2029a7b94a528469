package logging

import (
	"context"
	"log/slog"

	"cargoport/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCargoID is the standardized structured logging key for cargo identifiers.
	FieldCargoID = "cargo_id"
	// FieldJob is the standardized structured logging key for scheduler job kinds.
	FieldJob = "job"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "claim_released").
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact states what a warning means for cargo or jobs.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.CargoIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCargoID, id))
	}
	if job, ok := services.JobFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJob, job))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
