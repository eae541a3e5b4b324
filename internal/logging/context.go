package logging

import (
	"context"
	"log/slog"

	"photodesk/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldPhase is the standardized structured logging key for workflow phase names.
	FieldPhase = "phase"
	// FieldCustomer is the standardized structured logging key for customer names.
	FieldCustomer = "customer"
	// FieldJobID is the standardized structured logging key for delivery job identifiers.
	FieldJobID = "job_id"
	// FieldEventType classifies a log line for filtering (e.g. "job_completed").
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorKind carries services.Classify output.
	FieldErrorKind = "error_kind"
	// FieldAlert flags lines that were also sent to the operator channel.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if customer, ok := services.CustomerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCustomer, customer))
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
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
	return logger.With(Args(fields...)...)
}
