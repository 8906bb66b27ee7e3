package logging

import (
	"context"
	"log/slog"

	"driveline/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldProcessor is the standardized structured logging key for selected processor names.
	FieldProcessor = "processor"
	// FieldCycleID is the standardized structured logging key for orchestration cycle identifiers.
	FieldCycleID = "cycle_id"
	// FieldEventType classifies log records for downstream filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's suggested next step on warnings and errors.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	if processor, ok := services.ProcessorFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProcessor, processor))
	}
	if cycle, ok := services.CycleIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCycleID, cycle))
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
