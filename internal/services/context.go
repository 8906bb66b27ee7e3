package services

import "context"

type contextKey string

const (
	itemIDKey    contextKey = "item_id"
	processorKey contextKey = "processor"
	cycleIDKey   contextKey = "cycle_id"
)

// WithItemID annotates context with the queue item identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the queue item identifier if present.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(itemIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithProcessor annotates context with the selected processor name.
func WithProcessor(ctx context.Context, processor string) context.Context {
	if processor == "" {
		return ctx
	}
	return context.WithValue(ctx, processorKey, processor)
}

// ProcessorFromContext returns the processor name if present.
func ProcessorFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(processorKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCycleID annotates context with the orchestration cycle identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext extracts the cycle identifier if present.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(cycleIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
