// Package logging builds the slog loggers used across driveline and defines
// the standardized structured field names (component, item_id, processor,
// cycle_id). Console output is for interactive runs; JSON for collectors.
package logging
