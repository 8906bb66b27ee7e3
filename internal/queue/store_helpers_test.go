package queue

import (
	"testing"
	"time"
)

func TestFormatTimeOrdersLexicographically(t *testing.T) {
	// Whole-second and fractional timestamps must keep string order equal to
	// time order; locked_at cutoff comparisons happen as strings in SQL.
	base := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	ordered := []time.Time{
		base.Add(-time.Second),
		base.Add(-500 * time.Millisecond),
		base,
		base.Add(250 * time.Millisecond),
		base.Add(time.Second),
	}

	for i := 1; i < len(ordered); i++ {
		prev, next := formatTime(ordered[i-1]), formatTime(ordered[i])
		if !(prev < next) {
			t.Fatalf("expected %q < %q for %v < %v", prev, next, ordered[i-1], ordered[i])
		}
		if len(prev) != len(next) {
			t.Fatalf("expected fixed-width timestamps, got %q and %q", prev, next)
		}
	}
}

func TestFormatTimeRoundTrips(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 30, 0, 123456789, time.UTC)
	parsed, err := parseTimeString(formatTime(now))
	if err != nil {
		t.Fatalf("parseTimeString: %v", err)
	}
	if !parsed.Equal(now) {
		t.Fatalf("expected %v, got %v", now, parsed)
	}
}
