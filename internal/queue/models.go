package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusComplete,
	StatusFailed,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Item represents a discovered listing awaiting or undergoing extraction.
type Item struct {
	ID               int64
	SourceURL        string
	RawPayloadJSON   string
	Status           Status
	Attempts         int
	LockOwner        string
	LockedAt         *time.Time
	Priority         int
	ProducedEntityID string
	ErrorMessage     string
	ProcessedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewItem describes an item to enqueue.
type NewItem struct {
	SourceURL      string
	RawPayloadJSON string
	Priority       int
}

// ClaimRequest parameterizes an atomic batch claim. Lock expiry is not part
// of the claim; ReclaimOrphans applies the TTL from locked_at.
type ClaimRequest struct {
	BatchSize   int
	MaxAttempts int
	WorkerID    string
}

// Outcome is the terminal or retry disposition written back after processing.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRetry    Outcome = "retry"
)

// FinalizeRequest writes back the result of a processing pass. WorkerID must
// still hold the item's lock; MaxAttempts governs when a retry becomes
// terminal failure.
type FinalizeRequest struct {
	ItemID       int64
	WorkerID     string
	Outcome      Outcome
	EntityID     string
	ErrorMessage string
	MaxAttempts  int
}

// Depths aggregates queue depth by status.
type Depths struct {
	Counts map[Status]int
	// Truncated reports that the row-scan cap cut the count short; the
	// depths are then lower bounds, not totals.
	Truncated bool
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status admits no further claims.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// Claimable reports whether the item is eligible for a claim under the given
// attempt cap.
func (i Item) Claimable(maxAttempts int) bool {
	return i.Status == StatusPending && i.Attempts < maxAttempts
}

// Orphaned reports whether a processing item's lock has outlived the TTL.
func (i Item) Orphaned(lockTTL time.Duration, now time.Time) bool {
	if i.Status != StatusProcessing || i.LockedAt == nil {
		return false
	}
	return now.Sub(*i.LockedAt) > lockTTL
}
