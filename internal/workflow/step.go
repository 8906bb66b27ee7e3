package workflow

import (
	"context"

	"driveline/internal/queue"
)

// StepResult is what one processor step produced for an item. EntityID is
// the vehicle record the downstream call created or updated; steps that
// only enrich an existing record may leave it empty.
type StepResult struct {
	EntityID string
}

// StepFunc runs one processor step. entityID carries the entity produced by
// earlier steps so later steps can target the same record; processors upsert
// by natural key, so re-running a step updates rather than duplicates.
type StepFunc func(ctx context.Context, item *queue.Item, entityID string) (StepResult, error)

// Step is one ordered unit of a per-item workflow. A critical step failure
// aborts the item (retry or failed on exhaustion); a non-critical failure is
// recorded as a warning and the item still completes.
type Step struct {
	Name     string
	Critical bool
	Run      StepFunc
}

// ItemResult records what happened to one item during dispatch.
type ItemResult struct {
	ItemID    int64
	SourceURL string
	Status    queue.Status
	EntityID  string
	Warnings  []string
	Err       error
	// ClaimLost is set when finalize found the claim reclaimed or
	// reassigned; the attempt wrote nothing.
	ClaimLost bool
}

// GroupResult aggregates the item results of one dispatch group.
type GroupResult struct {
	Dispatched int
	Completed  int
	Failed     int
	Retried    int
	ClaimLost  int
	Warnings   int
	Errors     []error
}

func (g *GroupResult) observe(res ItemResult) {
	g.Dispatched++
	g.Warnings += len(res.Warnings)
	switch {
	case res.ClaimLost:
		g.ClaimLost++
	case res.Status == queue.StatusComplete:
		g.Completed++
	case res.Status == queue.StatusFailed:
		g.Failed++
	case res.Status == queue.StatusPending:
		g.Retried++
	}
	if res.Err != nil && !res.ClaimLost {
		g.Errors = append(g.Errors, res.Err)
	}
}
