package workflow

import (
	"context"

	"driveline/internal/logging"
	"driveline/internal/queue"
	"driveline/internal/services"
)

// BatchOutcome is the per-item slice of a batch processor response.
type BatchOutcome struct {
	Success  bool
	EntityID string
	Error    string
}

// BatchCall performs the single downstream call for a batch group and
// returns per-item outcomes keyed by source URL.
type BatchCall func(ctx context.Context, sourceURLs []string) (map[string]BatchOutcome, error)

// RunBatch dispatches a batch group: one downstream call covers all items.
// When the call itself fails every item is finalized for retry; otherwise
// each item is finalized from its keyed outcome, and items the response
// never mentions count as malformed per-item failures.
func (e *Executor) RunBatch(ctx context.Context, items []*queue.Item, call BatchCall) GroupResult {
	var group GroupResult
	if len(items) == 0 {
		return group
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.SourceURL)
	}

	outcomes, err := call(ctx, urls)
	if err != nil {
		e.logger.Error("batch call failed",
			logging.Int("items", len(items)),
			logging.Error(err))
		message := services.Details(err).Message
		for _, item := range items {
			res := ItemResult{ItemID: item.ID, SourceURL: item.SourceURL}
			group.observe(e.finalizeRetry(ctx, res, message, err))
		}
		return group
	}

	for _, item := range items {
		res := ItemResult{ItemID: item.ID, SourceURL: item.SourceURL}
		outcome, present := outcomes[item.SourceURL]
		switch {
		case !present:
			err := services.Wrap(services.ErrMalformed, "workflow", "batch",
				"source url missing from batch response", nil)
			group.observe(e.finalizeRetry(ctx, res, services.Details(err).Message, err))
		case !outcome.Success:
			err := services.Wrap(services.ErrTransient, "workflow", "batch", outcome.Error, nil)
			group.observe(e.finalizeRetry(ctx, res, outcome.Error, err))
		case outcome.EntityID == "":
			err := services.Wrap(services.ErrMalformed, "workflow", "batch",
				"no entity id in successful outcome", nil)
			group.observe(e.finalizeRetry(ctx, res, services.Details(err).Message, err))
		default:
			res.EntityID = outcome.EntityID
			group.observe(e.finalizeComplete(ctx, res))
		}
	}
	return group
}
