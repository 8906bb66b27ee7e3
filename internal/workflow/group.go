package workflow

import (
	"context"
	"sync"
	"time"

	"driveline/internal/queue"
)

// RunEach dispatches items individually under a bounded fan-out. At most
// fanOut items run concurrently; launches are spaced by the politeness delay
// so rate-limited source hosts are not hammered. Results stream over a
// channel and are folded into an immutable GroupResult once every item has
// finished or the context is cancelled.
func (e *Executor) RunEach(ctx context.Context, items []*queue.Item, fn func(ctx context.Context, item *queue.Item) ItemResult) GroupResult {
	var group GroupResult
	if len(items) == 0 {
		return group
	}

	sem := make(chan struct{}, e.fanOut)
	results := make(chan ItemResult, len(items))
	var wg sync.WaitGroup

launch:
	for i, item := range items {
		if ctx.Err() != nil {
			break launch
		}
		if i > 0 && e.politeness > 0 {
			select {
			case <-time.After(e.politeness):
			case <-ctx.Done():
				break launch
			}
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break launch
		}

		wg.Add(1)
		go func(item *queue.Item) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- fn(ctx, item)
		}(item)
	}

	wg.Wait()
	close(results)
	for res := range results {
		group.observe(res)
	}
	return group
}
