package testsupport

import (
	"context"
	"fmt"
	"testing"

	"driveline/internal/config"
	"driveline/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a listing URL for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, sourceURL string) *queue.Item {
	t.Helper()

	item, inserted, err := store.Enqueue(context.Background(), queue.NewItem{
		SourceURL: sourceURL,
		Priority:  100,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	if !inserted {
		t.Fatalf("expected %s to be a new item", sourceURL)
	}
	return item
}

// EnqueueN inserts n listings with generated URLs under the given host.
func EnqueueN(t testing.TB, store *queue.Store, host string, n int) []*queue.Item {
	t.Helper()

	items := make([]*queue.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, Enqueue(t, store, fmt.Sprintf("https://%s/listing/item-%d", host, i)))
	}
	return items
}

// MustClaim claims a batch and fails the test on error.
func MustClaim(t testing.TB, store *queue.Store, req queue.ClaimRequest) []*queue.Item {
	t.Helper()

	items, err := store.ClaimBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("store.ClaimBatch: %v", err)
	}
	return items
}
