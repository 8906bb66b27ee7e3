package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"driveline/internal/queue"
	"driveline/internal/testsupport"
)

func claimReq(worker string, batch, maxAttempts int) queue.ClaimRequest {
	return queue.ClaimRequest{
		BatchSize:   batch,
		MaxAttempts: maxAttempts,
		WorkerID:    worker,
	}
}

func TestGetByIDUnknownReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item, err := store.GetByID(context.Background(), 9999)
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item, got %#v", item)
	}
}

func TestEnqueueDedupesOnSourceURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, inserted, err := store.Enqueue(ctx, queue.NewItem{
		SourceURL:      "https://bringatrailer.com/listing/1970-chevrolet-blazer",
		RawPayloadJSON: `{"title":"1970 Chevrolet Blazer"}`,
		Priority:       50,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected first enqueue to insert")
	}
	if first.Status != queue.StatusPending || first.Attempts != 0 {
		t.Fatalf("unexpected new item state: %#v", first)
	}

	second, inserted, err := store.Enqueue(ctx, queue.NewItem{
		SourceURL: "https://bringatrailer.com/listing/1970-chevrolet-blazer",
		Priority:  50,
	})
	if err != nil {
		t.Fatalf("duplicate Enqueue failed: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate enqueue to be ignored")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same item back, got %d and %d", first.ID, second.ID)
	}
}

func TestClaimBatchRespectsPriorityAndAge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	urgent, _, err := store.Enqueue(ctx, queue.NewItem{
		SourceURL: "https://mecum.com/lots/urgent",
		Priority:  10,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	testsupport.EnqueueN(t, store, "mecum.com", 3)

	claimed := testsupport.MustClaim(t, store, claimReq("worker-a", 1, 3))
	if len(claimed) != 1 || claimed[0].ID != urgent.ID {
		t.Fatalf("expected urgent item claimed first, got %#v", claimed)
	}
	if claimed[0].Status != queue.StatusProcessing {
		t.Fatalf("expected processing status, got %s", claimed[0].Status)
	}
	if claimed[0].LockOwner != "worker-a" || claimed[0].LockedAt == nil {
		t.Fatalf("expected lock fields set: %#v", claimed[0])
	}
}

func TestConcurrentClaimersNeverShareItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.EnqueueN(t, store, "bringatrailer.com", 20)

	const claimers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[int64]string)
		doubled []int64
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			items, err := store.ClaimBatch(context.Background(), claimReq("worker", 5, 3))
			if err != nil {
				t.Errorf("ClaimBatch: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, item := range items {
				if _, dup := claimed[item.ID]; dup {
					doubled = append(doubled, item.ID)
				}
				claimed[item.ID] = item.LockOwner
			}
		}(i)
	}
	wg.Wait()

	if len(doubled) > 0 {
		t.Fatalf("items claimed twice: %v", doubled)
	}
	if len(claimed) != 20 {
		t.Fatalf("expected all 20 items claimed exactly once, got %d", len(claimed))
	}
}

func TestReclaimOrphansHonorsTTLBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.EnqueueN(t, store, "bringatrailer.com", 1)
	claimed := testsupport.MustClaim(t, store, claimReq("worker-a", 1, 3))
	if len(claimed) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claimed))
	}

	// Fresh lock: a generous TTL must leave the claim alone.
	count, err := store.ReclaimOrphans(ctx, time.Hour)
	if err != nil {
		t.Fatalf("ReclaimOrphans: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no reclaims within TTL, got %d", count)
	}

	time.Sleep(60 * time.Millisecond)
	count, err = store.ReclaimOrphans(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ReclaimOrphans: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaim past TTL, got %d", count)
	}

	item, err := store.GetByID(ctx, claimed[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != queue.StatusPending || item.LockOwner != "" || item.LockedAt != nil {
		t.Fatalf("expected reclaimed item back to pending with clear locks: %#v", item)
	}
	if item.Attempts != 0 {
		t.Fatalf("reclaim must not count as an attempt, got %d", item.Attempts)
	}

	// Reclaimed items are claimable again.
	reclaimed := testsupport.MustClaim(t, store, claimReq("worker-b", 1, 3))
	if len(reclaimed) != 1 || reclaimed[0].ID != claimed[0].ID {
		t.Fatalf("expected reclaimed item to be claimable, got %#v", reclaimed)
	}
}

func TestFinalizeCompleteRecordsEntity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.EnqueueN(t, store, "bringatrailer.com", 1)
	claimed := testsupport.MustClaim(t, store, claimReq("worker-a", 1, 3))

	item, err := store.Finalize(ctx, queue.FinalizeRequest{
		ItemID:   claimed[0].ID,
		WorkerID: "worker-a",
		Outcome:  queue.OutcomeComplete,
		EntityID: "vehicle-123",
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if item.Status != queue.StatusComplete {
		t.Fatalf("expected complete, got %s", item.Status)
	}
	if item.ProducedEntityID != "vehicle-123" {
		t.Fatalf("expected entity id recorded, got %q", item.ProducedEntityID)
	}
	if item.ProcessedAt == nil || item.LockOwner != "" {
		t.Fatalf("expected processed_at set and lock cleared: %#v", item)
	}

	// Terminal items are never claimed again.
	if again := testsupport.MustClaim(t, store, claimReq("worker-b", 5, 3)); len(again) != 0 {
		t.Fatalf("expected no claimable items, got %d", len(again))
	}
}

func TestFinalizeByNonOwnerReportsClaimLost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.EnqueueN(t, store, "bringatrailer.com", 1)
	claimed := testsupport.MustClaim(t, store, claimReq("worker-a", 1, 3))

	_, err := store.Finalize(ctx, queue.FinalizeRequest{
		ItemID:   claimed[0].ID,
		WorkerID: "worker-b",
		Outcome:  queue.OutcomeComplete,
		EntityID: "vehicle-999",
	})
	if !errors.Is(err, queue.ErrClaimLost) {
		t.Fatalf("expected ErrClaimLost, got %v", err)
	}
}

func TestFinalizeAfterReclaimReportsClaimLost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.EnqueueN(t, store, "bringatrailer.com", 1)
	claimed := testsupport.MustClaim(t, store, claimReq("worker-a", 1, 3))

	time.Sleep(60 * time.Millisecond)
	if _, err := store.ReclaimOrphans(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("ReclaimOrphans: %v", err)
	}

	_, err := store.Finalize(ctx, queue.FinalizeRequest{
		ItemID:   claimed[0].ID,
		WorkerID: "worker-a",
		Outcome:  queue.OutcomeComplete,
		EntityID: "vehicle-1",
	})
	if !errors.Is(err, queue.ErrClaimLost) {
		t.Fatalf("expected ErrClaimLost after reclaim, got %v", err)
	}
}

func TestRetryExhaustionScenario(t *testing.T) {
	// Batch 3, 5 pending, max_attempts 3. Three claim+fail
	// rounds exhaust the first three items; the two never-claimed items
	// remain the only claimable ones.
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	items := testsupport.EnqueueN(t, store, "mecum.com", 5)
	exhausted := map[int64]bool{}

	for round := 1; round <= 3; round++ {
		claimed := testsupport.MustClaim(t, store, claimReq("worker-a", 3, 3))
		if len(claimed) != 3 {
			t.Fatalf("round %d: expected 3 claims, got %d", round, len(claimed))
		}
		for _, item := range claimed {
			final, err := store.Finalize(ctx, queue.FinalizeRequest{
				ItemID:       item.ID,
				WorkerID:     "worker-a",
				Outcome:      queue.OutcomeRetry,
				ErrorMessage: "core extraction failed",
				MaxAttempts:  3,
			})
			if err != nil {
				t.Fatalf("round %d finalize: %v", round, err)
			}
			if final.Attempts != round {
				t.Fatalf("round %d: expected attempts=%d, got %d", round, round, final.Attempts)
			}
			wantStatus := queue.StatusPending
			if round == 3 {
				wantStatus = queue.StatusFailed
				exhausted[final.ID] = true
			}
			if final.Status != wantStatus {
				t.Fatalf("round %d: expected %s, got %s", round, wantStatus, final.Status)
			}
			if final.ErrorMessage != "core extraction failed" {
				t.Fatalf("expected last error retained, got %q", final.ErrorMessage)
			}
		}
	}

	if len(exhausted) != 3 {
		t.Fatalf("expected 3 exhausted items, got %d", len(exhausted))
	}

	remaining := testsupport.MustClaim(t, store, claimReq("worker-a", 10, 3))
	if len(remaining) != 2 {
		t.Fatalf("expected only the 2 never-claimed items, got %d", len(remaining))
	}
	for _, item := range remaining {
		if exhausted[item.ID] {
			t.Fatalf("exhausted item %d was claimed again", item.ID)
		}
	}
	_ = items
}

func TestResetFailedReturnsItemToPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.EnqueueN(t, store, "bringatrailer.com", 1)
	claimed := testsupport.MustClaim(t, store, claimReq("worker-a", 1, 1))
	failed, err := store.Finalize(ctx, queue.FinalizeRequest{
		ItemID:       claimed[0].ID,
		WorkerID:     "worker-a",
		Outcome:      queue.OutcomeRetry,
		ErrorMessage: "downstream unreachable",
		MaxAttempts:  1,
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if failed.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}

	if err := store.ResetFailed(ctx, failed.ID); err != nil {
		t.Fatalf("ResetFailed: %v", err)
	}
	item, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != queue.StatusPending || item.Attempts != 0 || item.ErrorMessage != "" {
		t.Fatalf("unexpected reset state: %#v", item)
	}

	// Resetting a non-failed item is rejected.
	if err := store.ResetFailed(ctx, item.ID); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkSkippedIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.Enqueue(t, store, "https://example.com/not-a-listing")
	if err := store.MarkSkipped(ctx, item.ID, "no vehicle content"); err != nil {
		t.Fatalf("MarkSkipped: %v", err)
	}

	skipped, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if skipped.Status != queue.StatusSkipped || skipped.ProcessedAt == nil {
		t.Fatalf("unexpected skipped state: %#v", skipped)
	}
	if claims := testsupport.MustClaim(t, store, claimReq("worker-a", 5, 3)); len(claims) != 0 {
		t.Fatalf("skipped item must not be claimable, got %d", len(claims))
	}
}

func TestDepthCountsWithScanCap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.EnqueueN(t, store, "mecum.com", 6)

	depths, err := store.DepthCounts(ctx, 100)
	if err != nil {
		t.Fatalf("DepthCounts: %v", err)
	}
	if depths.Counts[queue.StatusPending] != 6 || depths.Truncated {
		t.Fatalf("unexpected depths: %#v", depths)
	}

	capped, err := store.DepthCounts(ctx, 4)
	if err != nil {
		t.Fatalf("DepthCounts capped: %v", err)
	}
	if !capped.Truncated {
		t.Fatal("expected truncation flag when cap is hit")
	}
}
