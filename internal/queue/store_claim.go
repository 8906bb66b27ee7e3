package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClaimBatch atomically claims up to BatchSize pending items with remaining
// attempts, marking them processing under the caller's worker id. The claim
// executes as a single UPDATE so concurrent callers can never receive the
// same item. Lower priority values are claimed first, then older items.
func (s *Store) ClaimBatch(ctx context.Context, req ClaimRequest) ([]*Item, error) {
	if req.BatchSize <= 0 {
		return nil, nil
	}
	if req.MaxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}
	if strings.TrimSpace(req.WorkerID) == "" {
		return nil, errors.New("worker id is required")
	}

	ctx = ensureContext(ctx)
	now := formatTime(time.Now())

	var rows *sql.Rows
	err := retryOnBusy(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(
			ctx,
			`UPDATE queue_items
             SET status = ?, lock_owner = ?, locked_at = ?, updated_at = ?
             WHERE id IN (
                 SELECT id FROM queue_items
                 WHERE status = ? AND attempts < ?
                 ORDER BY priority, created_at
                 LIMIT ?
             )
             RETURNING `+itemColumns,
			StatusProcessing,
			req.WorkerID,
			now,
			now,
			StatusPending,
			req.MaxAttempts,
			req.BatchSize,
		)
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	return collectItems(rows)
}

// ReclaimOrphans clears lock fields and resets status to pending for any
// processing item whose lock is older than lockTTL. Items inside the TTL are
// untouched, so it is safe to run concurrently with active workers.
func (s *Store) ReclaimOrphans(ctx context.Context, lockTTL time.Duration) (int64, error) {
	if lockTTL <= 0 {
		return 0, errors.New("lock ttl must be positive")
	}
	cutoff := formatTime(time.Now().Add(-lockTTL))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, lock_owner = NULL, locked_at = NULL, updated_at = ?
         WHERE status = ? AND locked_at < ?`,
		StatusPending,
		formatTime(time.Now()),
		StatusProcessing,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim orphans: %w", err)
	}
	return res.RowsAffected()
}

// Finalize writes back a processing result. The write is conditional on the
// caller still owning the lock; ErrClaimLost is returned when the lock was
// reclaimed or reassigned in the meantime.
//
// OutcomeRetry increments attempts and returns the item to pending, or flips
// it to failed once attempts reach MaxAttempts. OutcomeComplete and
// OutcomeSkipped are terminal. The updated item is returned.
func (s *Store) Finalize(ctx context.Context, req FinalizeRequest) (*Item, error) {
	if strings.TrimSpace(req.WorkerID) == "" {
		return nil, errors.New("worker id is required")
	}
	now := formatTime(time.Now())

	var (
		res sql.Result
		err error
	)
	switch req.Outcome {
	case OutcomeComplete:
		res, err = s.execWithRetry(
			ctx,
			`UPDATE queue_items
             SET status = ?, produced_entity_id = ?, error_message = NULL,
                 processed_at = ?, lock_owner = NULL, locked_at = NULL, updated_at = ?
             WHERE id = ? AND lock_owner = ? AND status = ?`,
			StatusComplete,
			nullableString(req.EntityID),
			now,
			now,
			req.ItemID,
			req.WorkerID,
			StatusProcessing,
		)
	case OutcomeSkipped:
		res, err = s.execWithRetry(
			ctx,
			`UPDATE queue_items
             SET status = ?, error_message = ?, processed_at = ?,
                 lock_owner = NULL, locked_at = NULL, updated_at = ?
             WHERE id = ? AND lock_owner = ? AND status = ?`,
			StatusSkipped,
			nullableString(req.ErrorMessage),
			now,
			now,
			req.ItemID,
			req.WorkerID,
			StatusProcessing,
		)
	case OutcomeRetry:
		if req.MaxAttempts <= 0 {
			return nil, errors.New("max attempts must be positive for retry finalize")
		}
		res, err = s.execWithRetry(
			ctx,
			`UPDATE queue_items
             SET attempts = attempts + 1,
                 status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END,
                 processed_at = CASE WHEN attempts + 1 >= ? THEN ? ELSE NULL END,
                 error_message = ?,
                 lock_owner = NULL, locked_at = NULL, updated_at = ?
             WHERE id = ? AND lock_owner = ? AND status = ?`,
			req.MaxAttempts,
			StatusFailed,
			StatusPending,
			req.MaxAttempts,
			now,
			nullableString(req.ErrorMessage),
			now,
			req.ItemID,
			req.WorkerID,
			StatusProcessing,
		)
	default:
		return nil, fmt.Errorf("unknown finalize outcome %q", req.Outcome)
	}
	if err != nil {
		return nil, fmt.Errorf("finalize item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrClaimLost
	}
	return s.GetByID(ctx, req.ItemID)
}
