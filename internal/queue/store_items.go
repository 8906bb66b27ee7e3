package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enqueue inserts a discovered listing. The source URL is the natural dedupe
// key: when a row already exists the insert is ignored and the existing item
// is returned with inserted=false.
func (s *Store) Enqueue(ctx context.Context, item NewItem) (*Item, bool, error) {
	sourceURL := strings.TrimSpace(item.SourceURL)
	if sourceURL == "" {
		return nil, false, errors.New("source url is required")
	}
	if item.Priority <= 0 {
		return nil, false, errors.New("priority must be positive")
	}

	timestamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (source_url, raw_payload, status, priority, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(source_url) DO NOTHING`,
		sourceURL,
		nullableString(item.RawPayloadJSON),
		StatusPending,
		item.Priority,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	existing, err := s.GetBySourceURL(ctx, sourceURL)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("item vanished after insert: %s", sourceURL)
	}
	return existing, affected > 0, nil
}

// GetByID fetches a queue item by identifier, returning ErrNotFound for
// unknown ids.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetBySourceURL returns the item for a discovered URL, if any.
func (s *Store) GetBySourceURL(ctx context.Context, sourceURL string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE source_url = ? LIMIT 1`,
		strings.TrimSpace(sourceURL),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by source url: %w", err)
	}
	return item, nil
}

// List returns queue items filtered by status set (or all items when no
// status is provided), ordered by priority then age.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY priority, created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	return collectItems(rows)
}

// ResetFailed returns a terminal failed item to pending with a clean attempt
// counter. Operator action; has no effect on other statuses.
func (s *Store) ResetFailed(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, attempts = 0, error_message = NULL, processed_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		formatTime(time.Now()),
		id,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("reset failed item: %w", err)
	}
	return requireTransition(ctx, s, res, id)
}

// MarkSkipped terminates a pending or failed item without processing it.
func (s *Store) MarkSkipped(ctx context.Context, id int64, reason string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, error_message = ?, processed_at = ?, lock_owner = NULL, locked_at = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusSkipped,
		nullableString(reason),
		now,
		now,
		id,
		StatusPending,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark skipped: %w", err)
	}
	return requireTransition(ctx, s, res, id)
}

func requireTransition(ctx context.Context, s *Store, res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: item %d is %s", ErrInvalidTransition, id, existing.Status)
}
