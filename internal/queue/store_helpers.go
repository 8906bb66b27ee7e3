package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, source_url, raw_payload, status, attempts, lock_owner, locked_at, priority, produced_entity_id, error_message, processed_at, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		sourceURL    string
		rawPayload   sql.NullString
		statusStr    string
		attempts     int
		lockOwner    sql.NullString
		lockedAtRaw  sql.NullString
		priority     int
		entityID     sql.NullString
		errorMessage sql.NullString
		processedRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&rawPayload,
		&statusStr,
		&attempts,
		&lockOwner,
		&lockedAtRaw,
		&priority,
		&entityID,
		&errorMessage,
		&processedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:               id,
		SourceURL:        sourceURL,
		RawPayloadJSON:   rawPayload.String,
		Status:           Status(statusStr),
		Attempts:         attempts,
		LockOwner:        lockOwner.String,
		Priority:         priority,
		ProducedEntityID: entityID.String,
		ErrorMessage:     errorMessage.String,
	}

	if lockedAtRaw.Valid {
		if locked, err := parseTimeString(lockedAtRaw.String); err == nil {
			item.LockedAt = &locked
		}
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			item.ProcessedAt = &processed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed-width so stored timestamps compare lexicographically in
// time order. RFC3339Nano would trim trailing zeros and break `locked_at <
// cutoff` comparisons at whole-second boundaries.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
