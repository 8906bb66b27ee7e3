package queue

import (
	"context"
	"errors"
	"fmt"
)

// DepthCounts returns per-status counts over at most scanCap rows, so metrics
// collection cannot become the slow path on a large table. When the cap is
// hit the counts are lower bounds and Truncated is set.
func (s *Store) DepthCounts(ctx context.Context, scanCap int) (Depths, error) {
	if scanCap <= 0 {
		return Depths{}, errors.New("scan cap must be positive")
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1)
         FROM (SELECT status FROM queue_items LIMIT ?)
         GROUP BY status`,
		scanCap,
	)
	if err != nil {
		return Depths{}, fmt.Errorf("queue depths: %w", err)
	}
	defer rows.Close()

	depths := Depths{Counts: make(map[Status]int)}
	total := 0
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Depths{}, err
		}
		depths.Counts[status] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return Depths{}, err
	}
	depths.Truncated = total >= scanCap
	return depths, nil
}
