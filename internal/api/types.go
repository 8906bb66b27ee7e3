package api

import (
	"encoding/json"
	"time"

	"driveline/internal/orchestrator"
	"driveline/internal/queue"
)

// QueueItemView is the wire representation of a queue item.
type QueueItemView struct {
	ID           int64      `json:"id"`
	SourceURL    string     `json:"source_url"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	Priority     int        `json:"priority"`
	EntityID     string     `json:"entity_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LockOwner    string     `json:"lock_owner,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// FromItem converts a store item into its wire view.
func FromItem(item *queue.Item) QueueItemView {
	return QueueItemView{
		ID:           item.ID,
		SourceURL:    item.SourceURL,
		Status:       string(item.Status),
		Attempts:     item.Attempts,
		Priority:     item.Priority,
		EntityID:     item.ProducedEntityID,
		ErrorMessage: item.ErrorMessage,
		LockOwner:    item.LockOwner,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
		ProcessedAt:  item.ProcessedAt,
	}
}

// FromItems converts a slice of store items.
func FromItems(items []*queue.Item) []QueueItemView {
	out := make([]QueueItemView, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// QueueListResponse is the body of GET /api/queue.
type QueueListResponse struct {
	Items []QueueItemView `json:"items"`
}

// QueueItemResponse wraps a single item.
type QueueItemResponse struct {
	Item QueueItemView `json:"item"`
}

// EnqueueRequest is the body of POST /api/queue, the discovery insert
// surface scrapers and operators share.
type EnqueueRequest struct {
	SourceURL string          `json:"source_url"`
	Priority  int             `json:"priority,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EnqueueResponse reports the stored item and whether the URL was new.
type EnqueueResponse struct {
	Item     QueueItemView `json:"item"`
	Inserted bool          `json:"inserted"`
}

// DaemonStatus is the body of GET /api/status.
type DaemonStatus struct {
	Running      bool                  `json:"running"`
	PID          int                   `json:"pid"`
	WorkerID     string                `json:"worker_id"`
	QueueDBPath  string                `json:"queue_db_path"`
	LockFilePath string                `json:"lock_file_path"`
	LastCycle    *orchestrator.Summary `json:"last_cycle,omitempty"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
