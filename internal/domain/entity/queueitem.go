package entity

import "time"

type QueueItemStatus string

const (
	QueueItemStatusQueued     QueueItemStatus = "queued"
	QueueItemStatusProcessing QueueItemStatus = "processing"
	QueueItemStatusCompleted  QueueItemStatus = "completed"
	QueueItemStatusFailed     QueueItemStatus = "failed"
)

// QueueItem is one unit of scraping work awaiting processing. Items live
// only in process memory; a restart loses them.
type QueueItem struct {
	ID          string          `json:"id"`
	ASIN        string          `json:"asin"`
	Kind        ScrapeKind      `json:"kind"`
	Priority    int             `json:"priority"` // higher = sooner
	Status      QueueItemStatus `json:"status"`
	Progress    int             `json:"progress"` // 0-100, estimated
	Attempts    int             `json:"attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}
