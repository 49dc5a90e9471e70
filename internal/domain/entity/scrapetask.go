package entity

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the task has reached a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

type ScrapeKind string

const (
	ScrapeKindProduct ScrapeKind = "product"
	ScrapeKindReview  ScrapeKind = "review"
)

// ScrapeTask tracks one external scraping run. Tasks live only in process
// memory and are owned by the orchestrator instance that created them.
type ScrapeTask struct {
	RunID       string     `json:"run_id"`
	Kind        ScrapeKind `json:"kind"`
	Targets     []string   `json:"targets"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"` // 0-100
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
