package scraper

import (
	"sync"
	"time"

	"reviewmonitor/internal/domain/entity"
)

// taskRegistry is the in-memory home of scrape tasks. Tasks are owned by
// the orchestrator that created them and do not survive a restart.
type taskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*entity.ScrapeTask
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: make(map[string]*entity.ScrapeTask)}
}

func (r *taskRegistry) add(task *entity.ScrapeTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.RunID] = task
}

// get returns a copy so callers cannot mutate registry state.
func (r *taskRegistry) get(runID string) (entity.ScrapeTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[runID]
	if !ok {
		return entity.ScrapeTask{}, false
	}
	return *task, true
}

func (r *taskRegistry) setStatus(runID string, status entity.TaskStatus, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[runID]
	if !ok {
		return
	}
	task.Status = status
	if progress > task.Progress {
		task.Progress = progress
	}
	if status.Terminal() {
		task.Progress = 100
		now := time.Now().UTC()
		task.CompletedAt = &now
	}
}

func (r *taskRegistry) setFailed(runID string, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[runID]
	if !ok {
		return
	}
	task.Status = entity.TaskStatusFailed
	task.Error = errMsg
	now := time.Now().UTC()
	task.CompletedAt = &now
}

func (r *taskRegistry) snapshot() []entity.ScrapeTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.ScrapeTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, *task)
	}
	return out
}
