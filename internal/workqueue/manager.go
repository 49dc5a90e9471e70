// Package workqueue is the in-memory prioritized queue of scraping work.
// It bounds concurrency, estimates progress, and gates retries; durability
// is explicitly out of scope.
package workqueue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
)

// Processor executes one queue item to completion. The call blocks for the
// whole run so the worker slot stays occupied.
type Processor interface {
	Execute(ctx context.Context, kind entity.ScrapeKind, targets []string) error
}

// Stats summarizes the queue by status.
type Stats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Manager owns the queue state and the dispatch loop. Constructor-injected;
// a process holds exactly the managers it builds.
type Manager struct {
	processor Processor
	cfg       *config.WorkQueueConfig
	logger    ports.Logger
	metrics   ports.Metrics

	mu      sync.RWMutex
	items   map[string]*entity.QueueItem
	running int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager wires the queue manager. Start must be called to begin
// dispatching.
func NewManager(processor Processor, cfg *config.WorkQueueConfig, obs ports.Observability) (*Manager, error) {
	logger, metrics, err := obs.ComponentsScoped("workqueue.manager")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &Manager{
		processor: processor,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		items:     make(map[string]*entity.QueueItem),
	}, nil
}

// Start launches the dispatch loop.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go m.loop(ctx)
	m.logger.Info("Queue manager started",
		"max_concurrent", m.cfg.MaxConcurrent,
		"max_retries", m.cfg.MaxRetries)
}

// Stop cancels the dispatch loop and waits for it to exit. In-flight items
// observe the cancellation through their context.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.logger.Info("Queue manager stopped")
}

// Enqueue adds one item of work. Duplicate ASINs are allowed; callers who
// care deduplicate upstream.
func (m *Manager) Enqueue(asin string, kind entity.ScrapeKind, priority int) (string, error) {
	if asin == "" {
		return "", fmt.Errorf("asin is required")
	}

	item := &entity.QueueItem{
		ID:         uuid.NewString(),
		ASIN:       asin,
		Kind:       kind,
		Priority:   priority,
		Status:     entity.QueueItemStatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.items[item.ID] = item
	m.mu.Unlock()

	m.logger.Info("Item enqueued", "item_id", item.ID, "asin", asin, "kind", kind, "priority", priority)
	m.metrics.IncrementCounter("workqueue.enqueued", map[string]string{"kind": string(kind)})

	return item.ID, nil
}

// RetryFailed requeues failed items that still have retry budget. Returns
// the number requeued.
func (m *Manager) RetryFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	requeued := 0
	for _, item := range m.items {
		if item.Status == entity.QueueItemStatusFailed && item.Attempts < m.cfg.MaxRetries {
			item.Status = entity.QueueItemStatusQueued
			item.Error = ""
			item.Progress = 0
			requeued++
		}
	}

	if requeued > 0 {
		m.logger.Info("Failed items requeued", "count", requeued)
	}
	return requeued
}

// ClearFinished drops completed and failed items immediately.
func (m *Manager) ClearFinished() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cleared := 0
	for id, item := range m.items {
		if item.Status == entity.QueueItemStatusCompleted || item.Status == entity.QueueItemStatusFailed {
			delete(m.items, id)
			cleared++
		}
	}
	return cleared
}

// Snapshot returns copies of all items, priority order first, with
// estimated progress filled in for processing items.
func (m *Manager) Snapshot() []entity.QueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entity.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		it := *item
		if it.Status == entity.QueueItemStatusProcessing && it.StartedAt != nil {
			it.Progress = m.estimateProgress(*it.StartedAt)
		}
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// Item returns a copy of one item.
func (m *Manager) Item(id string) (entity.QueueItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return entity.QueueItem{}, false
	}
	it := *item
	if it.Status == entity.QueueItemStatusProcessing && it.StartedAt != nil {
		it.Progress = m.estimateProgress(*it.StartedAt)
	}
	return it, true
}

// Stats counts items by status.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	for _, item := range m.items {
		switch item.Status {
		case entity.QueueItemStatusQueued:
			s.Queued++
		case entity.QueueItemStatusProcessing:
			s.Processing++
		case entity.QueueItemStatusCompleted:
			s.Completed++
		case entity.QueueItemStatusFailed:
			s.Failed++
		}
	}
	return s
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.dispatch(ctx)
			m.reapCompleted()
		}
	}
}

// dispatch starts eligible items while free slots remain. Highest priority
// wins; ties break on enqueue time.
func (m *Manager) dispatch(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.running < m.cfg.MaxConcurrent {
		item := m.nextEligibleLocked()
		if item == nil {
			return
		}

		now := time.Now().UTC()
		item.Status = entity.QueueItemStatusProcessing
		item.StartedAt = &now
		item.Attempts++
		m.running++

		go m.process(ctx, item.ID, item.ASIN, item.Kind)
	}
}

// nextEligibleLocked picks the queued item with retry budget left that has
// the highest priority, earliest enqueue time on ties.
func (m *Manager) nextEligibleLocked() *entity.QueueItem {
	var best *entity.QueueItem
	for _, item := range m.items {
		if item.Status != entity.QueueItemStatusQueued || item.Attempts >= m.cfg.MaxRetries {
			continue
		}
		if best == nil ||
			item.Priority > best.Priority ||
			(item.Priority == best.Priority && item.EnqueuedAt.Before(best.EnqueuedAt)) {
			best = item
		}
	}
	return best
}

func (m *Manager) process(ctx context.Context, itemID, asin string, kind entity.ScrapeKind) {
	start := time.Now()
	err := m.processor.Execute(ctx, kind, []string{asin})

	m.mu.Lock()
	defer m.mu.Unlock()

	m.running--
	item, ok := m.items[itemID]
	if !ok {
		return
	}

	now := time.Now().UTC()
	item.CompletedAt = &now

	if err != nil {
		item.Status = entity.QueueItemStatusFailed
		item.Error = err.Error()
		m.logger.Error("Item processing failed",
			"item_id", itemID,
			"asin", asin,
			"attempt", item.Attempts,
			"error", err)
		m.metrics.IncrementCounter("workqueue.failed", map[string]string{"kind": string(kind)})
		return
	}

	item.Status = entity.QueueItemStatusCompleted
	item.Progress = 100
	m.logger.Info("Item completed", "item_id", itemID, "asin", asin)
	m.metrics.IncrementCounter("workqueue.completed", map[string]string{"kind": string(kind)})
	m.metrics.RecordHistogram("workqueue.item.duration", time.Since(start).Seconds(),
		map[string]string{"kind": string(kind)})
}

// reapCompleted removes completed items whose retention window has passed.
// Failed items stay until retried or cleared.
func (m *Manager) reapCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-m.cfg.CompletedTTL)
	for id, item := range m.items {
		if item.Status == entity.QueueItemStatusCompleted &&
			item.CompletedAt != nil && item.CompletedAt.Before(cutoff) {
			delete(m.items, id)
		}
	}
}

// estimateProgress maps elapsed time against the assumed duration, capped
// at 95 until real completion is observed.
func (m *Manager) estimateProgress(startedAt time.Time) int {
	elapsed := time.Since(startedAt)
	pct := int(elapsed * 100 / m.cfg.AssumedDuration)
	if pct > 95 {
		return 95
	}
	if pct < 0 {
		return 0
	}
	return pct
}
