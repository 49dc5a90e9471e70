package workqueue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/application/ports/mocks"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
)

// fakeProcessor records executions and can block or fail on demand.
type fakeProcessor struct {
	mu    sync.Mutex
	calls []string
	err   error
	block chan struct{}
}

func (f *fakeProcessor) Execute(ctx context.Context, kind entity.ScrapeKind, targets []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, targets[0])
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testQueueConfig() *config.WorkQueueConfig {
	return &config.WorkQueueConfig{
		MaxConcurrent:   2,
		MaxRetries:      2,
		TickInterval:    5 * time.Millisecond,
		CompletedTTL:    time.Minute,
		AssumedDuration: 10 * time.Minute,
	}
}

func newTestManager(t *testing.T, processor Processor, cfg *config.WorkQueueConfig) *Manager {
	t.Helper()
	m, err := NewManager(processor, cfg, mocks.NewNoopObservability())
	require.NoError(t, err)
	return m
}

func TestEnqueueRequiresASIN(t *testing.T) {
	m := newTestManager(t, &fakeProcessor{}, testQueueConfig())

	_, err := m.Enqueue("", entity.ScrapeKindProduct, 0)
	assert.Error(t, err)
}

func TestSnapshotOrdersByPriorityThenEnqueueTime(t *testing.T) {
	m := newTestManager(t, &fakeProcessor{}, testQueueConfig())

	lowFirst, err := m.Enqueue("B000LOW001", entity.ScrapeKindProduct, 1)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	lowSecond, err := m.Enqueue("B000LOW002", entity.ScrapeKindProduct, 1)
	require.NoError(t, err)
	high, err := m.Enqueue("B000HIGH01", entity.ScrapeKindProduct, 5)
	require.NoError(t, err)

	snapshot := m.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, high, snapshot[0].ID)
	assert.Equal(t, lowFirst, snapshot[1].ID)
	assert.Equal(t, lowSecond, snapshot[2].ID)
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	processor := &fakeProcessor{block: make(chan struct{})}
	m := newTestManager(t, processor, testQueueConfig())

	for i := 0; i < 5; i++ {
		_, err := m.Enqueue(fmt.Sprintf("B000TEST%02d", i), entity.ScrapeKindProduct, 0)
		require.NoError(t, err)
	}

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.Stats().Processing == 2
	}, 2*time.Second, 5*time.Millisecond)

	// No further dispatch while both slots are busy
	time.Sleep(30 * time.Millisecond)
	stats := m.Stats()
	assert.Equal(t, 2, stats.Processing)
	assert.Equal(t, 3, stats.Queued)

	close(processor.block)

	require.Eventually(t, func() bool {
		return m.Stats().Completed == 5
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, processor.callCount())
}

func TestHighestPriorityDispatchesFirst(t *testing.T) {
	processor := &fakeProcessor{}
	cfg := testQueueConfig()
	cfg.MaxConcurrent = 1
	m := newTestManager(t, processor, cfg)

	_, err := m.Enqueue("B000LOW001", entity.ScrapeKindProduct, 0)
	require.NoError(t, err)
	_, err = m.Enqueue("B000HIGH01", entity.ScrapeKindProduct, 10)
	require.NoError(t, err)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.Stats().Completed == 2
	}, 2*time.Second, 5*time.Millisecond)

	processor.mu.Lock()
	defer processor.mu.Unlock()
	assert.Equal(t, []string{"B000HIGH01", "B000LOW001"}, processor.calls)
}

func TestFailedItemNeedsExplicitRetry(t *testing.T) {
	processor := &fakeProcessor{err: fmt.Errorf("scrape blew up")}
	m := newTestManager(t, processor, testQueueConfig())

	id, err := m.Enqueue("B000TEST01", entity.ScrapeKindProduct, 0)
	require.NoError(t, err)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.Stats().Failed == 1
	}, 2*time.Second, 5*time.Millisecond)

	item, ok := m.Item(id)
	require.True(t, ok)
	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, "scrape blew up", item.Error)

	// Not retried until asked
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, processor.callCount())

	assert.Equal(t, 1, m.RetryFailed())

	require.Eventually(t, func() bool {
		return m.Stats().Failed == 1 && processor.callCount() == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Retry budget exhausted: nothing left to requeue
	assert.Equal(t, 0, m.RetryFailed())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 2, processor.callCount())
}

func TestClearFinished(t *testing.T) {
	processor := &fakeProcessor{}
	m := newTestManager(t, processor, testQueueConfig())

	_, err := m.Enqueue("B000TEST01", entity.ScrapeKindProduct, 0)
	require.NoError(t, err)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return m.Stats().Completed == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, m.ClearFinished())
	assert.Empty(t, m.Snapshot())
}

func TestCompletedItemsReapedAfterTTL(t *testing.T) {
	processor := &fakeProcessor{}
	cfg := testQueueConfig()
	cfg.CompletedTTL = 10 * time.Millisecond
	m := newTestManager(t, processor, cfg)

	_, err := m.Enqueue("B000TEST01", entity.ScrapeKindProduct, 0)
	require.NoError(t, err)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEstimateProgressClamps(t *testing.T) {
	cfg := testQueueConfig()
	cfg.AssumedDuration = 100 * time.Millisecond
	m := newTestManager(t, &fakeProcessor{}, cfg)

	assert.Equal(t, 95, m.estimateProgress(time.Now().Add(-time.Hour)))
	assert.Equal(t, 0, m.estimateProgress(time.Now().Add(time.Hour)))

	mid := m.estimateProgress(time.Now().Add(-50 * time.Millisecond))
	assert.GreaterOrEqual(t, mid, 45)
	assert.Less(t, mid, 95)
}
