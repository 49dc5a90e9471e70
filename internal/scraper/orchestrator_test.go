package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/apify"
	"reviewmonitor/internal/application/ports/mocks"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
)

// fakeAPI scripts the actor-run API: GetRun walks through statuses, an
// optional leading error burst simulates transient poll failures.
type fakeAPI struct {
	mu       sync.Mutex
	statuses []string
	getCalls int
	getErrs  int

	startErr  error
	items     []apify.Item
	itemsErr  error
	syncItems []apify.Item
	syncErr   error
	syncCalls int
}

func (f *fakeAPI) StartRun(ctx context.Context, actorID string, input *apify.ActorInput) (*apify.Run, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &apify.Run{ID: "run-1", ActorID: actorID, Status: apify.RunStatusReady}, nil
}

func (f *fakeAPI) GetRun(ctx context.Context, actorID, runID string) (*apify.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++
	if f.getErrs > 0 {
		f.getErrs--
		return nil, fmt.Errorf("transient poll error")
	}

	status := apify.RunStatusRunning
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	return &apify.Run{ID: runID, ActorID: actorID, Status: status}, nil
}

func (f *fakeAPI) DatasetItems(ctx context.Context, runID string) ([]apify.Item, error) {
	return f.items, f.itemsErr
}

func (f *fakeAPI) RunSync(ctx context.Context, actorID string, input *apify.ActorInput) ([]apify.Item, error) {
	f.mu.Lock()
	f.syncCalls++
	f.mu.Unlock()
	return f.syncItems, f.syncErr
}

func testScraperConfig() *config.Config {
	return &config.Config{
		Apify: config.ApifyConfig{
			ProductActorID:  "actor-product",
			ReviewActorID:   "actor-review",
			PollInterval:    2 * time.Millisecond,
			MaxPollAttempts: 5,
			MaxPollDuration: time.Second,
			MaxReviews:      100,
			Country:         "US",
		},
	}
}

func newTestOrchestrator(t *testing.T, api *fakeAPI, repos *mocks.MemRepositories, cfg *config.Config) *Orchestrator {
	t.Helper()
	if cfg == nil {
		cfg = testScraperConfig()
	}
	o, err := NewOrchestrator(api, repos, nil, nil, cfg, mocks.NewNoopObservability())
	require.NoError(t, err)
	return o
}

func TestExecuteIngestsOnSuccess(t *testing.T) {
	api := &fakeAPI{
		statuses: []string{apify.RunStatusRunning, apify.RunStatusSucceeded},
		items: []apify.Item{
			apify.Item(`{"asin": "B000TEST01", "productTitle": "One"}`),
			apify.Item(`{"asin": "B000TEST02", "productTitle": "Two"}`),
		},
	}
	repos := mocks.NewMemRepositories()
	o := newTestOrchestrator(t, api, repos, nil)

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01", "B000TEST02"})
	require.NoError(t, err)

	count, err := repos.ProductsRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	task, ok := o.Task("run-1")
	require.True(t, ok)
	assert.Equal(t, entity.TaskStatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
}

func TestExecuteProviderFailure(t *testing.T) {
	api := &fakeAPI{statuses: []string{apify.RunStatusFailed}}
	o := newTestOrchestrator(t, api, mocks.NewMemRepositories(), nil)

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed at provider")

	task, ok := o.Task("run-1")
	require.True(t, ok)
	assert.Equal(t, entity.TaskStatusFailed, task.Status)
	assert.Equal(t, "provider reported run failure", task.Error)
}

func TestExecutePollAttemptsExhausted(t *testing.T) {
	api := &fakeAPI{} // never leaves RUNNING
	cfg := testScraperConfig()
	cfg.Apify.MaxPollAttempts = 3
	o := newTestOrchestrator(t, api, mocks.NewMemRepositories(), cfg)

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll attempts exhausted")
	assert.Equal(t, 3, api.getCalls)

	task, ok := o.Task("run-1")
	require.True(t, ok)
	assert.Equal(t, entity.TaskStatusFailed, task.Status)
}

func TestExecuteTransientPollErrorsConsumeAttempts(t *testing.T) {
	api := &fakeAPI{
		getErrs:  2,
		statuses: []string{apify.RunStatusSucceeded},
		items:    []apify.Item{apify.Item(`{"asin": "B000TEST01"}`)},
	}
	o := newTestOrchestrator(t, api, mocks.NewMemRepositories(), nil)

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.NoError(t, err)
	assert.Equal(t, 3, api.getCalls)
}

func TestExecuteDeadlineBoundsPolling(t *testing.T) {
	api := &fakeAPI{} // never leaves RUNNING
	cfg := testScraperConfig()
	cfg.Apify.MaxPollAttempts = 1000
	o := newTestOrchestrator(t, api, mocks.NewMemRepositories(), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := o.Execute(ctx, entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.Error(t, err)

	task, ok := o.Task("run-1")
	require.True(t, ok)
	assert.Equal(t, entity.TaskStatusFailed, task.Status)
	assert.Contains(t, task.Error, "poll budget exceeded")
}

func TestExecuteRejectsEmptyTargets(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAPI{}, mocks.NewMemRepositories(), nil)

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, nil)
	assert.Error(t, err)
}

func TestExecuteRunSync(t *testing.T) {
	api := &fakeAPI{
		syncItems: []apify.Item{apify.Item(`{"asin": "B000TEST01", "productTitle": "Sync"}`)},
	}
	cfg := testScraperConfig()
	cfg.Apify.UseRunSync = true
	repos := mocks.NewMemRepositories()
	o := newTestOrchestrator(t, api, repos, cfg)

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.NoError(t, err)
	assert.Equal(t, 1, api.syncCalls)

	count, err := repos.ProductsRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestChainingHookFiresPerIngestedProduct(t *testing.T) {
	api := &fakeAPI{
		statuses: []string{apify.RunStatusSucceeded},
		items: []apify.Item{
			apify.Item(`{"asin": "B000TEST01"}`),
			apify.Item(`{"asin": "B000TEST02"}`),
		},
	}
	cfg := testScraperConfig()
	cfg.Scraper.ChainReviews = true
	o := newTestOrchestrator(t, api, mocks.NewMemRepositories(), cfg)

	var mu sync.Mutex
	var chained []string
	o.OnProductIngested(func(asin string) {
		mu.Lock()
		chained = append(chained, asin)
		mu.Unlock()
	})

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01", "B000TEST02"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"B000TEST01", "B000TEST02"}, chained)
}

func TestChainingDisabledByConfig(t *testing.T) {
	api := &fakeAPI{
		statuses: []string{apify.RunStatusSucceeded},
		items:    []apify.Item{apify.Item(`{"asin": "B000TEST01"}`)},
	}
	o := newTestOrchestrator(t, api, mocks.NewMemRepositories(), nil) // ChainReviews false

	fired := false
	o.OnProductIngested(func(string) { fired = true })

	err := o.Execute(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestStartScrapingReturnsRunIDImmediately(t *testing.T) {
	api := &fakeAPI{
		statuses: []string{apify.RunStatusSucceeded},
		items:    []apify.Item{apify.Item(`{"asin": "B000TEST01"}`)},
	}
	repos := mocks.NewMemRepositories()
	o := newTestOrchestrator(t, api, repos, nil)

	runID, err := o.StartScraping(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	require.Eventually(t, func() bool {
		task, ok := o.Task(runID)
		return ok && task.Status == entity.TaskStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartScrapingPropagatesSubmitError(t *testing.T) {
	api := &fakeAPI{startErr: fmt.Errorf("actor quota exceeded")}
	o := newTestOrchestrator(t, api, mocks.NewMemRepositories(), nil)

	_, err := o.StartScraping(context.Background(), entity.ScrapeKindProduct, []string{"B000TEST01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actor quota exceeded")
	assert.Empty(t, o.Tasks())
}

func TestBuildInputForReviews(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAPI{}, mocks.NewMemRepositories(), nil)

	input := o.buildInput(entity.ScrapeKindReview, []string{"B000TEST01"})
	assert.Equal(t, []string{"B000TEST01"}, input.ASINs)
	assert.Equal(t, "US", input.Country)
	assert.Equal(t, 100, input.MaxReviews)
	assert.Equal(t, "recent", input.SortBy)
	require.NotNil(t, input.Proxy)
	assert.True(t, input.Proxy.UseApifyProxy)

	productInput := o.buildInput(entity.ScrapeKindProduct, []string{"B000TEST01"})
	assert.Zero(t, productInput.MaxReviews)
	assert.Empty(t, productInput.SortBy)
}
