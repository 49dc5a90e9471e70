package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/apify"
	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/application/ports/mocks"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
	"reviewmonitor/internal/scanner"
	"reviewmonitor/internal/scraper"
	"reviewmonitor/internal/workqueue"
)

type stubAPI struct{}

func (stubAPI) StartRun(ctx context.Context, actorID string, input *apify.ActorInput) (*apify.Run, error) {
	return &apify.Run{ID: "run-1", ActorID: actorID, Status: apify.RunStatusReady}, nil
}

func (stubAPI) GetRun(ctx context.Context, actorID, runID string) (*apify.Run, error) {
	return &apify.Run{ID: runID, ActorID: actorID, Status: apify.RunStatusSucceeded}, nil
}

func (stubAPI) DatasetItems(ctx context.Context, runID string) ([]apify.Item, error) {
	return nil, nil
}

func (stubAPI) RunSync(ctx context.Context, actorID string, input *apify.ActorInput) ([]apify.Item, error) {
	return nil, nil
}

type stubClassifier struct{}

func (stubClassifier) Classify(ctx context.Context, reviews []*entity.Review) (map[string][]entity.Finding, error) {
	return map[string][]entity.Finding{}, nil
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	obs := mocks.NewNoopObservability()
	repos := mocks.NewMemRepositories()
	cfg := &config.Config{
		Apify: config.ApifyConfig{
			PollInterval:    time.Millisecond,
			MaxPollAttempts: 3,
			MaxPollDuration: time.Second,
		},
	}

	orchestrator, err := scraper.NewOrchestrator(stubAPI{}, repos, nil, nil, cfg, obs)
	require.NoError(t, err)

	queue, err := workqueue.NewManager(orchestrator, &config.WorkQueueConfig{
		MaxConcurrent: 1,
		MaxRetries:    1,
		TickInterval:  time.Hour, // never dispatches during the test
	}, obs)
	require.NoError(t, err)

	pipeline, err := scanner.NewPipeline(stubClassifier{}, repos, &config.ClassifierConfig{
		BatchSize:   5,
		ScanTimeout: time.Second,
	}, obs)
	require.NoError(t, err)

	d, err := NewDispatcher(orchestrator, queue, pipeline, obs)
	require.NoError(t, err)
	return d
}

func dispatch(t *testing.T, d *Dispatcher, reqType, payload string) ports.RuntimeResponse {
	t.Helper()
	req := ports.RuntimeRequest{ID: "req-1", Type: reqType}
	if payload != "" {
		req.Payload = json.RawMessage(payload)
	}
	resp, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func errCode(t *testing.T, resp ports.RuntimeResponse) string {
	t.Helper()
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestDispatchUnknownType(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, "no.such.op", "")
	assert.Equal(t, "UNKNOWN_TYPE", errCode(t, resp))
}

func TestDispatchScrapeStartValidation(t *testing.T) {
	d := newTestDispatcher(t)

	t.Run("bad kind", func(t *testing.T) {
		resp := dispatch(t, d, TypeScrapeStart, `{"kind": "unknown", "targets": ["B000TEST01"]}`)
		assert.Equal(t, "VALIDATION_ERROR", errCode(t, resp))
	})

	t.Run("no targets", func(t *testing.T) {
		resp := dispatch(t, d, TypeScrapeStart, `{"kind": "product", "targets": []}`)
		assert.Equal(t, "VALIDATION_ERROR", errCode(t, resp))
	})

	t.Run("malformed payload", func(t *testing.T) {
		resp := dispatch(t, d, TypeScrapeStart, `not json`)
		assert.Equal(t, "INVALID_PAYLOAD", errCode(t, resp))
	})
}

func TestDispatchScrapeStartReturnsRunID(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeScrapeStart, `{"kind": "product", "targets": ["B000TEST01"]}`)
	require.True(t, resp.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "run-1", data["run_id"])
}

func TestDispatchScrapeStatusListsAllWithoutRunID(t *testing.T) {
	d := newTestDispatcher(t)

	dispatch(t, d, TypeScrapeStart, `{"kind": "product", "targets": ["B000TEST01"]}`)

	resp := dispatch(t, d, TypeScrapeStatus, "")
	require.True(t, resp.Success)

	var data struct {
		Tasks []entity.ScrapeTask `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Len(t, data.Tasks, 1)
}

func TestDispatchScrapeStatusUnknownRun(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeScrapeStatus, `{"run_id": "nope"}`)
	assert.Equal(t, "NOT_FOUND", errCode(t, resp))
}

func TestDispatchQueueEnqueueDefaultsKind(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeQueueEnqueue, `{"asin": "B000TEST01", "priority": 3}`)
	require.True(t, resp.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.NotEmpty(t, data["item_id"])

	item, ok := d.queue.Item(data["item_id"])
	require.True(t, ok)
	assert.Equal(t, entity.ScrapeKindProduct, item.Kind)
	assert.Equal(t, 3, item.Priority)
}

func TestDispatchQueueEnqueueRequiresASIN(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeQueueEnqueue, `{"priority": 1}`)
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, resp))
}

func TestDispatchQueueStatus(t *testing.T) {
	d := newTestDispatcher(t)

	dispatch(t, d, TypeQueueEnqueue, `{"asin": "B000TEST01"}`)

	resp := dispatch(t, d, TypeQueueStatus, "")
	require.True(t, resp.Success)

	var data struct {
		Items []entity.QueueItem `json:"items"`
		Stats workqueue.Stats    `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Len(t, data.Items, 1)
	assert.Equal(t, 1, data.Stats.Queued)
}

func TestDispatchQueueMaintenanceOps(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeQueueRetryFailed, "")
	require.True(t, resp.Success)

	resp = dispatch(t, d, TypeQueueClear, "")
	require.True(t, resp.Success)
}

func TestDispatchScanStartRequiresASIN(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeScanStart, `{"asin": ""}`)
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, resp))
}

func TestDispatchScanStopUnknownScan(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeScanStop, `{"scan_id": "nope"}`)
	assert.Equal(t, "NOT_FOUND", errCode(t, resp))
}

func TestDispatchScanLifecycle(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeScanStart, `{"asin": "B000TEST01"}`)
	require.True(t, resp.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	scanID := data["scan_id"]
	require.NotEmpty(t, scanID)

	require.Eventually(t, func() bool {
		resp := dispatch(t, d, TypeScanStatus, `{"scan_id": "`+scanID+`"}`)
		if !resp.Success {
			return false
		}
		var scan scanner.Scan
		require.NoError(t, json.Unmarshal(resp.Data, &scan))
		return scan.Status == scanner.ScanStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDispatchViolationOverrideValidation(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeViolationOverride, `{"by": "ops@example.com"}`)
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, resp))
}

func TestDispatchViolationActiveCount(t *testing.T) {
	d := newTestDispatcher(t)

	resp := dispatch(t, d, TypeViolationActiveCount, `{"asin": "B000TEST01"}`)
	require.True(t, resp.Success)

	var data struct {
		ASIN  string `json:"asin"`
		Count int64  `json:"active_violations"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "B000TEST01", data.ASIN)
	assert.Zero(t, data.Count)

	resp = dispatch(t, d, TypeViolationActiveCount, `{"asin": ""}`)
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, resp))
}
