// Package apify implements the client for the external actor-run scraper API.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

// Client talks to the actor-run HTTP API with bearer-token auth.
type Client struct {
	httpClient *http.Client
	cfg        *config.ApifyConfig
	userAgent  string
	maxRetries int
	logger     ports.Logger
	metrics    ports.Metrics
}

// NewClient creates an API client from configuration.
func NewClient(cfg *config.ApifyConfig, httpCfg *config.HTTPConfig, obs ports.Observability) (*Client, error) {
	logger, metrics, err := obs.ComponentsScoped("client.apify")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: httpCfg.Timeout},
		cfg:        cfg,
		userAgent:  httpCfg.UserAgent,
		maxRetries: httpCfg.MaxRetries,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// StartRun submits a new actor run and returns its descriptor.
func (c *Client) StartRun(ctx context.Context, actorID string, input *ActorInput) (*Run, error) {
	url := fmt.Sprintf("%s/acts/%s/runs", c.cfg.BaseURL, actorID)

	body, err := c.do(ctx, http.MethodPost, url, input)
	if err != nil {
		return nil, fmt.Errorf("start run for actor %s: %w", actorID, err)
	}

	var envelope runEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}

	c.logger.Info("Actor run started", "actor_id", actorID, "run_id", envelope.Data.ID)
	c.metrics.IncrementCounter("apify.runs.started", map[string]string{"actor": actorID})

	return &envelope.Data, nil
}

// GetRun polls the status of a run.
func (c *Client) GetRun(ctx context.Context, actorID, runID string) (*Run, error) {
	url := fmt.Sprintf("%s/acts/%s/runs/%s", c.cfg.BaseURL, actorID, runID)

	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var envelope runEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}

	return &envelope.Data, nil
}

// DatasetItems fetches the result records of a finished run.
func (c *Client) DatasetItems(ctx context.Context, runID string) ([]Item, error) {
	url := fmt.Sprintf("%s/actor-runs/%s/dataset/items", c.cfg.BaseURL, runID)

	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset for run %s: %w", runID, err)
	}

	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}

	c.metrics.RecordHistogram("apify.dataset.items", float64(len(items)), nil)

	return items, nil
}

// RunSync starts a run and returns its dataset in a single call, for
// actors fast enough to finish within the HTTP timeout.
func (c *Client) RunSync(ctx context.Context, actorID string, input *ActorInput) ([]Item, error) {
	url := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.cfg.BaseURL, actorID)

	body, err := c.do(ctx, http.MethodPost, url, input)
	if err != nil {
		return nil, fmt.Errorf("run-sync for actor %s: %w", actorID, err)
	}

	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode run-sync items: %w", err)
	}

	return items, nil
}

// do executes a request with retries on 5xx and transport errors.
func (c *Client) do(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("User-Agent", c.userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil && resp.StatusCode < 500 {
			break // Success or client error (no retry needed)
		}

		if resp != nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			resp = nil
		}
		c.metrics.IncrementCounter("apify.request.retries", nil)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
