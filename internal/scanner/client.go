// Package scanner submits reviews to the violation classifier webhook and
// persists its findings.
package scanner

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
	"reviewmonitor/internal/domain/entity"
)

// Classifier turns a set of reviews into per-review findings.
type Classifier interface {
	Classify(ctx context.Context, reviews []*entity.Review) (map[string][]entity.Finding, error)
}

// WebhookClient calls the external classifier webhook. A non-2xx status,
// an empty body, and an undecodable body all count as retryable failures.
type WebhookClient struct {
	httpClient *http.Client
	cfg        *config.ClassifierConfig
	logger     ports.Logger
	metrics    ports.Metrics
}

// NewWebhookClient creates the classifier client from configuration.
func NewWebhookClient(cfg *config.ClassifierConfig, obs ports.Observability) (*WebhookClient, error) {
	logger, metrics, err := obs.ComponentsScoped("client.classifier")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &WebhookClient{
		httpClient: &http.Client{},
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

type classifyRequest struct {
	Reviews []classifyReview `json:"reviews"`
}

type classifyReview struct {
	ReviewID string `json:"review_id"`
	ASIN     string `json:"asin"`
	Title    string `json:"title,omitempty"`
	Body     string `json:"body"`
	Rating   int    `json:"rating"`
}

// Classify submits the reviews and decodes the findings, retrying transient
// failures with exponential backoff. After the attempt budget is spent the
// last error is returned.
func (c *WebhookClient) Classify(ctx context.Context, reviews []*entity.Review) (map[string][]entity.Finding, error) {
	payload := classifyRequest{Reviews: make([]classifyReview, 0, len(reviews))}
	submitted := make([]string, 0, len(reviews))
	for _, r := range reviews {
		submitted = append(submitted, r.ReviewID)
		payload.Reviews = append(payload.Reviews, classifyReview{
			ReviewID: r.ReviewID,
			ASIN:     r.ASIN,
			Title:    r.Title,
			Body:     r.Body,
			Rating:   r.Rating,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			// 1x, 2x, 4x ... of the base delay
			backoff := c.cfg.BaseDelay * time.Duration(1<<(attempt-2))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		findings, err := c.post(ctx, body, submitted)
		if err == nil {
			c.metrics.IncrementCounter("classifier.requests.success", nil)
			return findings, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		c.logger.Warn("Classifier attempt failed",
			"attempt", attempt,
			"max_attempts", c.cfg.MaxAttempts,
			"error", err)
		c.metrics.IncrementCounter("classifier.requests.retries", nil)
	}

	c.metrics.IncrementCounter("classifier.requests.exhausted", nil)
	return nil, fmt.Errorf("classifier failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *WebhookClient) post(ctx context.Context, body []byte, submitted []string) (map[string][]entity.Finding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, fmt.Errorf("classifier returned empty body")
	}

	return decodeEnvelope(respBody, submitted)
}
