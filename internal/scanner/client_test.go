package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/application/ports/mocks"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
)

func newTestClient(t *testing.T, url string) *WebhookClient {
	t.Helper()
	client, err := NewWebhookClient(&config.ClassifierConfig{
		WebhookURL:  url,
		MaxAttempts: 3,
		BaseDelay:   5 * time.Millisecond,
	}, mocks.NewNoopObservability())
	require.NoError(t, err)
	return client
}

func testReviews() []*entity.Review {
	return []*entity.Review{
		{ReviewID: "R1", ASIN: "B000TEST01", Body: "terrible product", Rating: 1},
	}
}

func TestClassifyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"violations": [{"review_id": "R1", "type": "Spam", "severity": "Low", "recommended_action": "Keep"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	findings, err := client.Classify(context.Background(), testReviews())

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, findings["R1"], 1)
}

func TestClassifyEmptyBodyIsRetryable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusOK) // empty body
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Classify(context.Background(), testReviews())

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClassifyParseFailureIsRetryable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`not json`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Classify(context.Background(), testReviews())

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClassifyAttributesIDLessFindingsToSoleReview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"violations": [{"type": "Policy Violation", "severity": "High", "recommended_action": "Remove", "details": "review contains seller contact info"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	findings, err := client.Classify(context.Background(), testReviews())

	require.NoError(t, err)
	require.Len(t, findings["R1"], 1)
	assert.Equal(t, "Policy Violation", findings["R1"][0].Type)
	assert.Equal(t, entity.ActionRemove, findings["R1"][0].Action)
}

func TestClassifyBackoffDoublesPerAttempt(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewWebhookClient(&config.ClassifierConfig{
		WebhookURL:  server.URL,
		MaxAttempts: 3,
		BaseDelay:   40 * time.Millisecond,
	}, mocks.NewNoopObservability())
	require.NoError(t, err)

	_, err = client.Classify(context.Background(), testReviews())
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 3)
	// base * 2^(n-1): 40ms before the second attempt, 80ms before the third
	assert.GreaterOrEqual(t, hits[1].Sub(hits[0]), 40*time.Millisecond)
	assert.GreaterOrEqual(t, hits[2].Sub(hits[1]), 80*time.Millisecond)
}

func TestClassifyExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Classify(context.Background(), testReviews())

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestClassifySendsReviewPayload(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Classify(context.Background(), testReviews())

	require.NoError(t, err)
	assert.Contains(t, string(gotBody), `"review_id":"R1"`)
	assert.Contains(t, string(gotBody), `"terrible product"`)
}
