package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/application/ports/mocks"
)

func TestRecoveryMiddlewareConvertsPanic(t *testing.T) {
	mw := RecoveryMiddleware(&mocks.NoopLogger{}, mocks.NewRecordingMetrics())
	wrapped := mw(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		panic("boom")
	})

	resp, err := wrapped(context.Background(), ports.RuntimeRequest{ID: "req-1", Type: "scan.start"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

func TestTimeoutMiddlewareCutsOffSlowHandlers(t *testing.T) {
	mw := TimeoutMiddleware(20 * time.Millisecond)
	wrapped := mw(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		select {
		case <-time.After(time.Second):
			return ports.RuntimeResponse{Success: true}, nil
		case <-ctx.Done():
			return ports.RuntimeResponse{}, ctx.Err()
		}
	})

	resp, err := wrapped(context.Background(), ports.RuntimeRequest{Type: "scan.start"})

	require.Error(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TIMEOUT", resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
}

func TestTimeoutMiddlewarePassesFastHandlers(t *testing.T) {
	mw := TimeoutMiddleware(time.Second)
	wrapped := mw(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		return ports.RuntimeResponse{Success: true}, nil
	})

	resp, err := wrapped(context.Background(), ports.RuntimeRequest{Type: "scan.start"})

	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestTimeoutMiddlewareDisabledWhenZero(t *testing.T) {
	mw := TimeoutMiddleware(0)
	wrapped := mw(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return ports.RuntimeResponse{Success: true}, nil
	})

	_, err := wrapped(context.Background(), ports.RuntimeRequest{})
	require.NoError(t, err)
}

func TestMetricsMiddlewareCountsErrors(t *testing.T) {
	metrics := mocks.NewRecordingMetrics()
	mw := MetricsMiddleware(metrics)

	okHandler := mw(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		return ports.RuntimeResponse{Success: true}, nil
	})
	failHandler := mw(func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
		return ports.RuntimeResponse{}, fmt.Errorf("broken")
	})

	okHandler(context.Background(), ports.RuntimeRequest{Type: "queue.status"})
	failHandler(context.Background(), ports.RuntimeRequest{Type: "queue.status"})

	assert.Equal(t, 2, metrics.Count("handler.requests"))
	assert.Equal(t, 1, metrics.Count("handler.errors"))
}
