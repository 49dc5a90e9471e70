package handler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"reviewmonitor/internal/application/ports"
)

// RecoveryMiddleware converts panics into error responses. Outermost layer.
func RecoveryMiddleware(logger ports.Logger, metrics ports.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (resp ports.RuntimeResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered",
						"request_id", req.ID,
						"type", req.Type,
						"panic", fmt.Sprintf("%v", r),
						"stack", string(debug.Stack()))
					metrics.IncrementCounter("handler.panics", nil)

					resp = errResponse("INTERNAL_ERROR", "an internal error occurred", "", false)
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()

			return next(ctx, req)
		}
	}
}

// LoggingMiddleware logs request lifecycle with timing.
func LoggingMiddleware(logger ports.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			logger.Info("Processing request",
				"request_id", req.ID,
				"type", req.Type,
				"source", req.Source)

			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			switch {
			case err != nil:
				logger.Error("Request failed",
					"request_id", req.ID,
					"type", req.Type,
					"duration_ms", duration.Milliseconds(),
					"error", err)
			case !resp.Success:
				code := ""
				if resp.Error != nil {
					code = resp.Error.Code
				}
				logger.Warn("Request unsuccessful",
					"request_id", req.ID,
					"type", req.Type,
					"error_code", code,
					"duration_ms", duration.Milliseconds())
			default:
				logger.Info("Request completed",
					"request_id", req.ID,
					"type", req.Type,
					"duration_ms", duration.Milliseconds())
			}

			return resp, err
		}
	}
}

// MetricsMiddleware records request counts and duration per request type.
func MetricsMiddleware(metrics ports.Metrics) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			tags := map[string]string{"type": req.Type}
			metrics.IncrementCounter("handler.requests", tags)

			start := time.Now()
			resp, err := next(ctx, req)

			metrics.RecordHistogram("handler.request_duration", time.Since(start).Seconds(), tags)
			if err != nil || !resp.Success {
				metrics.IncrementCounter("handler.errors", tags)
			}

			return resp, err
		}
	}
}

// TimeoutMiddleware bounds request processing time.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
			if timeout <= 0 {
				return next(ctx, req)
			}

			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp ports.RuntimeResponse
				err  error
			}
			resultChan := make(chan result, 1)

			go func() {
				resp, err := next(timeoutCtx, req)
				resultChan <- result{resp, err}
			}()

			select {
			case res := <-resultChan:
				return res.resp, res.err
			case <-timeoutCtx.Done():
				return errResponse("TIMEOUT", "request processing timed out",
					fmt.Sprintf("exceeded timeout of %v", timeout), true), timeoutCtx.Err()
			}
		}
	}
}
