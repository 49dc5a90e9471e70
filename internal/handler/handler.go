// Package handler dispatches runtime requests to the monitor's components
// through a middleware chain.
package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

// HandlerFunc processes one request.
type HandlerFunc func(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error)

// Middleware wraps a HandlerFunc with cross-cutting behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Handler is the assembled chain exposed to runtime adapters.
type Handler struct {
	chain HandlerFunc
}

// New builds the handler: dispatcher innermost, then metrics, logging,
// timeout, recovery outermost. Middlewares apply in reverse so the first
// listed wraps everything after it.
func New(dispatcher *Dispatcher, cfg *config.Config, obs ports.Observability) (*Handler, error) {
	logger, metrics, err := obs.ComponentsScoped("handler")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	chain := dispatcher.Dispatch

	middlewares := []Middleware{
		RecoveryMiddleware(logger, metrics),
		TimeoutMiddleware(cfg.HTTP.Timeout),
		LoggingMiddleware(logger),
		MetricsMiddleware(metrics),
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i](chain)
	}

	return &Handler{chain: chain}, nil
}

func (h *Handler) Handle(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	return h.chain(ctx, req)
}

func okResponse(data interface{}) (ports.RuntimeResponse, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return errResponse("ENCODE_ERROR", "failed to encode response data", err.Error(), false), nil
	}
	return ports.RuntimeResponse{Success: true, Data: raw}, nil
}

func errResponse(code, message, details string, retryable bool) ports.RuntimeResponse {
	return ports.RuntimeResponse{
		Success: false,
		Error: &ports.ErrorInfo{
			Code:      code,
			Message:   message,
			Details:   details,
			Retryable: retryable,
		},
	}
}
