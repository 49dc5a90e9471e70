package ports

import (
	"context"
	"encoding/json"
	"time"
)

// RuntimeRequest is one operation request delivered by a runtime adapter.
type RuntimeRequest struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp time.Time         `json:"timestamp"`
}

func (r *RuntimeRequest) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

// ErrorInfo carries a structured error across the runtime boundary.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

type RuntimeResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// Handler processes requests through middleware chains
type Handler interface {
	Handle(ctx context.Context, req RuntimeRequest) (RuntimeResponse, error)
}

// Runtime is a platform-specific adapter driving the handler
type Runtime interface {
	Start() error
	Stop(ctx context.Context) error
}
