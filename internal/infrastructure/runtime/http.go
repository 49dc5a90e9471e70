// Package runtime hosts the platform adapters that feed requests into the
// handler chain.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

type httpRuntime struct {
	handler ports.Handler
	logger  ports.Logger
	metrics ports.Metrics
	config  *config.HTTPConfig
	server  *http.Server
}

// NewHTTPRuntime creates an HTTP POST server runtime.
func NewHTTPRuntime(cfg *config.HTTPConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	logger, metrics, err := obs.ComponentsScoped("runtime.http")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("failed to create runtime: handler is required")
	}

	return &httpRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

func (rt *httpRuntime) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.handleRequest)

	rt.server = &http.Server{
		Addr:         rt.config.Addr,
		Handler:      mux,
		ReadTimeout:  rt.config.Timeout,
		WriteTimeout: rt.config.Timeout,
	}

	rt.logger.Info("Starting HTTP runtime", "address", rt.config.Addr)
	rt.metrics.IncrementCounter("http.starts", nil)

	if err := rt.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

func (rt *httpRuntime) Stop(ctx context.Context) error {
	if rt.server == nil {
		return nil
	}
	rt.logger.Info("Shutting down HTTP server")
	return rt.server.Shutdown(ctx)
}

func (rt *httpRuntime) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rt.metrics.IncrementCounter("http.method_not_allowed", nil)
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method not allowed. Only POST is supported.", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	rt.metrics.IncrementCounter("http.requests", nil)

	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		rt.badRequest(w, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	var req ports.RuntimeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		rt.badRequest(w, fmt.Errorf("invalid JSON payload: %w", err))
		return
	}
	rt.enrichRequest(&req, r)

	ctx := r.Context()
	if rt.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.config.Timeout)
		defer cancel()
	}

	resp, err := rt.handler.Handle(ctx, req)
	rt.sendResponse(w, resp, err)

	rt.metrics.RecordHistogram("http.request_duration",
		float64(time.Since(start).Milliseconds()), nil)
}

func (rt *httpRuntime) enrichRequest(req *ports.RuntimeRequest, httpReq *http.Request) {
	if req.ID == "" {
		req.ID = fmt.Sprintf("http-%d", time.Now().UnixNano())
	}
	if req.Source == "" {
		req.Source = "http"
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	if req.Metadata == nil {
		req.Metadata = make(map[string]string)
	}
	req.Metadata["http_method"] = httpReq.Method
	req.Metadata["http_path"] = httpReq.URL.Path
	req.Metadata["http_remote_addr"] = httpReq.RemoteAddr
}

func (rt *httpRuntime) sendResponse(w http.ResponseWriter, resp ports.RuntimeResponse, err error) {
	w.Header().Set("Content-Type", "application/json")

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		errResp := ports.RuntimeResponse{
			Success: false,
			Error:   &ports.ErrorInfo{Code: "INTERNAL_ERROR", Message: err.Error()},
		}
		if encErr := json.NewEncoder(w).Encode(errResp); encErr != nil {
			rt.logger.Error("Failed to encode error response", "error", encErr)
		}
		return
	}

	statusCode := http.StatusOK
	if !resp.Success {
		statusCode = http.StatusUnprocessableEntity
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		rt.logger.Error("Failed to encode response", "error", err)
	}
}

func (rt *httpRuntime) badRequest(w http.ResponseWriter, err error) {
	rt.logger.Error("Bad request", "error", err)
	rt.metrics.IncrementCounter("http.bad_request", nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	resp := ports.RuntimeResponse{
		Success: false,
		Error:   &ports.ErrorInfo{Code: "BAD_REQUEST", Message: err.Error()},
	}
	json.NewEncoder(w).Encode(resp)
}
