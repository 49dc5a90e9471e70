package handler

import (
	"context"
	"errors"
	"fmt"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/domain/entity"
	"reviewmonitor/internal/scanner"
	"reviewmonitor/internal/scraper"
	"reviewmonitor/internal/workqueue"
)

// Request type vocabulary accepted by the dispatcher.
const (
	TypeScrapeStart          = "scrape.start"
	TypeScrapeStatus         = "scrape.status"
	TypeQueueEnqueue         = "queue.enqueue"
	TypeQueueStatus          = "queue.status"
	TypeQueueRetryFailed     = "queue.retry_failed"
	TypeQueueClear           = "queue.clear"
	TypeScanStart            = "scan.start"
	TypeScanStop             = "scan.stop"
	TypeScanStatus           = "scan.status"
	TypeViolationOverride    = "violation.override"
	TypeViolationActiveCount = "violation.active_count"
)

// Dispatcher routes requests to the orchestrator, queue manager, and scan
// pipeline.
type Dispatcher struct {
	orchestrator *scraper.Orchestrator
	queue        *workqueue.Manager
	pipeline     *scanner.Pipeline
	logger       ports.Logger
}

// NewDispatcher wires the dispatcher over the monitor's components.
func NewDispatcher(
	orchestrator *scraper.Orchestrator,
	queue *workqueue.Manager,
	pipeline *scanner.Pipeline,
	obs ports.Observability,
) (*Dispatcher, error) {
	logger, err := obs.LoggerScoped("handler.dispatcher")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &Dispatcher{
		orchestrator: orchestrator,
		queue:        queue,
		pipeline:     pipeline,
		logger:       logger,
	}, nil
}

// Dispatch routes one request by its type.
func (d *Dispatcher) Dispatch(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	switch req.Type {
	case TypeScrapeStart:
		return d.scrapeStart(ctx, req)
	case TypeScrapeStatus:
		return d.scrapeStatus(ctx, req)
	case TypeQueueEnqueue:
		return d.queueEnqueue(ctx, req)
	case TypeQueueStatus:
		return d.queueStatus(ctx, req)
	case TypeQueueRetryFailed:
		return okResponse(map[string]int{"requeued": d.queue.RetryFailed()})
	case TypeQueueClear:
		return okResponse(map[string]int{"cleared": d.queue.ClearFinished()})
	case TypeScanStart:
		return d.scanStart(ctx, req)
	case TypeScanStop:
		return d.scanStop(ctx, req)
	case TypeScanStatus:
		return d.scanStatus(ctx, req)
	case TypeViolationOverride:
		return d.violationOverride(ctx, req)
	case TypeViolationActiveCount:
		return d.violationActiveCount(ctx, req)
	default:
		return errResponse("UNKNOWN_TYPE",
			fmt.Sprintf("unknown request type %q", req.Type), "", false), nil
	}
}

type scrapeStartPayload struct {
	Kind    string   `json:"kind"`
	Targets []string `json:"targets"`
}

func (d *Dispatcher) scrapeStart(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload scrapeStartPayload
	if err := req.Unmarshal(&payload); err != nil {
		return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
	}

	kind := entity.ScrapeKind(payload.Kind)
	if kind != entity.ScrapeKindProduct && kind != entity.ScrapeKindReview {
		return errResponse("VALIDATION_ERROR",
			fmt.Sprintf("kind must be %q or %q", entity.ScrapeKindProduct, entity.ScrapeKindReview),
			"", false), nil
	}
	if len(payload.Targets) == 0 {
		return errResponse("VALIDATION_ERROR", "at least one target is required", "", false), nil
	}

	runID, err := d.orchestrator.StartScraping(ctx, kind, payload.Targets)
	if err != nil {
		return errResponse("SCRAPE_START_FAILED", "failed to start scrape", err.Error(), true), nil
	}
	return okResponse(map[string]string{"run_id": runID})
}

func (d *Dispatcher) scrapeStatus(_ context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload struct {
		RunID string `json:"run_id"`
	}
	if len(req.Payload) > 0 {
		if err := req.Unmarshal(&payload); err != nil {
			return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
		}
	}

	if payload.RunID == "" {
		return okResponse(map[string]interface{}{"tasks": d.orchestrator.Tasks()})
	}

	task, ok := d.orchestrator.Task(payload.RunID)
	if !ok {
		return errResponse("NOT_FOUND",
			fmt.Sprintf("no task for run %q", payload.RunID), "", false), nil
	}
	return okResponse(task)
}

type enqueuePayload struct {
	ASIN     string `json:"asin"`
	Kind     string `json:"kind"`
	Priority int    `json:"priority"`
}

func (d *Dispatcher) queueEnqueue(_ context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload enqueuePayload
	if err := req.Unmarshal(&payload); err != nil {
		return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
	}

	kind := entity.ScrapeKind(payload.Kind)
	if kind == "" {
		kind = entity.ScrapeKindProduct
	}

	itemID, err := d.queue.Enqueue(payload.ASIN, kind, payload.Priority)
	if err != nil {
		return errResponse("VALIDATION_ERROR", "failed to enqueue", err.Error(), false), nil
	}
	return okResponse(map[string]string{"item_id": itemID})
}

func (d *Dispatcher) queueStatus(_ context.Context, _ ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	return okResponse(map[string]interface{}{
		"items": d.queue.Snapshot(),
		"stats": d.queue.Stats(),
	})
}

func (d *Dispatcher) scanStart(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload struct {
		ASIN string `json:"asin"`
	}
	if err := req.Unmarshal(&payload); err != nil {
		return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
	}

	scanID, err := d.pipeline.StartScan(ctx, payload.ASIN)
	if err != nil {
		return errResponse("VALIDATION_ERROR", "failed to start scan", err.Error(), false), nil
	}
	return okResponse(map[string]string{"scan_id": scanID})
}

func (d *Dispatcher) scanStop(_ context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload struct {
		ScanID string `json:"scan_id"`
	}
	if err := req.Unmarshal(&payload); err != nil {
		return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
	}

	if err := d.pipeline.StopScan(payload.ScanID); err != nil {
		if errors.Is(err, scanner.ErrScanNotFound) {
			return errResponse("NOT_FOUND",
				fmt.Sprintf("no scan %q", payload.ScanID), "", false), nil
		}
		return errResponse("SCAN_STOP_FAILED", "failed to stop scan", err.Error(), false), nil
	}
	return okResponse(map[string]string{"scan_id": payload.ScanID, "status": "stopping"})
}

func (d *Dispatcher) scanStatus(_ context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload struct {
		ScanID string `json:"scan_id"`
	}
	if len(req.Payload) > 0 {
		if err := req.Unmarshal(&payload); err != nil {
			return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
		}
	}

	if payload.ScanID == "" {
		return okResponse(map[string]interface{}{"scans": d.pipeline.Scans()})
	}

	scan, err := d.pipeline.ScanStatus(payload.ScanID)
	if err != nil {
		return errResponse("NOT_FOUND",
			fmt.Sprintf("no scan %q", payload.ScanID), "", false), nil
	}
	return okResponse(scan)
}

type overridePayload struct {
	ViolationID int64  `json:"violation_id"`
	By          string `json:"by"`
}

func (d *Dispatcher) violationOverride(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload overridePayload
	if err := req.Unmarshal(&payload); err != nil {
		return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
	}
	if payload.ViolationID == 0 {
		return errResponse("VALIDATION_ERROR", "violation_id is required", "", false), nil
	}

	if err := d.pipeline.Override(ctx, payload.ViolationID, payload.By); err != nil {
		return errResponse("OVERRIDE_FAILED", "failed to override violation", err.Error(), true), nil
	}
	return okResponse(map[string]interface{}{"violation_id": payload.ViolationID, "overridden": true})
}

func (d *Dispatcher) violationActiveCount(ctx context.Context, req ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	var payload struct {
		ASIN string `json:"asin"`
	}
	if err := req.Unmarshal(&payload); err != nil {
		return errResponse("INVALID_PAYLOAD", "failed to parse payload", err.Error(), false), nil
	}
	if payload.ASIN == "" {
		return errResponse("VALIDATION_ERROR", "asin is required", "", false), nil
	}

	count, err := d.pipeline.ActiveCount(ctx, payload.ASIN)
	if err != nil {
		return errResponse("COUNT_FAILED", "failed to count active violations", err.Error(), true), nil
	}
	return okResponse(map[string]interface{}{"asin": payload.ASIN, "active_violations": count})
}
