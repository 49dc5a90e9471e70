// Package scraper drives external scraping runs to completion and
// materializes their results into the store.
package scraper

import (
	"context"
	"fmt"
	"time"

	"reviewmonitor/internal/apify"
	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
)

// API is the slice of the actor-run client the orchestrator needs.
type API interface {
	StartRun(ctx context.Context, actorID string, input *apify.ActorInput) (*apify.Run, error)
	GetRun(ctx context.Context, actorID, runID string) (*apify.Run, error)
	DatasetItems(ctx context.Context, runID string) ([]apify.Item, error)
	RunSync(ctx context.Context, actorID string, input *apify.ActorInput) ([]apify.Item, error)
}

// Orchestrator starts scraping runs, polls them under a supervised budget,
// and upserts results. Explicitly constructed; holds its tasks in an owned
// registry rather than module-level state.
type Orchestrator struct {
	api     API
	repos   ports.Repositories
	archive ports.Storage
	events  ports.Queue
	cfg     *config.Config
	tasks   *taskRegistry
	logger  ports.Logger
	metrics ports.Metrics

	// onProductIngested chains a review scrape after product ingestion
	// when Scraper.ChainReviews is enabled. Wired by the caller.
	onProductIngested func(asin string)
}

// NewOrchestrator wires the orchestrator. archive and events may be nil
// when snapshot archiving or event publishing is not configured.
func NewOrchestrator(
	api API,
	repos ports.Repositories,
	archive ports.Storage,
	events ports.Queue,
	cfg *config.Config,
	obs ports.Observability,
) (*Orchestrator, error) {
	logger, metrics, err := obs.ComponentsScoped("scraper.orchestrator")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &Orchestrator{
		api:     api,
		repos:   repos,
		archive: archive,
		events:  events,
		cfg:     cfg,
		tasks:   newTaskRegistry(),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// OnProductIngested registers the chaining hook.
func (o *Orchestrator) OnProductIngested(fn func(asin string)) {
	o.onProductIngested = fn
}

// Task returns a point-in-time copy of a tracked task.
func (o *Orchestrator) Task(runID string) (entity.ScrapeTask, bool) {
	return o.tasks.get(runID)
}

// Tasks returns copies of all tracked tasks.
func (o *Orchestrator) Tasks() []entity.ScrapeTask {
	return o.tasks.snapshot()
}

// StartScraping submits the targets and monitors the run in the background.
// It returns the provider run id; submission failures propagate to the caller.
func (o *Orchestrator) StartScraping(ctx context.Context, kind entity.ScrapeKind, targets []string) (string, error) {
	run, err := o.begin(ctx, kind, targets)
	if err != nil {
		return "", err
	}

	go func() {
		// The monitor outlives the request that started it; its budget
		// comes from the poll deadline, not the caller's context.
		monitorCtx, cancel := context.WithTimeout(context.Background(), o.cfg.Apify.MaxPollDuration)
		defer cancel()

		if err := o.monitor(monitorCtx, kind, run.ID); err != nil {
			o.logger.Error("Scrape run failed", "run_id", run.ID, "error", err)
		}
	}()

	return run.ID, nil
}

// Execute submits the targets and blocks until the run reaches a terminal
// state. Used by the queue manager so worker slots stay occupied for the
// whole run.
func (o *Orchestrator) Execute(ctx context.Context, kind entity.ScrapeKind, targets []string) error {
	if o.cfg.Apify.UseRunSync {
		return o.executeSync(ctx, kind, targets)
	}

	run, err := o.begin(ctx, kind, targets)
	if err != nil {
		return err
	}
	return o.monitor(ctx, kind, run.ID)
}

// begin submits the run and registers a pending task.
func (o *Orchestrator) begin(ctx context.Context, kind entity.ScrapeKind, targets []string) (*apify.Run, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets given")
	}

	run, err := o.api.StartRun(ctx, o.actorFor(kind), o.buildInput(kind, targets))
	if err != nil {
		o.metrics.IncrementCounter("scraper.start.errors", map[string]string{"kind": string(kind)})
		return nil, fmt.Errorf("start %s scrape: %w", kind, err)
	}

	o.tasks.add(&entity.ScrapeTask{
		RunID:     run.ID,
		Kind:      kind,
		Targets:   targets,
		Status:    entity.TaskStatusPending,
		StartedAt: time.Now().UTC(),
	})

	o.logger.Info("Scrape task created",
		"run_id", run.ID,
		"kind", kind,
		"targets", len(targets))
	o.metrics.IncrementCounter("scraper.tasks.started", map[string]string{"kind": string(kind)})

	return run, nil
}

// executeSync uses the single-call run variant: results come back directly
// without a separate poll.
func (o *Orchestrator) executeSync(ctx context.Context, kind entity.ScrapeKind, targets []string) error {
	items, err := o.api.RunSync(ctx, o.actorFor(kind), o.buildInput(kind, targets))
	if err != nil {
		return fmt.Errorf("run-sync %s scrape: %w", kind, err)
	}

	runID := fmt.Sprintf("sync-%d", time.Now().UnixNano())
	o.tasks.add(&entity.ScrapeTask{
		RunID:     runID,
		Kind:      kind,
		Targets:   targets,
		Status:    entity.TaskStatusProcessing,
		StartedAt: time.Now().UTC(),
	})

	if err := o.ingest(ctx, kind, runID, items); err != nil {
		o.tasks.setFailed(runID, err.Error())
		return err
	}

	o.tasks.setStatus(runID, entity.TaskStatusCompleted, 100)
	return nil
}

// monitor polls the run until it reaches a terminal state, bounded by both
// an attempt ceiling and the context deadline.
func (o *Orchestrator) monitor(ctx context.Context, kind entity.ScrapeKind, runID string) error {
	ticker := time.NewTicker(o.cfg.Apify.PollInterval)
	defer ticker.Stop()

	actorID := o.actorFor(kind)

	for attempt := 1; attempt <= o.cfg.Apify.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			o.tasks.setFailed(runID, "poll budget exceeded: "+ctx.Err().Error())
			o.metrics.IncrementCounter("scraper.poll.deadline_exceeded", nil)
			return fmt.Errorf("monitor run %s: %w", runID, ctx.Err())
		case <-ticker.C:
		}

		run, err := o.api.GetRun(ctx, actorID, runID)
		if err != nil {
			// Transient poll errors consume an attempt but don't fail the task
			o.logger.Warn("Poll attempt failed", "run_id", runID, "attempt", attempt, "error", err)
			continue
		}

		switch run.Status {
		case apify.RunStatusSucceeded:
			items, err := o.api.DatasetItems(ctx, runID)
			if err != nil {
				o.tasks.setFailed(runID, err.Error())
				return fmt.Errorf("fetch results for run %s: %w", runID, err)
			}
			if err := o.ingest(ctx, kind, runID, items); err != nil {
				o.tasks.setFailed(runID, err.Error())
				return err
			}
			o.tasks.setStatus(runID, entity.TaskStatusCompleted, 100)
			o.publishEvent(ctx, "scrape.completed", kind, runID, len(items))
			return nil

		case apify.RunStatusFailed:
			o.tasks.setFailed(runID, "provider reported run failure")
			o.metrics.IncrementCounter("scraper.runs.failed", map[string]string{"kind": string(kind)})
			o.publishEvent(ctx, "scrape.failed", kind, runID, 0)
			return fmt.Errorf("run %s failed at provider", runID)

		case apify.RunStatusRunning, apify.RunStatusReady:
			o.tasks.setStatus(runID, entity.TaskStatusProcessing, int(run.Progress))

		default:
			o.logger.Warn("Unknown run status", "run_id", runID, "status", run.Status)
		}
	}

	o.tasks.setFailed(runID, fmt.Sprintf("no terminal state after %d poll attempts", o.cfg.Apify.MaxPollAttempts))
	o.metrics.IncrementCounter("scraper.poll.attempts_exhausted", nil)
	return fmt.Errorf("monitor run %s: poll attempts exhausted", runID)
}

func (o *Orchestrator) actorFor(kind entity.ScrapeKind) string {
	if kind == entity.ScrapeKindReview {
		return o.cfg.Apify.ReviewActorID
	}
	return o.cfg.Apify.ProductActorID
}

func (o *Orchestrator) buildInput(kind entity.ScrapeKind, targets []string) *apify.ActorInput {
	input := &apify.ActorInput{
		ASINs:   targets,
		Country: o.cfg.Apify.Country,
		Proxy:   &apify.Proxy{UseApifyProxy: true},
	}
	if kind == entity.ScrapeKindReview {
		input.MaxReviews = o.cfg.Apify.MaxReviews
		input.SortBy = "recent"
	}
	return input
}

func (o *Orchestrator) publishEvent(ctx context.Context, eventType string, kind entity.ScrapeKind, runID string, items int) {
	if o.events == nil {
		return
	}

	err := o.events.Publish(ctx, &ports.QueueMessage{
		Target: o.cfg.Queue.Queues.Events,
		Body: map[string]interface{}{
			"type":   eventType,
			"kind":   kind,
			"run_id": runID,
			"items":  items,
			"at":     time.Now().UTC(),
		},
	})
	if err != nil {
		// Events are advisory; a publish failure never fails the task
		o.logger.Warn("Failed to publish event", "type", eventType, "run_id", runID, "error", err)
	}
}
