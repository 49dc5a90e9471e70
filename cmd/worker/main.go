package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewmonitor/internal/apify"
	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
	"reviewmonitor/internal/handler"
	"reviewmonitor/internal/infrastructure/database"
	"reviewmonitor/internal/infrastructure/observability"
	"reviewmonitor/internal/infrastructure/queue"
	"reviewmonitor/internal/infrastructure/repository"
	"reviewmonitor/internal/infrastructure/runtime"
	"reviewmonitor/internal/infrastructure/storage"
	"reviewmonitor/internal/scanner"
	"reviewmonitor/internal/scraper"
	"reviewmonitor/internal/workqueue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	obs, err := observability.CreateObservability(cfg)
	if err != nil {
		log.Fatalf("Failed to create observability: %v", err)
	}

	logger, metrics, err := obs.ComponentsScoped("main")
	if err != nil {
		log.Fatalf("Failed to get observability components: %v", err)
	}

	logger.Info("Starting review monitor",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment)
	metrics.IncrementCounter("application.starts", nil)

	app, err := buildApplication(cfg, obs)
	if err != nil {
		logger.Error("Failed to build application", "error", err)
		log.Fatalf("Failed to build application: %v", err)
	}
	defer app.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.queue.Start(ctx)
	defer app.queue.Stop()

	go handleShutdown(cancel, app, logger)

	logger.Info("Starting runtime", "adapter", cfg.Adapters.Runtime)
	if err := app.runtime.Start(); err != nil {
		logger.Error("Runtime exited with error", "error", err)
		log.Fatalf("Runtime failed: %v", err)
	}
}

// application holds the assembled component graph.
type application struct {
	db       ports.Database
	events   ports.Queue
	queue    *workqueue.Manager
	runtime  ports.Runtime
	pipeline *scanner.Pipeline
}

func buildApplication(cfg *config.Config, obs ports.Observability) (*application, error) {
	db, err := database.Create(cfg, obs)
	if err != nil {
		return nil, err
	}

	repos, err := repository.NewRegistry(db, obs)
	if err != nil {
		return nil, err
	}

	archive, err := storage.Create(cfg, obs)
	if err != nil {
		return nil, err
	}

	events, err := queue.Create(cfg, obs)
	if err != nil {
		return nil, err
	}

	apifyClient, err := apify.NewClient(&cfg.Apify, &cfg.HTTP, obs)
	if err != nil {
		return nil, err
	}

	orchestrator, err := scraper.NewOrchestrator(apifyClient, repos, archive, events, cfg, obs)
	if err != nil {
		return nil, err
	}

	queueManager, err := workqueue.NewManager(orchestrator, &cfg.WorkQueue, obs)
	if err != nil {
		return nil, err
	}

	// Product ingestion feeds review scrapes back through the queue so
	// chained work competes for slots like any other item.
	if cfg.Scraper.ChainReviews {
		chainLogger, err := obs.LoggerScoped("chain")
		if err != nil {
			return nil, err
		}
		orchestrator.OnProductIngested(chainReviewScrapes(queueManager.Enqueue, chainLogger))
	}

	classifier, err := scanner.NewWebhookClient(&cfg.Classifier, obs)
	if err != nil {
		return nil, err
	}

	pipeline, err := scanner.NewPipeline(classifier, repos, &cfg.Classifier, obs)
	if err != nil {
		return nil, err
	}

	dispatcher, err := handler.NewDispatcher(orchestrator, queueManager, pipeline, obs)
	if err != nil {
		return nil, err
	}

	h, err := handler.New(dispatcher, cfg, obs)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.Create(cfg, h, obs)
	if err != nil {
		return nil, err
	}

	return &application{
		db:       db,
		events:   events,
		queue:    queueManager,
		runtime:  rt,
		pipeline: pipeline,
	}, nil
}

// chainReviewScrapes returns the product ingestion hook that enqueues a
// follow-up review scrape. Enqueue failures are logged, not propagated:
// the hook runs inside the scrape flow and must not fail it.
func chainReviewScrapes(enqueue func(string, entity.ScrapeKind, int) (string, error), logger ports.Logger) func(string) {
	return func(asin string) {
		if _, err := enqueue(asin, entity.ScrapeKindReview, 0); err != nil {
			logger.Warn("Failed to chain review scrape", "asin", asin, "error", err)
		}
	}
}

func (app *application) close() {
	if app.events != nil {
		app.events.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
}

func handleShutdown(cancel context.CancelFunc, app *application, logger ports.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.runtime.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop runtime cleanly", "error", err)
	}
	cancel()
}
