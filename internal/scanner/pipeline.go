package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
	"reviewmonitor/internal/domain/entity"
)

// Scan outcome vocabulary.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusStopped   ScanStatus = "stopped"
	ScanStatusFailed    ScanStatus = "failed"
	ScanStatusTimeout   ScanStatus = "timeout"
)

// Scan is the point-in-time state of one violation scan.
type Scan struct {
	ID              string     `json:"id"`
	ASIN            string     `json:"asin"`
	Status          ScanStatus `json:"status"`
	Progress        int        `json:"progress"`
	Scanned         int        `json:"scanned"`
	Skipped         int        `json:"skipped"`
	ViolationsFound int        `json:"violations_found"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

type scanState struct {
	Scan
	stop atomic.Bool
}

// ErrScanNotFound is returned for operations on an unknown scan id.
var ErrScanNotFound = errors.New("scan not found")

// Pipeline runs violation scans over the stored reviews of a product.
// Scans are in-memory and constructor-owned; they do not survive a restart.
type Pipeline struct {
	classifier Classifier
	repos      ports.Repositories
	cfg        *config.ClassifierConfig
	logger     ports.Logger
	metrics    ports.Metrics

	mu    sync.RWMutex
	scans map[string]*scanState
}

// NewPipeline wires the scan pipeline.
func NewPipeline(classifier Classifier, repos ports.Repositories, cfg *config.ClassifierConfig, obs ports.Observability) (*Pipeline, error) {
	logger, metrics, err := obs.ComponentsScoped("scanner.pipeline")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &Pipeline{
		classifier: classifier,
		repos:      repos,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		scans:      make(map[string]*scanState),
	}, nil
}

// StartScan begins scanning the product's reviews in the background and
// returns the scan id.
func (p *Pipeline) StartScan(ctx context.Context, asin string) (string, error) {
	if asin == "" {
		return "", fmt.Errorf("asin is required")
	}

	state := &scanState{Scan: Scan{
		ID:        uuid.NewString(),
		ASIN:      asin,
		Status:    ScanStatusRunning,
		StartedAt: time.Now().UTC(),
	}}

	p.mu.Lock()
	p.scans[state.ID] = state
	p.mu.Unlock()

	p.logger.Info("Scan started", "scan_id", state.ID, "asin", asin)
	p.metrics.IncrementCounter("scanner.scans.started", nil)

	go p.run(context.Background(), state)

	return state.ID, nil
}

// StopScan raises the stop flag; the scan finishes its current batch and
// reports a stopped outcome.
func (p *Pipeline) StopScan(scanID string) error {
	p.mu.RLock()
	state, ok := p.scans[scanID]
	p.mu.RUnlock()
	if !ok {
		return ErrScanNotFound
	}

	state.stop.Store(true)
	p.logger.Info("Scan stop requested", "scan_id", scanID)
	return nil
}

// ScanStatus returns a copy of the scan state.
func (p *Pipeline) ScanStatus(scanID string) (Scan, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, ok := p.scans[scanID]
	if !ok {
		return Scan{}, ErrScanNotFound
	}
	return state.Scan, nil
}

// Scans returns copies of all tracked scans.
func (p *Pipeline) Scans() []Scan {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Scan, 0, len(p.scans))
	for _, s := range p.scans {
		out = append(out, s.Scan)
	}
	return out
}

// Override soft-dismisses a violation; the row stays for audit and stops
// counting toward active totals.
func (p *Pipeline) Override(ctx context.Context, violationID int64, by string) error {
	if by == "" {
		return fmt.Errorf("override identity is required")
	}
	if err := p.repos.Violations().Override(ctx, violationID, by); err != nil {
		return fmt.Errorf("override violation %d: %w", violationID, err)
	}

	p.logger.Info("Violation overridden", "violation_id", violationID, "by", by)
	p.metrics.IncrementCounter("scanner.violations.overridden", nil)
	return nil
}

// ActiveCount counts non-overridden violations for a product.
func (p *Pipeline) ActiveCount(ctx context.Context, asin string) (int64, error) {
	return p.repos.Violations().CountActiveByASIN(ctx, asin)
}

func (p *Pipeline) run(ctx context.Context, state *scanState) {
	reviews, err := p.repos.Reviews().ListByASIN(ctx, state.ASIN)
	if err != nil {
		p.finish(state, ScanStatusFailed, fmt.Sprintf("load reviews: %v", err))
		return
	}

	scannable := make([]*entity.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Scannable() {
			scannable = append(scannable, r)
		} else {
			p.setState(state, func(s *Scan) { s.Skipped++ })
		}
	}

	if len(scannable) == 0 {
		p.setState(state, func(s *Scan) { s.Progress = 100 })
		p.finish(state, ScanStatusCompleted, "")
		return
	}

	if p.cfg.SingleShot {
		p.runSingleShot(ctx, state, scannable)
		return
	}
	p.runBatched(ctx, state, scannable)
}

// runBatched sends fixed-size batches strictly in sequence, pausing between
// batches and honoring the stop flag at each batch boundary.
func (p *Pipeline) runBatched(ctx context.Context, state *scanState, reviews []*entity.Review) {
	total := len(reviews)

	for offset := 0; offset < total; offset += p.cfg.BatchSize {
		if state.stop.Load() {
			p.finish(state, ScanStatusStopped, "")
			return
		}

		end := offset + p.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := reviews[offset:end]

		findings, err := p.classifier.Classify(ctx, batch)
		if err != nil {
			p.finish(state, ScanStatusFailed, err.Error())
			return
		}

		p.persist(ctx, state, batch, findings)
		p.setState(state, func(s *Scan) {
			s.Scanned += len(batch)
			s.Progress = s.Scanned * 100 / total
		})

		if end < total {
			select {
			case <-time.After(p.cfg.BatchDelay):
			case <-ctx.Done():
				p.finish(state, ScanStatusFailed, ctx.Err().Error())
				return
			}
		}
	}

	p.recordHistory(ctx, state.ASIN)
	p.finish(state, ScanStatusCompleted, "")
}

// recordHistory appends a trend snapshot with the post-scan violation
// count. Best-effort.
func (p *Pipeline) recordHistory(ctx context.Context, asin string) {
	product, err := p.repos.Products().GetByASIN(ctx, asin)
	if err != nil || product == nil {
		return
	}
	active, err := p.repos.Violations().CountActiveByASIN(ctx, asin)
	if err != nil {
		return
	}

	rating := product.RatingData.Average
	count := product.RatingData.Count
	snapshot := &entity.ProductHistory{
		ASIN:           asin,
		Price:          product.Price,
		Rating:         &rating,
		ReviewCount:    &count,
		ViolationCount: int(active),
		CapturedAt:     time.Now().UTC(),
	}
	if len(product.BestSellers) > 0 {
		rank := product.BestSellers[0].Rank
		snapshot.BestSellersRank = &rank
	}

	if err := p.repos.History().Append(ctx, snapshot); err != nil {
		p.logger.Warn("Failed to append history snapshot", "asin", asin, "error", err)
	}
}

// runSingleShot submits the whole set in one request under a wall-clock
// deadline, animating progress while the request is in flight.
func (p *Pipeline) runSingleShot(ctx context.Context, state *scanState, reviews []*entity.Review) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScanTimeout)
	defer cancel()

	done := make(chan struct{})
	go p.simulateProgress(ctx, state, done)

	findings, err := p.classifier.Classify(ctx, reviews)
	close(done)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.finish(state, ScanStatusTimeout, fmt.Sprintf("no response within %s", p.cfg.ScanTimeout))
			return
		}
		p.finish(state, ScanStatusFailed, err.Error())
		return
	}

	p.persist(ctx, state, reviews, findings)
	p.setState(state, func(s *Scan) {
		s.Scanned = len(reviews)
		s.Progress = 100
	})
	p.recordHistory(ctx, state.ASIN)
	p.finish(state, ScanStatusCompleted, "")
}

// simulateProgress advances the bar toward 95 while waiting on the single
// request; real completion takes it to 100.
func (p *Pipeline) simulateProgress(ctx context.Context, state *scanState, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.setState(state, func(s *Scan) {
				if s.Progress < 95 {
					s.Progress += 5
				}
			})
		}
	}
}

// persist writes one violation row per review that produced findings.
// Persistence is best-effort: a failed row is logged and the scan continues.
func (p *Pipeline) persist(ctx context.Context, state *scanState, batch []*entity.Review, findings map[string][]entity.Finding) {
	for _, review := range batch {
		found, ok := findings[review.ReviewID]
		if !ok || len(found) == 0 {
			continue
		}

		violation := &entity.ReviewViolation{
			ReviewID:  review.ReviewID,
			ASIN:      review.ASIN,
			Findings:  p.applyTaxonomy(found),
			ScannedAt: time.Now().UTC(),
		}
		if err := p.repos.Violations().Create(ctx, violation); err != nil {
			p.logger.Warn("Failed to persist violation",
				"scan_id", state.ID,
				"review_id", review.ReviewID,
				"error", err)
			p.metrics.IncrementCounter("scanner.violations.persist_errors", nil)
			continue
		}

		p.setState(state, func(s *Scan) { s.ViolationsFound++ })
		p.metrics.IncrementCounter("scanner.violations.found", nil)
	}
}

// applyTaxonomy maps findings onto the configured taxonomy mode. Collapsed
// mode forces a single violation type and keeps the original under category.
func (p *Pipeline) applyTaxonomy(findings []entity.Finding) entity.Findings {
	out := make(entity.Findings, len(findings))
	copy(out, findings)

	if p.cfg.Taxonomy != config.TaxonomyCollapsed {
		return out
	}
	for i := range out {
		if out[i].Category == "" {
			out[i].Category = out[i].Type
		}
		out[i].Type = entity.CollapsedViolationType
	}
	return out
}

func (p *Pipeline) setState(state *scanState, fn func(*Scan)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&state.Scan)
}

func (p *Pipeline) finish(state *scanState, status ScanStatus, errMsg string) {
	now := time.Now().UTC()
	p.setState(state, func(s *Scan) {
		s.Status = status
		s.Error = errMsg
		s.CompletedAt = &now
		if status == ScanStatusCompleted {
			s.Progress = 100
		}
	})

	p.logger.Info("Scan finished",
		"scan_id", state.ID,
		"asin", state.ASIN,
		"status", status)
	p.metrics.IncrementCounter("scanner.scans.finished", map[string]string{"status": string(status)})
}
