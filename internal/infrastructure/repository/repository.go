package repository

import (
	"fmt"

	"reviewmonitor/internal/application/ports"
)

type registry struct {
	products   *productRepository
	reviews    *reviewRepository
	violations *violationRepository
	history    *historyRepository
}

// NewRegistry wires all repositories over the given database connection.
func NewRegistry(db ports.Database, obs ports.Observability) (ports.Repositories, error) {
	logger, metrics, err := obs.ComponentsScoped("repository")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &registry{
		products:   newProductRepository(db, logger, metrics),
		reviews:    newReviewRepository(db, logger, metrics),
		violations: newViolationRepository(db, logger, metrics),
		history:    newHistoryRepository(db, logger, metrics),
	}, nil
}

func (r *registry) Products() ports.ProductRepository     { return r.products }
func (r *registry) Reviews() ports.ReviewRepository       { return r.reviews }
func (r *registry) Violations() ports.ViolationRepository { return r.violations }
func (r *registry) History() ports.HistoryRepository      { return r.history }
