package ports

import (
	"context"

	"reviewmonitor/internal/domain/entity"
)

type ProductRepository interface {
	// Upsert inserts or updates a product keyed on its ASIN
	Upsert(ctx context.Context, product *entity.Product) error
	GetByASIN(ctx context.Context, asin string) (*entity.Product, error)
	UpdateStatus(ctx context.Context, asin string, status entity.ProductStatus) error
	List(ctx context.Context, limit int) ([]*entity.Product, error)
	Count(ctx context.Context) (int64, error)
}

type ReviewRepository interface {
	// Upsert inserts or updates a review keyed on its review id
	Upsert(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, reviewID string) (*entity.Review, error)
	ListByASIN(ctx context.Context, asin string) ([]*entity.Review, error)
	CountByASIN(ctx context.Context, asin string) (int64, error)
}

type ViolationRepository interface {
	Create(ctx context.Context, violation *entity.ReviewViolation) error
	Get(ctx context.Context, id int64) (*entity.ReviewViolation, error)
	ListByASIN(ctx context.Context, asin string) ([]*entity.ReviewViolation, error)
	// Override soft-dismisses a violation, keeping the row for audit
	Override(ctx context.Context, id int64, by string) error
	// CountActiveByASIN counts violations excluding overridden ones
	CountActiveByASIN(ctx context.Context, asin string) (int64, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, snapshot *entity.ProductHistory) error
	ListByASIN(ctx context.Context, asin string, limit int) ([]*entity.ProductHistory, error)
}

type Repositories interface {
	Products() ProductRepository
	Reviews() ReviewRepository
	Violations() ViolationRepository
	History() HistoryRepository
}
