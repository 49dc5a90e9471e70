package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/domain/entity"
)

type productRepository struct {
	baseRepository
}

func newProductRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *productRepository {
	return &productRepository{newBaseRepository(db, logger, metrics, "products")}
}

// Upsert inserts or updates a product keyed on its ASIN. Re-ingesting the
// same result set overwrites identical rows without duplication.
func (r *productRepository) Upsert(ctx context.Context, product *entity.Product) error {
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	query := r.qb.Insert(r.table).
		Columns(
			"asin", "title", "brand", "price", "currency", "availability",
			"images", "categories", "features", "specifications",
			"rating_data", "review_summary", "best_sellers_rank",
			"status", "created_at", "updated_at",
		).
		Values(
			product.ASIN, product.Title, product.Brand, product.Price,
			product.Currency, product.Availability,
			product.Images, product.Categories, product.Features,
			product.Specifications, product.RatingData, product.ReviewSummary,
			product.BestSellers, product.Status, product.CreatedAt, product.UpdatedAt,
		).
		Suffix(`ON CONFLICT (asin) DO UPDATE SET
			title = EXCLUDED.title,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			availability = EXCLUDED.availability,
			images = EXCLUDED.images,
			categories = EXCLUDED.categories,
			features = EXCLUDED.features,
			specifications = EXCLUDED.specifications,
			rating_data = EXCLUDED.rating_data,
			review_summary = EXCLUDED.review_summary,
			best_sellers_rank = EXCLUDED.best_sellers_rank,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	r.countOp("upsert")
	if _, err := r.db.Execute(ctx, sqlQuery, args...); err != nil {
		r.countError("upsert")
		return fmt.Errorf("upsert product %s: %w", product.ASIN, err)
	}

	return nil
}

func (r *productRepository) GetByASIN(ctx context.Context, asin string) (*entity.Product, error) {
	query := r.qb.Select("*").From(r.table).Where(squirrel.Eq{"asin": asin})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var product entity.Product
	err = r.db.Get(ctx, &product, sqlQuery, args...)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s not found", asin)
	}
	if err != nil {
		r.countError("get")
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &product, nil
}

func (r *productRepository) UpdateStatus(ctx context.Context, asin string, status entity.ProductStatus) error {
	query := r.qb.Update(r.table).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"asin": asin})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := r.db.Execute(ctx, sqlQuery, args...)
	if err != nil {
		r.countError("update_status")
		return fmt.Errorf("update product status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("product %s not found", asin)
	}

	return nil
}

func (r *productRepository) List(ctx context.Context, limit int) ([]*entity.Product, error) {
	query := r.qb.Select("*").From(r.table).OrderBy("updated_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []entity.Product
	if err := r.db.Select(ctx, &products, sqlQuery, args...); err != nil {
		r.countError("list")
		return nil, fmt.Errorf("list products: %w", err)
	}

	result := make([]*entity.Product, len(products))
	for i := range products {
		result[i] = &products[i]
	}
	return result, nil
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	query := r.qb.Select("COUNT(*)").From(r.table)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	if err := r.db.Get(ctx, &count, sqlQuery, args...); err != nil {
		r.countError("count")
		return 0, fmt.Errorf("count products: %w", err)
	}

	return count, nil
}
