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

type reviewRepository struct {
	baseRepository
}

func newReviewRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *reviewRepository {
	return &reviewRepository{newBaseRepository(db, logger, metrics, "reviews")}
}

// Upsert inserts or updates a review keyed on its source-provided id.
func (r *reviewRepository) Upsert(ctx context.Context, review *entity.Review) error {
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	query := r.qb.Insert(r.table).
		Columns(
			"review_id", "asin", "title", "body", "rating",
			"author_name", "author_id", "verified",
			"helpful_votes", "total_votes", "review_date",
			"variant", "country", "image_urls",
			"created_at", "updated_at",
		).
		Values(
			review.ReviewID, review.ASIN, review.Title, review.Body, review.Rating,
			review.AuthorName, review.AuthorID, review.Verified,
			review.HelpfulVotes, review.TotalVotes, review.ReviewDate,
			review.Variant, review.Country, review.ImageURLs,
			review.CreatedAt, review.UpdatedAt,
		).
		Suffix(`ON CONFLICT (review_id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			rating = EXCLUDED.rating,
			author_name = EXCLUDED.author_name,
			author_id = EXCLUDED.author_id,
			verified = EXCLUDED.verified,
			helpful_votes = EXCLUDED.helpful_votes,
			total_votes = EXCLUDED.total_votes,
			review_date = EXCLUDED.review_date,
			variant = EXCLUDED.variant,
			country = EXCLUDED.country,
			image_urls = EXCLUDED.image_urls,
			updated_at = EXCLUDED.updated_at`)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	r.countOp("upsert")
	if _, err := r.db.Execute(ctx, sqlQuery, args...); err != nil {
		r.countError("upsert")
		return fmt.Errorf("upsert review %s: %w", review.ReviewID, err)
	}

	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, reviewID string) (*entity.Review, error) {
	query := r.qb.Select("*").From(r.table).Where(squirrel.Eq{"review_id": reviewID})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var review entity.Review
	err = r.db.Get(ctx, &review, sqlQuery, args...)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review %s not found", reviewID)
	}
	if err != nil {
		r.countError("get")
		return nil, fmt.Errorf("get review: %w", err)
	}

	return &review, nil
}

func (r *reviewRepository) ListByASIN(ctx context.Context, asin string) ([]*entity.Review, error) {
	query := r.qb.Select("*").From(r.table).
		Where(squirrel.Eq{"asin": asin}).
		OrderBy("review_date DESC NULLS LAST")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reviews []entity.Review
	if err := r.db.Select(ctx, &reviews, sqlQuery, args...); err != nil {
		r.countError("list")
		return nil, fmt.Errorf("list reviews for %s: %w", asin, err)
	}

	result := make([]*entity.Review, len(reviews))
	for i := range reviews {
		result[i] = &reviews[i]
	}
	return result, nil
}

func (r *reviewRepository) CountByASIN(ctx context.Context, asin string) (int64, error) {
	query := r.qb.Select("COUNT(*)").From(r.table).Where(squirrel.Eq{"asin": asin})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	if err := r.db.Get(ctx, &count, sqlQuery, args...); err != nil {
		r.countError("count")
		return 0, fmt.Errorf("count reviews for %s: %w", asin, err)
	}

	return count, nil
}
