package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/domain/entity"
)

type historyRepository struct {
	baseRepository
}

func newHistoryRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *historyRepository {
	return &historyRepository{newBaseRepository(db, logger, metrics, "product_history")}
}

// Append inserts one snapshot row. The table is append-only; the history
// trigger does the same on product changes, this path covers
// application-driven captures.
func (r *historyRepository) Append(ctx context.Context, snapshot *entity.ProductHistory) error {
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now().UTC()
	}

	query := r.qb.Insert(r.table).
		Columns("asin", "price", "rating", "review_count",
			"best_sellers_rank", "violation_count", "captured_at").
		Values(snapshot.ASIN, snapshot.Price, snapshot.Rating, snapshot.ReviewCount,
			snapshot.BestSellersRank, snapshot.ViolationCount, snapshot.CapturedAt).
		Suffix("RETURNING id")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	r.countOp("append")
	row := r.db.QueryRow(ctx, sqlQuery, args...)
	if err := row.Scan(&snapshot.ID); err != nil {
		r.countError("append")
		return fmt.Errorf("append history for %s: %w", snapshot.ASIN, err)
	}

	return nil
}

func (r *historyRepository) ListByASIN(ctx context.Context, asin string, limit int) ([]*entity.ProductHistory, error) {
	query := r.qb.Select("*").From(r.table).
		Where(squirrel.Eq{"asin": asin}).
		OrderBy("captured_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var snapshots []entity.ProductHistory
	if err := r.db.Select(ctx, &snapshots, sqlQuery, args...); err != nil {
		r.countError("list")
		return nil, fmt.Errorf("list history for %s: %w", asin, err)
	}

	result := make([]*entity.ProductHistory, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}
