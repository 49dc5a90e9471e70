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

type violationRepository struct {
	baseRepository
}

func newViolationRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *violationRepository {
	return &violationRepository{newBaseRepository(db, logger, metrics, "review_violations")}
}

func (r *violationRepository) Create(ctx context.Context, violation *entity.ReviewViolation) error {
	if violation.ScannedAt.IsZero() {
		violation.ScannedAt = time.Now().UTC()
	}

	// asin is filled by trigger from the referenced review when empty
	query := r.qb.Insert(r.table).
		Columns("review_id", "asin", "findings", "scanned_at", "overridden").
		Values(violation.ReviewID, violation.ASIN, violation.Findings,
			violation.ScannedAt, violation.Overridden).
		Suffix("RETURNING id")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	r.countOp("create")
	row := r.db.QueryRow(ctx, sqlQuery, args...)
	if err := row.Scan(&violation.ID); err != nil {
		r.countError("create")
		return fmt.Errorf("create violation for review %s: %w", violation.ReviewID, err)
	}

	return nil
}

func (r *violationRepository) Get(ctx context.Context, id int64) (*entity.ReviewViolation, error) {
	query := r.qb.Select("*").From(r.table).Where(squirrel.Eq{"id": id})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var violation entity.ReviewViolation
	err = r.db.Get(ctx, &violation, sqlQuery, args...)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("violation %d not found", id)
	}
	if err != nil {
		r.countError("get")
		return nil, fmt.Errorf("get violation: %w", err)
	}

	return &violation, nil
}

func (r *violationRepository) ListByASIN(ctx context.Context, asin string) ([]*entity.ReviewViolation, error) {
	query := r.qb.Select("*").From(r.table).
		Where(squirrel.Eq{"asin": asin}).
		OrderBy("scanned_at DESC")

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var violations []entity.ReviewViolation
	if err := r.db.Select(ctx, &violations, sqlQuery, args...); err != nil {
		r.countError("list")
		return nil, fmt.Errorf("list violations for %s: %w", asin, err)
	}

	result := make([]*entity.ReviewViolation, len(violations))
	for i := range violations {
		result[i] = &violations[i]
	}
	return result, nil
}

// Override soft-dismisses a violation. The row is kept for audit; only the
// override fields change.
func (r *violationRepository) Override(ctx context.Context, id int64, by string) error {
	query := r.qb.Update(r.table).
		Set("overridden", true).
		Set("overridden_by", by).
		Set("overridden_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	r.countOp("override")
	result, err := r.db.Execute(ctx, sqlQuery, args...)
	if err != nil {
		r.countError("override")
		return fmt.Errorf("override violation %d: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("violation %d not found", id)
	}

	return nil
}

// CountActiveByASIN counts violations for a product, excluding overridden ones.
func (r *violationRepository) CountActiveByASIN(ctx context.Context, asin string) (int64, error) {
	query := r.qb.Select("COUNT(*)").From(r.table).
		Where(squirrel.Eq{"asin": asin, "overridden": false})

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	if err := r.db.Get(ctx, &count, sqlQuery, args...); err != nil {
		r.countError("count_active")
		return 0, fmt.Errorf("count active violations for %s: %w", asin, err)
	}

	return count, nil
}
