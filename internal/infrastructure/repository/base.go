package repository

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"reviewmonitor/internal/application/ports"
)

type baseRepository struct {
	db      ports.Database
	logger  ports.Logger
	metrics ports.Metrics
	table   string
	qb      squirrel.StatementBuilderType
}

func newBaseRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics, table string) baseRepository {
	return baseRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		table:   table,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *baseRepository) countOp(op string) {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.%s", r.table, op), nil)
}

func (r *baseRepository) countError(op string) {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.errors", r.table),
		map[string]string{"operation": op})
}
