package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/config"
)

const connectTimeout = 5 * time.Second

// postgresDB wraps an sqlx pool and instruments every operation with a
// duration histogram and success/error counters.
type postgresDB struct {
	conn    *sqlx.DB
	logger  ports.Logger
	metrics ports.Metrics
}

// NewPostgresAdapter opens the connection pool and verifies it with a ping
// before handing it out. Scrapes write product and review rows through this
// adapter, so a dead connection should fail startup, not the first batch.
func NewPostgresAdapter(cfg *config.DatabaseConfig, obs ports.Observability) (ports.Database, error) {
	logger, metrics, err := obs.ComponentsScoped("database.postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_open_conns", cfg.MaxOpenConns)
	metrics.IncrementCounter("database.connection.success", map[string]string{"type": "postgres"})

	return &postgresDB{conn: conn, logger: logger, metrics: metrics}, nil
}

// observe returns a closure that records the operation's duration and
// outcome once the call finishes.
func (d *postgresDB) observe(op string) func(error) {
	start := time.Now()
	return func(err error) {
		d.metrics.RecordHistogram(
			fmt.Sprintf("database.%s.duration_ms", op),
			float64(time.Since(start).Milliseconds()), nil)
		if err != nil {
			d.metrics.IncrementCounter(fmt.Sprintf("database.%s.errors", op), nil)
		} else {
			d.metrics.IncrementCounter(fmt.Sprintf("database.%s.success", op), nil)
		}
	}
}

func (d *postgresDB) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	done := d.observe("execute")
	result, err := d.conn.ExecContext(ctx, query, args...)
	done(err)
	if err != nil {
		d.logger.Error("Statement failed", "error", err)
		return nil, err
	}
	return result, nil
}

func (d *postgresDB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	done := d.observe("query")
	rows, err := d.conn.QueryContext(ctx, query, args...)
	done(err)
	if err != nil {
		d.logger.Error("Query failed", "error", err)
		return nil, err
	}
	return rows, nil
}

func (d *postgresDB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	done := d.observe("query_row")
	row := d.conn.QueryRowContext(ctx, query, args...)
	done(nil)
	return row
}

func (d *postgresDB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := d.observe("get")
	err := d.conn.GetContext(ctx, dest, query, args...)
	done(err)
	// sql.ErrNoRows is a caller concern, not a failure worth logging
	if err != nil && err != sql.ErrNoRows {
		d.logger.Error("Get failed", "error", err, "query", query)
	}
	return err
}

func (d *postgresDB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	done := d.observe("select")
	err := d.conn.SelectContext(ctx, dest, query, args...)
	done(err)
	if err != nil {
		d.logger.Error("Select failed", "error", err, "query", query)
	}
	return err
}

// Transaction runs fn inside a transaction, committing on nil and rolling
// back on error or panic. Panics are re-raised after the rollback.
func (d *postgresDB) Transaction(ctx context.Context, fn func(tx ports.Transaction) error) error {
	done := d.observe("transaction")

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&postgresTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("Rollback failed", "error", rbErr)
		}
		done(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		done(err)
		return fmt.Errorf("commit transaction: %w", err)
	}

	done(nil)
	return nil
}

func (d *postgresDB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *postgresDB) Close() error {
	d.logger.Info("Closing database connection pool")
	return d.conn.Close()
}

// postgresTx exposes the subset of operations repositories may run inside
// a transaction. Commit and Rollback satisfy the port but the enclosing
// Transaction call owns the lifecycle.
type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *postgresTx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *postgresTx) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *postgresTx) Commit() error   { return t.tx.Commit() }
func (t *postgresTx) Rollback() error { return t.tx.Rollback() }
