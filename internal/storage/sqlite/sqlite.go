package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/runx/internal/log"
	"github.com/slok/runx/internal/model"
	"github.com/slok/runx/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// SaveExecution stores the record of one supervised run.
func (r *Repository) SaveExecution(ctx context.Context, e model.Execution) error {
	if e.ID == "" {
		return fmt.Errorf("execution id is required: %w", model.ErrNotValid)
	}

	query := `
		INSERT INTO executions (id, command, shell, exit_code, timed_out, interrupted, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		e.ID,
		e.Command,
		boolToInt(e.Shell),
		e.ExitCode,
		boolToInt(e.TimedOut),
		boolToInt(e.Interrupted),
		e.Duration.Milliseconds(),
		e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("could not insert execution: %w", err)
	}

	r.logger.Debugf("Saved execution in repository: %s", e.ID)
	return nil
}

// GetExecution returns a single execution by ID.
func (r *Repository) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	query := `
		SELECT id, command, shell, exit_code, timed_out, interrupted, duration_ms, created_at
		FROM executions
		WHERE id = ?
	`

	e, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("execution %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get execution: %w", err)
	}

	return e, nil
}

// ListExecutions returns executions, most recent first. limit <= 0 means no
// limit.
func (r *Repository) ListExecutions(ctx context.Context, limit int) ([]model.Execution, error) {
	query := `
		SELECT id, command, shell, exit_code, timed_out, interrupted, duration_ms, created_at
		FROM executions
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list executions: %w", err)
	}
	defer rows.Close()

	executions := []model.Execution{}
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan execution: %w", err)
		}
		executions = append(executions, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate executions: %w", err)
	}

	return executions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (*model.Execution, error) {
	var (
		e          model.Execution
		shell      int
		timedOut   int
		interrupt  int
		durationMS int64
		createdAt  int64
	)

	err := row.Scan(&e.ID, &e.Command, &shell, &e.ExitCode, &timedOut, &interrupt, &durationMS, &createdAt)
	if err != nil {
		return nil, err
	}

	e.Shell = shell != 0
	e.TimedOut = timedOut != 0
	e.Interrupted = interrupt != 0
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
