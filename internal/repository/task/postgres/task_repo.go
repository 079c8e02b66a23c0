package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dayplanner/internal/logger"
	"dayplanner/internal/models/task"
	repo "dayplanner/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskColumns = `id, owner_id, text, completed, date, priority, notes, created_at`

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, maxConns, minConns int) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse connection config", err)
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

// NewWithPool wraps an existing pool, used when the account repository
// shares the same database.
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: closed all PostgreSQL connections")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Insert stores a new task and returns the row as the store confirmed it,
// including the store-assigned id and created_at.
func (s *Storage) Insert(ctx context.Context, t *task.Task) (*task.Task, error) {
	start := time.Now()

	query := `INSERT INTO tasks (owner_id, text, completed, date, priority, notes)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING ` + taskColumns

	inserted, err := scanTask(s.pool.QueryRow(ctx, query,
		t.OwnerID,
		t.Text,
		t.Completed,
		t.Date,
		t.Priority,
		t.Notes,
	))
	if err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("inserting task: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return inserted, nil
}

// Update writes every mutable field and returns the confirmed row.
func (s *Storage) Update(ctx context.Context, t *task.Task) (*task.Task, error) {
	start := time.Now()

	query := `UPDATE tasks
			SET text = $1,
				completed = $2,
				date = $3,
				priority = $4,
				notes = $5
			WHERE id = $6 AND owner_id = $7
			RETURNING ` + taskColumns

	updated, err := scanTask(s.pool.QueryRow(ctx, query,
		t.Text,
		t.Completed,
		t.Date,
		t.Priority,
		t.Notes,
		t.ID,
		t.OwnerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Repository: task not found on update",
				zap.String("task_id", t.ID.String()))
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to update task", err)
		return nil, fmt.Errorf("updating task: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return updated, nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("getting task: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return t, nil
}

// ListByOwner returns the owner's full collection, newest first within a date.
func (s *Storage) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks
				WHERE owner_id = $1
				ORDER BY date DESC, created_at DESC`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: failed to scan task row", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return tasks, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// DeleteMany removes the whole id set in one statement. Ids that no longer
// exist are not an error; the bulk clear must not fail halfway.
func (s *Storage) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()

	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = ANY($1)`, ids)
	if err != nil {
		logger.Error("Repository: failed to bulk delete tasks", err,
			zap.Int("count", len(ids)),
			zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("bulk deleting tasks: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Text,
		&t.Completed,
		&t.Date,
		&t.Priority,
		&t.Notes,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
