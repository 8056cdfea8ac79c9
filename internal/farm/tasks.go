package farm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository persists farm tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	List(ctx context.Context, userID string, includeCompleted bool) ([]Task, error)
	Get(ctx context.Context, id uuid.UUID, userID string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	ListOverdue(ctx context.Context, userID string, asOf time.Time) ([]Task, error)
}

type pgTaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &pgTaskRepository{pool: pool}
}

func (r *pgTaskRepository) Create(ctx context.Context, t *Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, user_id, title, details, due_at, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.Title, t.Details, t.DueAt, t.Completed, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) List(ctx context.Context, userID string, includeCompleted bool) ([]Task, error) {
	query := `
		SELECT id, user_id, title, details, due_at, completed, created_at, updated_at
		FROM tasks WHERE user_id = $1`
	if !includeCompleted {
		query += ` AND completed = FALSE`
	}
	query += ` ORDER BY due_at NULLS LAST, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *pgTaskRepository) Get(ctx context.Context, id uuid.UUID, userID string) (*Task, error) {
	t := &Task{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, details, due_at, completed, created_at, updated_at
		FROM tasks WHERE id = $1 AND user_id = $2`, id, userID).Scan(
		&t.ID, &t.UserID, &t.Title, &t.Details, &t.DueAt, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

func (r *pgTaskRepository) Update(ctx context.Context, t *Task) error {
	t.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET title = $3, details = $4, due_at = $5, completed = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2`,
		t.ID, t.UserID, t.Title, t.Details, t.DueAt, t.Completed, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgTaskRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgTaskRepository) ListOverdue(ctx context.Context, userID string, asOf time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, details, due_at, completed, created_at, updated_at
		FROM tasks WHERE user_id = $1 AND completed = FALSE AND due_at IS NOT NULL AND due_at < $2
		ORDER BY due_at`, userID, asOf)
	if err != nil {
		return nil, fmt.Errorf("listing overdue tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Details, &t.DueAt,
			&t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
