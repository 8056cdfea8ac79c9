package farm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthLogRepository persists crop health observations.
type HealthLogRepository interface {
	Create(ctx context.Context, h *HealthLog) error
	List(ctx context.Context, userID string, limit int) ([]HealthLog, error)
}

type pgHealthLogRepository struct {
	pool *pgxpool.Pool
}

func NewHealthLogRepository(pool *pgxpool.Pool) HealthLogRepository {
	return &pgHealthLogRepository{pool: pool}
}

func (r *pgHealthLogRepository) Create(ctx context.Context, h *HealthLog) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.CreatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO health_logs (id, user_id, crop_name, symptoms, diagnosis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.UserID, h.CropName, h.Symptoms, h.Diagnosis, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting health log: %w", err)
	}
	return nil
}

func (r *pgHealthLogRepository) List(ctx context.Context, userID string, limit int) ([]HealthLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, crop_name, symptoms, diagnosis, created_at
		FROM health_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing health logs: %w", err)
	}
	defer rows.Close()

	var logs []HealthLog
	for rows.Next() {
		var h HealthLog
		if err := rows.Scan(&h.ID, &h.UserID, &h.CropName, &h.Symptoms, &h.Diagnosis, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning health log: %w", err)
		}
		logs = append(logs, h)
	}
	return logs, rows.Err()
}
