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

// ErrNotFound is returned by update/delete operations on missing rows.
var ErrNotFound = errors.New("not found")

// CropRepository persists registered crops.
type CropRepository interface {
	Create(ctx context.Context, c *Crop) error
	List(ctx context.Context, userID string) ([]Crop, error)
	Get(ctx context.Context, id uuid.UUID, userID string) (*Crop, error)
	Update(ctx context.Context, c *Crop) error
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type pgCropRepository struct {
	pool *pgxpool.Pool
}

func NewCropRepository(pool *pgxpool.Pool) CropRepository {
	return &pgCropRepository{pool: pool}
}

func (r *pgCropRepository) Create(ctx context.Context, c *Crop) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "planned"
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO crops (id, user_id, name, variety, area_acres, sown_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.Name, c.Variety, c.AreaAcres, c.SownAt, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting crop: %w", err)
	}
	return nil
}

func (r *pgCropRepository) List(ctx context.Context, userID string) ([]Crop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, variety, area_acres, sown_at, status, created_at, updated_at
		FROM crops WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing crops: %w", err)
	}
	defer rows.Close()

	var crops []Crop
	for rows.Next() {
		var c Crop
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Variety, &c.AreaAcres,
			&c.SownAt, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning crop: %w", err)
		}
		crops = append(crops, c)
	}
	return crops, rows.Err()
}

func (r *pgCropRepository) Get(ctx context.Context, id uuid.UUID, userID string) (*Crop, error) {
	c := &Crop{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, variety, area_acres, sown_at, status, created_at, updated_at
		FROM crops WHERE id = $1 AND user_id = $2`, id, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Variety, &c.AreaAcres,
		&c.SownAt, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying crop: %w", err)
	}
	return c, nil
}

func (r *pgCropRepository) Update(ctx context.Context, c *Crop) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE crops SET name = $3, variety = $4, area_acres = $5, sown_at = $6, status = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.Name, c.Variety, c.AreaAcres, c.SownAt, c.Status, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating crop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgCropRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM crops WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting crop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
