package farm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository persists farmer profiles.
type ProfileRepository interface {
	Upsert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
	Delete(ctx context.Context, userID string) error
}

type pgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &pgProfileRepository{pool: pool}
}

func (r *pgProfileRepository) Upsert(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, name, village, district, state, pincode, lat, lon, language, land_acres, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name, village = EXCLUDED.village,
			district = EXCLUDED.district, state = EXCLUDED.state,
			pincode = EXCLUDED.pincode, lat = EXCLUDED.lat, lon = EXCLUDED.lon,
			language = EXCLUDED.language, land_acres = EXCLUDED.land_acres,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Name, p.Village, p.District, p.State, p.Pincode,
		p.Lat, p.Lon, p.Language, p.LandAcres, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

func (r *pgProfileRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, name, village, district, state, pincode, lat, lon, language, land_acres, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.Name, &p.Village, &p.District, &p.State, &p.Pincode,
		&p.Lat, &p.Lon, &p.Language, &p.LandAcres, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return p, nil
}

func (r *pgProfileRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
