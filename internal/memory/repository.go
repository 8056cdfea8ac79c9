package memory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Repository defines long-term memory persistence: append-only
// conversation history, preferences, and embedding similarity search.
type Repository interface {
	AppendConversation(ctx context.Context, userID string, entry ConversationEntry, embedding []float32) error
	RecentConversation(ctx context.Context, userID string, limit int) ([]ConversationEntry, error)
	SearchSimilar(ctx context.Context, userID string, embedding []float32, limit int, threshold float64) ([]RecalledTurn, error)
	SetPreference(ctx context.Context, userID, key, value string) error
	Preferences(ctx context.Context, userID string) (map[string]string, error)
}

// PostgresRepository implements Repository using pgx + pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) AppendConversation(ctx context.Context, userID string, entry ConversationEntry, embedding []float32) error {
	if len(embedding) > 0 {
		vec := pgvector.NewVector(embedding)
		_, err := r.pool.Exec(ctx,
			`INSERT INTO conversations (user_id, role, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			userID, entry.Role, entry.Content, vec, entry.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("inserting conversation turn with embedding: %w", err)
		}
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (user_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		userID, entry.Role, entry.Content, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation turn: %w", err)
	}
	return nil
}

// RecentConversation returns the last `limit` turns in chronological order.
func (r *PostgresRepository) RecentConversation(ctx context.Context, userID string, limit int) ([]ConversationEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role, content, created_at FROM conversations
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent conversation: %w", err)
	}
	defer rows.Close()

	var entries []ConversationEntry
	for rows.Next() {
		var e ConversationEntry
		if err := rows.Scan(&e.Role, &e.Content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning conversation turn: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; callers want oldest-first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (r *PostgresRepository) SearchSimilar(ctx context.Context, userID string, embedding []float32, limit int, threshold float64) ([]RecalledTurn, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT role, content, 1 - (embedding <=> $1) AS similarity
		 FROM conversations
		 WHERE user_id = $2 AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		vec, userID, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching similar turns: %w", err)
	}
	defer rows.Close()

	var results []RecalledTurn
	for rows.Next() {
		var t RecalledTurn
		if err := rows.Scan(&t.Role, &t.Content, &t.Similarity); err != nil {
			return nil, fmt.Errorf("scanning recalled turn: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

func (r *PostgresRepository) SetPreference(ctx context.Context, userID, key, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO preferences (user_id, key, value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		userID, key, value,
	)
	if err != nil {
		return fmt.Errorf("upserting preference %q: %w", key, err)
	}
	return nil
}

func (r *PostgresRepository) Preferences(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value FROM preferences WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning preference: %w", err)
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}
