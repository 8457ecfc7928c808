package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS restaurant_events (
	id            UUID PRIMARY KEY,
	event_type    TEXT NOT NULL,
	event_data    TEXT NOT NULL,
	restaurant_id TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS restaurant_events_replay_idx
	ON restaurant_events (restaurant_id, created_at);
CREATE INDEX IF NOT EXISTS restaurant_events_created_idx
	ON restaurant_events (created_at);
`

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the event table
// exists
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure event schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Append stores a record
func (s *PostgresStore) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO restaurant_events (id, event_type, event_data, restaurant_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.EventType, rec.EventData, rec.RestaurantID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event record: %w", err)
	}
	return nil
}

// List returns a restaurant's records after since, in creation order
func (s *PostgresStore) List(ctx context.Context, restaurantID string, since time.Time, limit int) ([]*Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_type, event_data, restaurant_id, created_at
		 FROM restaurant_events
		 WHERE restaurant_id = $1 AND created_at > $2
		 ORDER BY created_at ASC
		 LIMIT $3`,
		restaurantID, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query event records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.EventData, &rec.RestaurantID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Prune deletes records created before the cutoff
func (s *PostgresStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM restaurant_events WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune event records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping verifies the pool is reachable
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
