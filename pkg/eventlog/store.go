package eventlog

import (
	"context"
	"time"
)

// Record is one durable event: the append-only copy every published
// event gets before any transient delivery is attempted
type Record struct {
	ID           string    `json:"id"`
	EventType    string    `json:"event_type"`
	EventData    string    `json:"event_data"`
	RestaurantID string    `json:"restaurant_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the durable event log interface. Implementations must keep
// Append safe to call under transient storage errors; callers log a
// failed append and move on rather than retrying.
type Store interface {
	// Append stores a record. A zero ID and CreatedAt are stamped by
	// the implementation.
	Append(ctx context.Context, rec *Record) error

	// List returns a restaurant's records created after since, in
	// creation order, at most limit records. This is the replay path
	// for consumers that lost the live channel.
	List(ctx context.Context, restaurantID string, since time.Time, limit int) ([]*Record, error)

	// Prune removes records created before the cutoff and reports how
	// many were removed
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// Close releases the store
	Close() error
}
