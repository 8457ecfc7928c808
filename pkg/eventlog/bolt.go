package eventlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// BoltStore implements Store on an embedded BoltDB file. It backs the
// zero-configuration development mode and tests; production deployments
// use PostgresStore so the log and the transport share one database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the embedded event log
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "dishpatch.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// eventKey orders records by creation time; the record id breaks ties
// between events from the same nanosecond
func eventKey(createdAt time.Time, id string) []byte {
	key := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(createdAt.UnixNano()))
	return append(key, id...)
}

// Append stores a record
func (s *BoltStore) Append(_ context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(eventKey(rec.CreatedAt, rec.ID), data)
	})
}

// List returns a restaurant's records after since, in creation order
func (s *BoltStore) List(_ context.Context, restaurantID string, since time.Time, limit int) ([]*Record, error) {
	var records []*Record

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()

		// A zero (or pre-epoch) since cannot be encoded as a key; scan
		// from the first record instead
		var k, v []byte
		if since.After(time.Unix(0, 0)) {
			k, v = c.Seek(eventKey(since, ""))
		} else {
			k, v = c.First()
		}

		for ; k != nil; k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.RestaurantID != restaurantID || !rec.CreatedAt.After(since) {
				continue
			}
			records = append(records, &rec)
			if limit > 0 && len(records) >= limit {
				return nil
			}
		}
		return nil
	})
	return records, err
}

// Prune deletes records created before the cutoff
func (s *BoltStore) Prune(_ context.Context, olderThan time.Time) (int, error) {
	cutoff := eventKey(olderThan, "")
	pruned := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, _ := c.First(); k != nil && string(k) < string(cutoff); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			pruned++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune event records: %w", err)
	}
	return pruned, nil
}

// Ping verifies the database file is usable
func (s *BoltStore) Ping(_ context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketEvents) == nil {
			return fmt.Errorf("events bucket missing")
		}
		return nil
	})
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
