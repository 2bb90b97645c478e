package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/vmihailenco/msgpack/v5"

	"dms_sales/internal/domain/value"
)

var boltBucket = []byte("deal_idempotency") //nolint:gochecknoglobals

type boltRecord struct {
	DealID    string    `msgpack:"deal_id"`
	ExpiresAt time.Time `msgpack:"expires_at"`
}

// BoltStore переживает рестарт процесса без внешнего Redis.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

func NewBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Update: %w", err)
	}

	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *BoltStore) Reserve(_ context.Context, key string, id value.DealID) (value.DealID, bool, error) {
	existing := id
	reserved := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		now := s.now()

		if raw := b.Get([]byte(key)); raw != nil {
			var rec boltRecord
			if err := msgpack.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("msgpack.Unmarshal: %w", err)
			}

			if now.Before(rec.ExpiresAt) {
				parsed, err := value.ParseDealID(rec.DealID)
				if err != nil {
					return err
				}

				existing = parsed
				return nil
			}
		}

		data, err := msgpack.Marshal(boltRecord{DealID: id.String(), ExpiresAt: now.Add(s.ttl)})
		if err != nil {
			return fmt.Errorf("msgpack.Marshal: %w", err)
		}

		reserved = true

		return b.Put([]byte(key), data)
	})
	if err != nil {
		return value.DealID{}, false, fmt.Errorf("bolt.Update: %w", err)
	}

	return existing, reserved, nil
}

func (s *BoltStore) Release(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
