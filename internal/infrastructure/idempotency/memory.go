// Package idempotency хранит соответствие ключа идемпотентности и созданной сделки.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"dms_sales/internal/domain/value"
)

// MemoryStore держит ключи в памяти процесса; годится для одного инстанса.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(ttl, 2*ttl)}
}

// Reserve атомарно закрепляет key за id. Если ключ уже занят, возвращает
// закреплённый id и reserved=false.
func (s *MemoryStore) Reserve(_ context.Context, key string, id value.DealID) (value.DealID, bool, error) {
	if err := s.cache.Add(key, id, cache.DefaultExpiration); err == nil {
		return id, true, nil
	}

	existing, found := s.cache.Get(key)
	if !found {
		// Ключ истёк между Add и Get.
		if err := s.cache.Add(key, id, cache.DefaultExpiration); err != nil {
			return value.DealID{}, false, fmt.Errorf("cache.Add: %w", err)
		}
		return id, true, nil
	}

	existingID, ok := existing.(value.DealID)
	if !ok {
		return value.DealID{}, false, fmt.Errorf("unexpected cached value %T", existing)
	}

	return existingID, false, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
