package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/cache"
)

const kvPrefix = "credential:"

// KVStore keeps credentials in a cache.KVStore under their own namespace.
// Meant for local development; values are stored as-is.
type KVStore struct {
	kv cache.KVStore
}

func NewKVStore(kv cache.KVStore) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, kvPrefix+key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get credential %q: %w", key, err)
	}
	return v, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, kvPrefix+key, value); err != nil {
		return fmt.Errorf("set credential %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, kvPrefix+key); err != nil {
		return fmt.Errorf("delete credential %q: %w", key, err)
	}
	return nil
}
