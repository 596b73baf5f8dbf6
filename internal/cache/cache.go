package cache

import (
	"context"
	"errors"
)

// KVStore is a durable string key/value store. Values are opaque to the
// store; callers keep JSON documents in them and overwrite them wholesale.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")
