// Package credential stores opaque secrets such as auth tokens behind a
// small get/set/delete contract.
package credential

import (
	"context"
	"errors"
)

// TokenKey is the entry the token endpoints read and write.
const TokenKey = "auth_token_demo_v1"

var ErrNotFound = errors.New("credential not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete succeeds when the key does not exist.
	Delete(ctx context.Context, key string) error
}
