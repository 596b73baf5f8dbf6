package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// ErrUserUnavailable means the user is neither in the cached listing nor
// retrievable from the network.
var ErrUserUnavailable = errors.New("user unavailable")

const lookupTimeout = 15 * time.Second

// Lookup returns a single user. The cached listing is checked first and a
// hit is served without touching the network; a miss costs exactly one
// network request, shared between concurrent lookups of the same id.
func (l *Loader) Lookup(ctx context.Context, id int64) (domain.User, error) {
	if users, ok := l.cached(ctx); ok {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
	}

	v, err, _ := l.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		// the flight is shared, so it must not die with the first caller
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return l.remote.GetUser(fctx, id)
	})
	if err != nil {
		l.logger.WarnContext(ctx, "user lookup failed", "user_id", id, "kind", errorKind(err), "error", err)
		return domain.User{}, fmt.Errorf("%w: user %d: %w", ErrUserUnavailable, id, err)
	}

	return v.(domain.User), nil
}
