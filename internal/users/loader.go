package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/userapi"
	"golang.org/x/sync/singleflight"
)

// CacheKey is the durable cache entry holding the last good user listing.
const CacheKey = "users:v1"

const cacheOpTimeout = 2 * time.Second

// RemoteSource is the network side of the loader.
type RemoteSource interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
}

// Result is what a load resolved to. Users is never nil.
type Result struct {
	State domain.LoadState `json:"state"`
	Users []domain.User    `json:"users"`
}

// Loader serves the user listing network-first, falling back to the last
// successfully fetched listing kept in a durable cache.
type Loader struct {
	remote RemoteSource
	cache  cache.KVStore
	logger *slog.Logger

	mu       sync.Mutex
	seq      uint64 // last issued load
	current  Result
	watchers map[*Watcher]struct{}

	sfg singleflight.Group
}

func NewLoader(remote RemoteSource, kv cache.KVStore, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		remote:   remote,
		cache:    kv,
		logger:   logger.With("component", "users.loader"),
		current:  Result{State: domain.LoadStateEmpty, Users: []domain.User{}},
		watchers: make(map[*Watcher]struct{}),
	}
}

// Load fetches the listing from the network and refreshes the cache, or
// falls back to the cached listing when the fetch fails. It never returns an
// error: every failure resolves to StaleFallback or Empty.
//
// Overlapping loads are allowed. Only the most recently started one is
// applied to Current, the cache and watchers; an older one that resolves
// later still returns its own Result to its caller.
func (l *Loader) Load(ctx context.Context) Result {
	seq := l.begin()

	res := l.fetch(ctx, seq)

	l.finish(seq, res)
	return res
}

// Current returns the last applied state.
func (l *Loader) Current() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func (l *Loader) begin() uint64 {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.current = Result{State: domain.LoadStateLoading, Users: l.current.Users}
	res, ws := l.current, l.watchersLocked()
	l.mu.Unlock()

	notify(ws, res)
	return seq
}

func (l *Loader) finish(seq uint64, res Result) {
	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		l.logger.Debug("discarding superseded load", "seq", seq, "state", res.State)
		return
	}
	l.current = res
	ws := l.watchersLocked()
	l.mu.Unlock()

	notify(ws, res)
}

func (l *Loader) isLatest(seq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return seq == l.seq
}

func (l *Loader) fetch(ctx context.Context, seq uint64) Result {
	users, err := l.remote.ListUsers(ctx)
	if err == nil {
		if l.isLatest(seq) {
			l.store(ctx, users)
		}
		return Result{State: domain.LoadStateFresh, Users: users}
	}

	l.logger.WarnContext(ctx, "user listing fetch failed, falling back to cache",
		"kind", errorKind(err), "error", err)

	cached, ok := l.cached(ctx)
	if !ok {
		return Result{State: domain.LoadStateEmpty, Users: []domain.User{}}
	}
	return Result{State: domain.LoadStateStaleFallback, Users: cached}
}

// store overwrites the cached listing. A failed write is logged; the
// freshly fetched users are served regardless.
func (l *Loader) store(ctx context.Context, users []domain.User) {
	data, err := json.Marshal(users)
	if err != nil {
		l.logger.ErrorContext(ctx, "marshal users failed", "error", err)
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := l.cache.Set(cctx, CacheKey, string(data)); err != nil {
		l.logger.ErrorContext(ctx, "cache set error", "error", err)
	}
}

// cached reads the last good listing. The read outlives a cancelled caller
// so a torn-down view still leaves the loader in a terminal state.
func (l *Loader) cached(ctx context.Context) ([]domain.User, bool) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()

	data, err := l.cache.Get(cctx, CacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.logger.ErrorContext(ctx, "cache get error", "error", err)
		}
		return nil, false
	}

	var users []domain.User
	if err := json.Unmarshal([]byte(data), &users); err != nil {
		l.logger.ErrorContext(ctx, "cached users are unreadable", "error", err)
		return nil, false
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, true
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, userapi.ErrNotFound):
		return "not_found"
	case errors.Is(err, userapi.ErrParse):
		return "parse"
	case errors.Is(err, userapi.ErrServer):
		return "server"
	default:
		return "transport"
	}
}

// Watcher receives every applied state change until it is stopped.
type Watcher struct {
	loader *Loader
	fn     func(Result)
	alive  atomic.Bool
}

// Watch registers fn for state changes, typically one per mounted view.
func (l *Loader) Watch(fn func(Result)) *Watcher {
	w := &Watcher{loader: l, fn: fn}
	w.alive.Store(true)

	l.mu.Lock()
	l.watchers[w] = struct{}{}
	l.mu.Unlock()
	return w
}

// Stop detaches the watcher. Loads that complete afterwards do not reach it,
// even if they were started on its behalf.
func (w *Watcher) Stop() {
	w.alive.Store(false)

	w.loader.mu.Lock()
	delete(w.loader.watchers, w)
	w.loader.mu.Unlock()
}

func (l *Loader) watchersLocked() []*Watcher {
	ws := make([]*Watcher, 0, len(l.watchers))
	for w := range l.watchers {
		ws = append(ws, w)
	}
	return ws
}

func notify(ws []*Watcher, res Result) {
	for _, w := range ws {
		if w.alive.Load() {
			w.fn(res)
		}
	}
}
