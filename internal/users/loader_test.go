package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/userapi"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRemote struct {
	m         sync.Mutex
	users     []domain.User
	byID      map[int64]domain.User
	err       error
	listCalls int
	getCalls  int
	release   chan struct{} // when set, calls block until it is closed
}

func (m *mockRemote) ListUsers(ctx context.Context) ([]domain.User, error) {
	m.m.Lock()
	m.listCalls++
	users, err, release := m.users, m.err, m.release
	m.m.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (m *mockRemote) GetUser(ctx context.Context, id int64) (domain.User, error) {
	m.m.Lock()
	m.getCalls++
	err, release := m.err, m.release
	u, ok := m.byID[id]
	m.m.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return domain.User{}, fmt.Errorf("%w: %w", userapi.ErrTransport, ctx.Err())
		}
	}
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, userapi.ErrNotFound
	}
	return u, nil
}

func (m *mockRemote) setErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.err = err
}

func (m *mockRemote) calls() (list, get int) {
	m.m.Lock()
	defer m.m.Unlock()
	return m.listCalls, m.getCalls
}

type mockCache struct {
	m      sync.RWMutex
	data   map[string]string
	getErr error
	setErr error
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (m *mockCache) Get(_ context.Context, key string) (string, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(_ context.Context, key, value string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) raw(key string) (string, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

var testUsers = []domain.User{
	{ID: 1, Name: "Leanne Graham", Email: "Sincere@april.biz", Phone: "1-770-736-8031"},
	{ID: 2, Name: "Ervin Howell", Email: "Shanna@melissa.tv", Website: "anastasia.net"},
}

var errOffline = fmt.Errorf("%w: dial tcp: connection refused", userapi.ErrTransport)

func TestLoad_SuccessWritesCache(t *testing.T) {
	remote := &mockRemote{users: testUsers}
	kv := newMockCache()
	loader := NewLoader(remote, kv, nil)

	res := loader.Load(context.Background())

	assert.Equal(t, domain.LoadStateFresh, res.State)
	assert.Equal(t, testUsers, res.Users)
	assert.Equal(t, res, loader.Current())

	raw, ok := kv.raw(CacheKey)
	require.True(t, ok)
	var cached []domain.User
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, testUsers, cached)
}

func TestLoad_FailureFallsBackToCache(t *testing.T) {
	remote := &mockRemote{users: testUsers}
	kv := newMockCache()
	loader := NewLoader(remote, kv, nil)

	require.Equal(t, domain.LoadStateFresh, loader.Load(context.Background()).State)
	before, _ := kv.raw(CacheKey)

	remote.setErr(errOffline)
	res := loader.Load(context.Background())

	assert.Equal(t, domain.LoadStateStaleFallback, res.State)
	assert.Equal(t, testUsers, res.Users)
	assert.True(t, res.State.Offline())

	after, _ := kv.raw(CacheKey)
	assert.Equal(t, before, after, "failed fetch must not touch the cache")
	assert.Equal(t, 1, kv.sets)
}

func TestLoad_FailureWithoutCacheIsEmpty(t *testing.T) {
	for name, err := range map[string]error{
		"transport": errOffline,
		"server":    fmt.Errorf("%w: status 500", userapi.ErrServer),
		"parse":     fmt.Errorf("%w: unexpected EOF", userapi.ErrParse),
	} {
		t.Run(name, func(t *testing.T) {
			loader := NewLoader(&mockRemote{err: err}, newMockCache(), nil)

			res := loader.Load(context.Background())

			assert.Equal(t, domain.LoadStateEmpty, res.State)
			assert.NotNil(t, res.Users)
			assert.Empty(t, res.Users)
			assert.False(t, res.State.Offline())
		})
	}
}

func TestLoad_UnreadableCacheIsEmpty(t *testing.T) {
	kv := newMockCache()
	kv.data[CacheKey] = `[{"id":1,`
	loader := NewLoader(&mockRemote{err: errOffline}, kv, nil)

	res := loader.Load(context.Background())
	assert.Equal(t, domain.LoadStateEmpty, res.State)
	assert.Empty(t, res.Users)
}

func TestLoad_CacheReadErrorIsEmpty(t *testing.T) {
	kv := newMockCache()
	kv.getErr = errors.New("disk on fire")
	loader := NewLoader(&mockRemote{err: errOffline}, kv, nil)

	assert.Equal(t, domain.LoadStateEmpty, loader.Load(context.Background()).State)
}

func TestLoad_CacheWriteErrorStillFresh(t *testing.T) {
	kv := newMockCache()
	kv.setErr = errors.New("read-only filesystem")
	loader := NewLoader(&mockRemote{users: testUsers}, kv, nil)

	res := loader.Load(context.Background())
	assert.Equal(t, domain.LoadStateFresh, res.State)
	assert.Equal(t, testUsers, res.Users)
}

func TestLoad_WatcherLeavesLoadingOnce(t *testing.T) {
	loader := NewLoader(&mockRemote{err: errOffline}, newMockCache(), nil)

	var states []domain.LoadState
	w := loader.Watch(func(r Result) { states = append(states, r.State) })
	defer w.Stop()

	loader.Load(context.Background())
	loader.Load(context.Background())

	assert.Equal(t, []domain.LoadState{
		domain.LoadStateLoading, domain.LoadStateEmpty,
		domain.LoadStateLoading, domain.LoadStateEmpty,
	}, states)
}

func TestLoad_LoadingKeepsPreviousUsers(t *testing.T) {
	remote := &mockRemote{users: testUsers}
	loader := NewLoader(remote, newMockCache(), nil)
	loader.Load(context.Background())

	var loading Result
	w := loader.Watch(func(r Result) {
		if r.State == domain.LoadStateLoading {
			loading = r
		}
	})
	defer w.Stop()

	loader.Load(context.Background())
	assert.Equal(t, testUsers, loading.Users)
}

func TestLoad_StoppedWatcherIsNotNotified(t *testing.T) {
	remote := &mockRemote{users: testUsers, release: make(chan struct{})}
	loader := NewLoader(remote, newMockCache(), nil)

	var mu sync.Mutex
	var got []Result
	w := loader.Watch(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r)
	})

	done := make(chan Result)
	go func() { done <- loader.Load(context.Background()) }()

	require.Eventually(t, func() bool {
		list, _ := remote.calls()
		return list == 1
	}, time.Second, 5*time.Millisecond)

	w.Stop() // view torn down while the fetch is in flight
	close(remote.release)
	res := <-done

	assert.Equal(t, domain.LoadStateFresh, res.State)
	assert.Equal(t, domain.LoadStateFresh, loader.Current().State)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, domain.LoadStateLoading, got[0].State)
}

func TestLoad_CancelledCallerStillResolves(t *testing.T) {
	kv := newMockCache()
	data, _ := json.Marshal(testUsers)
	kv.data[CacheKey] = string(data)
	loader := NewLoader(&mockRemote{err: context.Canceled}, kv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := loader.Load(ctx)
	assert.Equal(t, domain.LoadStateStaleFallback, res.State)
	assert.Equal(t, domain.LoadStateStaleFallback, loader.Current().State)
}

func TestLoad_SupersededCompletionIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	remote := &mockRemote{users: []domain.User{{ID: 9, Name: "Old"}}, release: release}
	kv := newMockCache()
	loader := NewLoader(remote, kv, nil)

	first := make(chan Result)
	go func() { first <- loader.Load(context.Background()) }()
	require.Eventually(t, func() bool {
		list, _ := remote.calls()
		return list == 1
	}, time.Second, 5*time.Millisecond)

	// second load issued while the first is still outstanding
	remote.m.Lock()
	remote.users = testUsers
	remote.release = nil
	remote.m.Unlock()
	second := loader.Load(context.Background())
	require.Equal(t, domain.LoadStateFresh, second.State)

	close(release)
	firstRes := <-first

	assert.Equal(t, []domain.User{{ID: 9, Name: "Old"}}, firstRes.Users, "caller still gets its own result")
	assert.Equal(t, testUsers, loader.Current().Users, "stale completion must not win")

	raw, _ := kv.raw(CacheKey)
	var cached []domain.User
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, testUsers, cached)
	assert.Equal(t, 1, kv.sets)
}

func TestLoad_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	kv := cache.NewRedisStore(client, "")
	remote := &mockRemote{users: testUsers}
	loader := NewLoader(remote, kv, nil)

	require.Equal(t, domain.LoadStateFresh, loader.Load(context.Background()).State)
	assert.True(t, mr.Exists("storefront:"+CacheKey))

	remote.setErr(errOffline)
	res := loader.Load(context.Background())
	assert.Equal(t, domain.LoadStateStaleFallback, res.State)
	assert.Equal(t, testUsers, res.Users)
}
