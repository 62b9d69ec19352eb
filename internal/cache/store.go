package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/metrics"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads the value for a key from the backend API
type Fetcher[T any] func(ctx context.Context) (T, error)

// State is what a view renders for a key
type State struct {
	Data      interface{}
	Err       error
	IsLoading bool
}

type entry struct {
	data      interface{}
	err       error
	loading   bool
	stale     bool
	fetchedAt time.Time
	// generation changes on every invalidation so that a fetch started
	// before it cannot repopulate the entry
	generation uint64
}

// Store is a keyed read-through cache over the API client. There is at most
// one fetch in flight per key; concurrent callers share its result. The one
// exception is Invalidate: a fetch started after it runs alongside the older
// one, whose result is discarded.
type Store struct {
	cfg     config.CacheConfig
	backend Backend
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
}

// Option configures a Store
type Option func(*Store)

// WithMetrics records hits, misses and fetch outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a cache store. backend may be nil.
func NewStore(cfg config.CacheConfig, backend Backend, opts ...Option) *Store {
	s := &Store{
		cfg:     cfg,
		backend: backend,
		metrics: metrics.NewMetrics(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the cached value for key, or loads it with fetcher. Failed
// loads are remembered for State but the next Fetch tries again. Callers that
// join an in-flight load share the context of the caller that started it.
func Fetch[T any](ctx context.Context, s *Store, key string, fetcher Fetcher[T]) (T, error) {
	var zero T

	if data, ok := s.fresh(key); ok {
		if value, ok := data.(T); ok {
			s.metrics.IncrementCounter("cache.hits")
			return value, nil
		}
	}
	s.metrics.IncrementCounter("cache.misses")

	result, err, shared := s.group.Do(key, func() (interface{}, error) {
		generation := s.begin(key)

		if value, ok := loadShared[T](ctx, s, key); ok {
			s.finish(key, generation, value, nil)
			return value, nil
		}

		start := s.now()
		value, err := fetchWithRetry(ctx, s.cfg, key, fetcher)
		s.metrics.Observe("cache.fetch", start, err)
		if !s.finish(key, generation, value, err) {
			log.Debug().Str("key", key).Msg("Discarding fetch result for invalidated key")
		} else if err == nil {
			storeShared(ctx, s, key, value)
		}
		return value, err
	})
	if shared {
		s.metrics.IncrementCounter("cache.shared")
	}
	if err != nil {
		return zero, err
	}

	value, ok := result.(T)
	if !ok {
		return zero, errors.Errorf("cache key %q holds %T", key, result)
	}
	return value, nil
}

func loadShared[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var value T
	if s.backend == nil {
		return value, false
	}

	found, err := s.backend.Get(ctx, key, &value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Shared cache read failed")
		return value, false
	}
	return value, found
}

func storeShared(ctx context.Context, s *Store, key string, value interface{}) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Set(ctx, key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Shared cache write failed")
	}
}

// fetchWithRetry calls fetcher once, or up to ErrorRetryCount more times when
// retry on error is enabled
func fetchWithRetry[T any](ctx context.Context, cfg config.CacheConfig, key string, fetcher Fetcher[T]) (T, error) {
	attempts := 1
	if cfg.RetryOnError && cfg.ErrorRetryCount > 0 {
		attempts += cfg.ErrorRetryCount
	}

	var (
		value T
		err   error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err = fetcher(ctx)
		if err == nil || attempt == attempts {
			break
		}

		log.Debug().Err(err).Str("key", key).Int("attempt", attempt).Msg("Fetch failed, retrying")
		select {
		case <-ctx.Done():
			return value, errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(cfg.ErrorRetryInterval):
		}
	}
	return value, err
}

// fresh returns the data of a usable entry
func (s *Store) fresh(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.loading || e.stale || e.err != nil || e.fetchedAt.IsZero() {
		return nil, false
	}
	if s.cfg.TTL > 0 && s.now().Sub(e.fetchedAt) > s.cfg.TTL {
		return nil, false
	}
	return e.data, true
}

// begin marks key as loading and returns its generation
func (s *Store) begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.loading = true
	return e.generation
}

// finish records a fetch outcome. It reports false when the key was
// invalidated while the fetch was running.
func (s *Store) finish(key string, generation uint64, data interface{}, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.generation != generation {
		return false
	}

	e.loading = false
	e.stale = false
	e.err = err
	if err == nil {
		e.data = data
		e.fetchedAt = s.now()
	}
	return true
}

// State returns the loading/error/data triple for key. Data survives a
// failed refetch so a view can keep showing it next to the error.
func (s *Store) State(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return State{}
	}
	return State{Data: e.data, Err: e.err, IsLoading: e.loading}
}

// Invalidate forces the next Fetch of each key to go to the backend API
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	s.mu.Lock()
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.generation++
			e.stale = true
			e.loading = false
		}
		s.group.Forget(key)
	}
	s.mu.Unlock()

	s.metrics.IncrementCounterBy("cache.invalidations", int64(len(keys)))
	log.Debug().Strs("keys", keys).Msg("Invalidated cache keys")

	if s.backend != nil {
		if err := s.backend.Delete(ctx, keys...); err != nil {
			log.Warn().Err(err).Strs("keys", keys).Msg("Shared cache delete failed")
		}
	}
}

// keyScanner is implemented by shared backends that can list their keys
type keyScanner interface {
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// InvalidatePattern invalidates every key matching one of the glob patterns,
// both the entries held here and those only present in the shared backend
func (s *Store) InvalidatePattern(ctx context.Context, patterns ...string) {
	seen := make(map[string]struct{})
	var keys []string
	add := func(key string) {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	s.mu.Lock()
	for key := range s.entries {
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, key); ok {
				add(key)
				break
			}
		}
	}
	s.mu.Unlock()

	if scanner, ok := s.backend.(keyScanner); ok {
		for _, pattern := range patterns {
			shared, err := scanner.Keys(ctx, pattern)
			if err != nil {
				log.Warn().Err(err).Str("pattern", pattern).Msg("Shared cache scan failed")
				continue
			}
			for _, key := range shared {
				add(key)
			}
		}
	}

	if len(keys) > 0 {
		s.Invalidate(ctx, keys...)
	}
}

// Focus is called when the console regains attention. Entries are only
// revalidated when revalidate on focus is enabled.
func (s *Store) Focus() {
	if !s.cfg.RevalidateOnFocus {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.stale = true
	}
}

// Clear drops every entry, for teardown
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		s.group.Forget(key)
	}
	s.entries = make(map[string]*entry)
}

// Close clears the store and releases the shared backend
func (s *Store) Close() error {
	s.Clear()
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
