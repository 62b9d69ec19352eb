package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"example.com/backstage/services/procurement/config"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{values: make(map[string][]byte)}
}

func (b *memoryBackend) Get(ctx context.Context, key string, value interface{}) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, value)
}

func (b *memoryBackend) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = data
	return nil
}

func (b *memoryBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		delete(b.values, key)
	}
	return nil
}

func (b *memoryBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for key := range b.values {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (b *memoryBackend) Close() error {
	return nil
}

func countingFetcher(calls *int32, value string) Fetcher[string] {
	return func(ctx context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestFetchCachesValue(t *testing.T) {
	store := NewStore(config.CacheConfig{}, nil)
	var calls int32

	for i := 0; i < 3; i++ {
		value, err := Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
		require.NoError(t, err)
		assert.Equal(t, "a", value)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	state := store.State("deliveries")
	assert.Equal(t, "a", state.Data)
	assert.NoError(t, state.Err)
	assert.False(t, state.IsLoading)
}

func TestConcurrentFetchesShareOneRequest(t *testing.T) {
	store := NewStore(config.CacheConfig{}, nil)
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := Fetch(context.Background(), store, "prices-1", fetcher)
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	<-started
	assert.True(t, store.State("prices-1").IsLoading)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []int{7, 7, 7, 7, 7}, results)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	store := NewStore(config.CacheConfig{}, nil)
	var calls int32

	_, err := Fetch(context.Background(), store, PricesKey(1, nil), countingFetcher(&calls, "old"))
	require.NoError(t, err)

	store.Invalidate(context.Background(), PricesKey(1, nil))
	assert.Equal(t, "old", store.State(PricesKey(1, nil)).Data)

	value, err := Fetch(context.Background(), store, PricesKey(1, nil), countingFetcher(&calls, "new"))
	require.NoError(t, err)
	assert.Equal(t, "new", value)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInvalidateDiscardsInFlightResult(t *testing.T) {
	store := NewStore(config.CacheConfig{}, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), store, "deliveries", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "before", nil
		})
	}()

	<-started
	store.Invalidate(context.Background(), "deliveries")
	close(release)
	<-done

	var calls int32
	value, err := Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "after"))
	require.NoError(t, err)
	assert.Equal(t, "after", value)
	assert.Equal(t, int32(1), calls)
}

func TestFailedFetchIsReportedAndRetriedOnNextFetch(t *testing.T) {
	store := NewStore(config.CacheConfig{}, nil)
	var calls int32
	failing := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("backend down")
	}

	_, err := Fetch(context.Background(), store, "deliveries", failing)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls, "no automatic retry by default")

	state := store.State("deliveries")
	assert.EqualError(t, state.Err, "backend down")
	assert.False(t, state.IsLoading)

	value, err := Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.NoError(t, store.State("deliveries").Err)
}

func TestRetryOnErrorWhenEnabled(t *testing.T) {
	store := NewStore(config.CacheConfig{
		RetryOnError:       true,
		ErrorRetryCount:    2,
		ErrorRetryInterval: time.Millisecond,
	}, nil)

	var calls int32
	value, err := Fetch(context.Background(), store, "deliveries", func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, int32(3), calls)
}

func TestFocusRevalidatesOnlyWhenEnabled(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		store := NewStore(config.CacheConfig{RevalidateOnFocus: enabled}, nil)
		var calls int32

		_, err := Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
		require.NoError(t, err)
		store.Focus()
		_, err = Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
		require.NoError(t, err)

		expected := int32(1)
		if enabled {
			expected = 2
		}
		assert.Equal(t, expected, calls, "revalidate on focus = %v", enabled)
	}
}

func TestTTLExpiresEntries(t *testing.T) {
	store := NewStore(config.CacheConfig{TTL: time.Minute}, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	var calls int32
	_, err := Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)

	now = now.Add(time.Minute)
	_, err = Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestSharedBackend(t *testing.T) {
	backend := newMemoryBackend()
	first := NewStore(config.CacheConfig{}, backend)
	second := NewStore(config.CacheConfig{}, backend)
	var calls int32

	_, err := Fetch(context.Background(), first, "delivery-1", countingFetcher(&calls, "shared"))
	require.NoError(t, err)

	value, err := Fetch(context.Background(), second, "delivery-1", countingFetcher(&calls, "other"))
	require.NoError(t, err)
	assert.Equal(t, "shared", value)
	assert.Equal(t, int32(1), calls)

	second.Invalidate(context.Background(), "delivery-1")
	found, err := backend.Get(context.Background(), "delivery-1", new(string))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidatePatternCoversEverySupplierPriceList(t *testing.T) {
	backend := newMemoryBackend()
	store := NewStore(config.CacheConfig{}, backend)
	ctx := context.Background()
	filter := int64(5)

	keys := []string{PricesKey(1, nil), PricesKey(1, &filter), PricesKey(10, nil), ActivePricesKey(1)}
	calls := make(map[string]*int32, len(keys))
	for _, key := range keys {
		calls[key] = new(int32)
		_, err := Fetch(ctx, store, key, countingFetcher(calls[key], key))
		require.NoError(t, err)
	}
	require.NoError(t, backend.Set(ctx, "prices-1-7", "elsewhere"))

	store.InvalidatePattern(ctx, SupplierPricesPatterns(1)...)

	for _, key := range keys {
		_, err := Fetch(ctx, store, key, countingFetcher(calls[key], key))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), *calls["prices-1"])
	assert.Equal(t, int32(2), *calls["prices-1-5"])
	assert.Equal(t, int32(1), *calls["prices-10"])
	assert.Equal(t, int32(1), *calls["prices-active-1"])

	found, err := backend.Get(ctx, "prices-1-7", new(string))
	require.NoError(t, err)
	assert.False(t, found, "keys only held by the shared backend are dropped too")
}

func TestClearAndClose(t *testing.T) {
	store := NewStore(config.CacheConfig{}, nil)
	var calls int32

	_, err := Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.Equal(t, State{}, store.State("deliveries"))
	_, err = Fetch(context.Background(), store, "deliveries", countingFetcher(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestDisabledRedisBackendIsNoop(t *testing.T) {
	backend, err := NewRedisBackend(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, backend.Enabled())

	found, err := backend.Get(context.Background(), "deliveries", new(string))
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, backend.Set(context.Background(), "deliveries", "a"))
	assert.NoError(t, backend.Delete(context.Background(), "deliveries"))
	keys, err := backend.Keys(context.Background(), "prices-*")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NoError(t, backend.Close())
}

func TestKeys(t *testing.T) {
	product := int64(4)
	zero := int64(0)

	assert.Equal(t, "deliveries", DeliveriesKey())
	assert.Equal(t, "delivery-9", DeliveryKey(9))
	assert.Equal(t, "deliveries-supplier-3", SupplierDeliveriesKey(3))
	assert.Equal(t, "prices-3", PricesKey(3, nil))
	assert.Equal(t, "prices-3", PricesKey(3, &zero))
	assert.Equal(t, "prices-3-4", PricesKey(3, &product))
	assert.Equal(t, "prices-active-3", ActivePricesKey(3))
	assert.Equal(t, []string{"prices-3", "prices-3-*"}, SupplierPricesPatterns(3))
}
