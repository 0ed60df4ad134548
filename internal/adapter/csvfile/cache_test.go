package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
)

// --- mocks ---

type countingSource struct {
	calls atomic.Int64
	err   error
	gate  chan struct{} // when non-nil, Load blocks until closed
}

func (s *countingSource) Load(_ context.Context, path string) (*domain.CrashDataset, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.CrashDataset{Source: domain.SourceInfo{Path: path}}, nil
}

// --- helpers ---

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crashes.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// --- tests ---

func TestCachedLoader_Load(t *testing.T) {
	t.Run("second load for an unchanged source hits the cache", func(t *testing.T) {
		path := writeSource(t, "a,b\n1,2\n")
		src := &countingSource{}
		cached := NewCachedLoader(src, 4, observability.NewMetricsForTesting())

		first, err := cached.Load(context.Background(), path)
		require.NoError(t, err)
		second, err := cached.Load(context.Background(), path)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int64(1), src.calls.Load())
	})

	t.Run("rewritten source is reloaded", func(t *testing.T) {
		path := writeSource(t, "a,b\n1,2\n")
		src := &countingSource{}
		cached := NewCachedLoader(src, 4, observability.NewMetricsForTesting())

		first, err := cached.Load(context.Background(), path)
		require.NoError(t, err)

		// A longer rewrite changes the size component of the fingerprint,
		// which is reliable even when mtime granularity is coarse.
		require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o600))

		second, err := cached.Load(context.Background(), path)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, int64(2), src.calls.Load())
	})

	t.Run("invalidate forces a reload of an unchanged source", func(t *testing.T) {
		path := writeSource(t, "a,b\n1,2\n")
		src := &countingSource{}
		cached := NewCachedLoader(src, 4, observability.NewMetricsForTesting())

		_, err := cached.Load(context.Background(), path)
		require.NoError(t, err)

		cached.Invalidate(path)

		_, err = cached.Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, int64(2), src.calls.Load())
	})

	t.Run("unstatable source bypasses the cache", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope.csv")
		src := &countingSource{err: errors.New("boom")}
		cached := NewCachedLoader(src, 4, observability.NewMetricsForTesting())

		_, err := cached.Load(context.Background(), path)
		assert.EqualError(t, err, "boom")
		_, err = cached.Load(context.Background(), path)
		assert.EqualError(t, err, "boom")

		assert.Equal(t, int64(2), src.calls.Load())
	})

	t.Run("inner error is not cached", func(t *testing.T) {
		path := writeSource(t, "a,b\n1,2\n")
		src := &countingSource{err: errors.New("boom")}
		cached := NewCachedLoader(src, 4, observability.NewMetricsForTesting())

		_, err := cached.Load(context.Background(), path)
		assert.EqualError(t, err, "boom")

		src.err = nil
		ds, err := cached.Load(context.Background(), path)
		require.NoError(t, err)
		assert.NotNil(t, ds)
		assert.Equal(t, int64(2), src.calls.Load())
	})

	t.Run("concurrent loads share one read", func(t *testing.T) {
		path := writeSource(t, "a,b\n1,2\n")
		src := &countingSource{gate: make(chan struct{})}
		cached := NewCachedLoader(src, 4, observability.NewMetricsForTesting())

		var wg sync.WaitGroup
		results := make([]*domain.CrashDataset, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ds, err := cached.Load(context.Background(), path)
				assert.NoError(t, err)
				results[i] = ds
			}(i)
		}

		// Give both goroutines a chance to enter Load before any read
		// completes. If the second arrives later it finds a cache hit
		// instead; either way the source is read once.
		time.Sleep(50 * time.Millisecond)
		close(src.gate)
		wg.Wait()

		assert.Equal(t, int64(1), src.calls.Load())
		assert.Same(t, results[0], results[1])
	})
}

func TestLRUCache(t *testing.T) {
	ds := func(path string) cachedDataset {
		return cachedDataset{fingerprint: "1|1", dataset: &domain.CrashDataset{Source: domain.SourceInfo{Path: path}}}
	}

	t.Run("put then get", func(t *testing.T) {
		cache := newLRUCache(2)
		cache.put("a", ds("a"))

		got, ok := cache.get("a")
		require.True(t, ok)
		assert.Equal(t, "a", got.dataset.Source.Path)
	})

	t.Run("miss", func(t *testing.T) {
		cache := newLRUCache(2)

		_, ok := cache.get("absent")
		assert.False(t, ok)
	})

	t.Run("oldest entry is evicted at capacity", func(t *testing.T) {
		cache := newLRUCache(2)
		cache.put("a", ds("a"))
		cache.put("b", ds("b"))
		cache.put("c", ds("c"))

		_, ok := cache.get("a")
		assert.False(t, ok)
		_, ok = cache.get("b")
		assert.True(t, ok)
		_, ok = cache.get("c")
		assert.True(t, ok)
	})

	t.Run("get promotes an entry past eviction", func(t *testing.T) {
		cache := newLRUCache(2)
		cache.put("a", ds("a"))
		cache.put("b", ds("b"))

		_, ok := cache.get("a")
		require.True(t, ok)

		cache.put("c", ds("c"))

		_, ok = cache.get("a")
		assert.True(t, ok)
		_, ok = cache.get("b")
		assert.False(t, ok)
	})

	t.Run("put replaces an existing entry", func(t *testing.T) {
		cache := newLRUCache(2)
		cache.put("a", cachedDataset{fingerprint: "1|1"})
		cache.put("a", cachedDataset{fingerprint: "2|2"})

		got, ok := cache.get("a")
		require.True(t, ok)
		assert.Equal(t, "2|2", got.fingerprint)
	})

	t.Run("drop removes an entry", func(t *testing.T) {
		cache := newLRUCache(2)
		cache.put("a", ds("a"))
		cache.put("b", ds("b"))

		cache.drop("a")

		_, ok := cache.get("a")
		assert.False(t, ok)
		_, ok = cache.get("b")
		assert.True(t, ok)
	})

	t.Run("drop of an absent key is a no-op", func(t *testing.T) {
		cache := newLRUCache(2)
		cache.put("a", ds("a"))

		cache.drop("absent")

		_, ok := cache.get("a")
		assert.True(t, ok)
	})
}
