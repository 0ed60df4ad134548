package csvfile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
)

// CachedLoader wraps a DatasetSource with an in-memory LRU cache keyed by
// source identity (path plus size and mtime fingerprint). Editing or
// replacing a file changes its fingerprint and forces a reload, so callers
// never see a stale dataset for a changed source. Concurrent first loads of
// the same source collapse into a single underlying read.
type CachedLoader struct {
	inner   domain.DatasetSource
	cache   *lruCache
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCachedLoader creates a cache decorator around a dataset source.
func NewCachedLoader(inner domain.DatasetSource, maxEntries int, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Load returns the cached dataset when the source is unchanged, and loads
// through the inner source otherwise. The returned dataset is shared across
// callers: it is read-only by contract, so sessions may use it concurrently.
func (c *CachedLoader) Load(ctx context.Context, path string) (*domain.CrashDataset, error) {
	fp, err := fingerprint(path)
	if err != nil {
		// Unstatable sources bypass the cache; the inner loader produces
		// its usual fail-closed error.
		return c.inner.Load(ctx, path)
	}

	if cached, ok := c.cache.get(path); ok {
		if cached.fingerprint == fp {
			c.metrics.DatasetCache.WithLabelValues("hit").Inc()
			return cached.dataset, nil
		}
		c.metrics.DatasetCache.WithLabelValues("refresh").Inc()
	} else {
		c.metrics.DatasetCache.WithLabelValues("miss").Inc()
	}

	ds, err, _ := c.group.Do(path+"|"+fp, func() (any, error) {
		loaded, err := c.inner.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		c.cache.put(path, cachedDataset{fingerprint: fp, dataset: loaded})
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return ds.(*domain.CrashDataset), nil
}

// Invalidate drops any cached dataset for path. The next Load re-reads the
// source even if its fingerprint has not changed.
func (c *CachedLoader) Invalidate(path string) {
	c.cache.drop(path)
}

// fingerprint identifies a source file's current state.
func fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d|%d", info.Size(), info.ModTime().UnixNano()), nil
}

// cachedDataset pairs a normalized dataset with the source fingerprint it
// was built from.
type cachedDataset struct {
	fingerprint string
	dataset     *domain.CrashDataset
}

// lruCache is a simple thread-safe LRU cache of normalized datasets.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value cachedDataset
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (cachedDataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cachedDataset{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value cachedDataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.remove(e)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
