package meteocat

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
	"github.com/couchcryptid/meteocat-episodes-service/internal/observability"
)

// CachedSource wraps an EpisodeSource with an in-memory LRU cache of per-date
// results. Entries expire after ttl. Concurrent misses for the same date share
// one upstream call. Callers must treat returned episodes as read-only.
type CachedSource struct {
	inner   domain.EpisodeSource
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	cache   *lruCache
	group   singleflight.Group
}

// NewCachedSource creates a cache decorator around an episode source.
func NewCachedSource(inner domain.EpisodeSource, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observability.NewUnregisteredMetrics()
	}
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &CachedSource{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		cache:   newLRUCache(maxEntries),
	}
}

func (c *CachedSource) OpenEpisodes(ctx context.Context, date domain.Date) ([]domain.Episode, error) {
	key := date.String()
	now := c.clock.Now()
	if episodes, ok := c.cache.get(key, now); ok {
		c.metrics.Cache.WithLabelValues("hit").Inc()
		return episodes, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		episodes, err := c.inner.OpenEpisodes(ctx, date)
		if err != nil {
			// Failures are never cached.
			return nil, err
		}
		c.cache.put(key, episodes, c.clock.Now().Add(c.ttl))
		return episodes, nil
	})
	if shared {
		c.metrics.Cache.WithLabelValues("shared").Inc()
	} else {
		c.metrics.Cache.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]domain.Episode), nil
}

// Invalidate drops every cached date.
func (c *CachedSource) Invalidate() {
	c.cache.clear()
}

// lruCache is a thread-safe LRU cache of episode lists with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     []domain.Episode
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) ([]domain.Episode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Episode, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.head = nil
	c.tail = nil
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
