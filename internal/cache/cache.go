// Package cache is a small keyed read cache for store queries. Entries
// carry a freshness window, concurrent loads of one key are collapsed into
// a single store call, and writers mark a whole domain stale.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lojf/garage/internal/metrics"
)

type Domain string

const (
	Attendance Domain = "attendance"
	Locations  Domain = "locations"
)

// Key identifies one cached read. Params is the canonical string of the
// filter value, so equal filters share an entry.
type Key struct {
	Domain Domain
	Op     string
	Params string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s?%s", k.Domain, k.Op, k.Params)
}

type entry struct {
	val       any
	fetchedAt time.Time
	ttl       time.Duration
	stale     bool
}

type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	gen     map[Domain]uint64
	group   singleflight.Group
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: map[Key]*entry{},
		gen:     map[Domain]uint64{},
		now:     time.Now,
	}
}

func (c *Cache) fresh(e *entry) bool {
	return !e.stale && c.now().Sub(e.fetchedAt) < e.ttl
}

// lookup returns the entry value and whether it is still fresh.
func (c *Cache) lookup(key Key) (any, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return e.val, true, c.fresh(e)
}

func (c *Cache) store(key Key, val any, ttl time.Duration, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{
		val:       val,
		fetchedAt: c.now(),
		ttl:       ttl,
		// An invalidation that landed while loading makes the result stale on arrival.
		stale: c.gen[key.Domain] != gen,
	}
}

func (c *Cache) generation(d Domain) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[d]
}

// Fetch returns the value cached under key while it is fresh. Otherwise it
// calls load, with at most one load per key in flight, and caches the result
// for ttl. Failed loads are not cached. A caller whose ctx ends stops
// waiting; the load itself carries on for the others.
func Fetch[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	domain := string(key.Domain)
	if v, ok, fresh := c.lookup(key); ok && fresh {
		if t, ok := v.(T); ok {
			metrics.CacheLookups.WithLabelValues(domain, "hit").Inc()
			return t, nil
		}
	} else if ok {
		metrics.CacheLookups.WithLabelValues(domain, "stale").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(domain, "miss").Inc()
	}

	// The load is shared, so it must outlive any one caller giving up.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		gen := c.generation(key.Domain)
		val, err := load(loadCtx)
		metrics.CacheFetches.WithLabelValues(domain, metrics.Result(err)).Inc()
		if err != nil {
			return nil, err
		}
		c.store(key, val, ttl, gen)
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Peek returns whatever is cached under key, fresh or stale.
func Peek[T any](c *Cache, key Key) (T, bool) {
	v, ok, _ := c.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Mutate rewrites every cached value of domain/op in place of a refetch.
// fn must return a new value rather than modify its argument; readers may
// still hold the old one. Freshness is left untouched.
func Mutate[T any](c *Cache, domain Domain, op string, fn func(T) T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if k.Domain != domain || k.Op != op {
			continue
		}
		if t, ok := e.val.(T); ok {
			e.val = fn(t)
			n++
		}
	}
	return n
}

// Invalidate marks every entry of domain stale so the next read refetches.
func (c *Cache) Invalidate(domain Domain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[domain]++
	for k, e := range c.entries {
		if k.Domain == domain {
			e.stale = true
		}
	}
	metrics.CacheInvalidations.WithLabelValues(string(domain)).Inc()
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
