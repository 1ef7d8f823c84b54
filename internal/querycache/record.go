package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/simp-lee/userdesk/internal/domain"
)

// RecordFetcher loads a single user.
type RecordFetcher interface {
	GetUser(ctx context.Context, id uint) (*domain.UserDetail, error)
}

// RecordCache caches user details by id.
type RecordCache struct {
	fetcher RecordFetcher
	log     *slog.Logger

	mu      sync.Mutex
	entries *lru.Cache[uint, domain.UserDetail]
	// gens counts invalidations per id while fetches for it are in
	// flight; a fetch is stored only if the count did not move while it
	// ran. Entries go away once the last fetch for an id settles.
	gens     map[uint]uint64
	inflight map[uint]int
	group    singleflight.Group
}

// NewRecordCache creates a RecordCache holding at most size records.
func NewRecordCache(fetcher RecordFetcher, size int, opts ...Option) (*RecordCache, error) {
	if fetcher == nil {
		return nil, errors.New("querycache: nil record fetcher")
	}
	entries, err := lru.New[uint, domain.UserDetail](size)
	if err != nil {
		return nil, fmt.Errorf("querycache: create record lru: %w", err)
	}
	o := buildOptions(opts)
	return &RecordCache{fetcher: fetcher, log: o.log, entries: entries,
		gens: make(map[uint]uint64), inflight: make(map[uint]int)}, nil
}

// Get returns the record for id, fetching it when not cached.
func (c *RecordCache) Get(ctx context.Context, id uint) (*domain.UserDetail, error) {
	c.mu.Lock()
	if d, ok := c.entries.Get(id); ok {
		c.mu.Unlock()
		lookups.WithLabelValues("record", "hit").Inc()
		return &d, nil
	}
	gen := c.gens[id]
	c.inflight[id]++
	c.mu.Unlock()
	lookups.WithLabelValues("record", "miss").Inc()

	flight := strconv.FormatUint(uint64(id), 10) + "@" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		return c.fetcher.GetUser(ctx, id)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	stale := c.gens[id] != gen
	if c.inflight[id]--; c.inflight[id] == 0 {
		delete(c.inflight, id)
		delete(c.gens, id)
	}
	if err != nil {
		return nil, err
	}
	d := *v.(*domain.UserDetail)
	if !stale {
		c.entries.Add(id, d)
	} else {
		discards.WithLabelValues("record").Inc()
		c.log.DebugContext(ctx, "record result not cached", slog.Uint64("id", uint64(id)))
	}
	return &d, nil
}

// Invalidate drops the cached record for id.
func (c *RecordCache) Invalidate(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(id)
	if c.inflight[id] > 0 {
		c.gens[id]++
	}
	invalidations.WithLabelValues("record").Inc()
}

// Cached reports whether id is in the cache.
func (c *RecordCache) Cached(id uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(id)
}
