// Package querycache keeps fetched users API results in memory: accumulated
// list pages per query key and single records per id.
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
	"github.com/simp-lee/userdesk/internal/gateway"
)

var (
	// ErrNotLoaded is returned by FetchNextPage before the first page exists.
	ErrNotLoaded = errors.New("querycache: first page not loaded")
	// ErrNoNextPage is returned when the last fetched page was the final one.
	ErrNoNextPage = errors.New("querycache: no next page")
	// ErrFetchInFlight is returned while a next-page fetch for the key runs.
	ErrFetchInFlight = errors.New("querycache: next page fetch already in flight")
	// ErrResultDiscarded means the entry was invalidated, evicted or
	// discarded while its fetch was running, so the result was dropped.
	ErrResultDiscarded = errors.New("querycache: result discarded")
)

// ListFetcher loads one page of users.
type ListFetcher interface {
	ListUsers(ctx context.Context, p gateway.ListParams) (*domain.Page[domain.UserSummary], error)
}

// ListKey is the identity of a list query. Any change restarts pagination.
type ListKey struct {
	Filter   string
	Active   string
	Gender   string
	PageSize int
}

// String returns the canonical cache key.
func (k ListKey) String() string {
	return fmt.Sprintf("users?filter=%q&active=%q&gender=%q&page_size=%d", k.Filter, k.Active, k.Gender, k.PageSize)
}

func (k ListKey) params(page int) gateway.ListParams {
	return gateway.ListParams{
		Page:     page,
		PageSize: k.PageSize,
		Filter:   k.Filter,
		Active:   k.Active,
		Gender:   k.Gender,
	}
}

// Snapshot is a point-in-time view of one list entry.
type Snapshot struct {
	Key   ListKey
	Items []domain.UserSummary
	Pages int
	Total int64

	HasNextPage        bool
	IsLoading          bool
	IsFetchingNextPage bool
	Err                error
}

type listEntry struct {
	key          ListKey
	epoch        uint64
	pages        []*domain.Page[domain.UserSummary]
	loading      bool
	fetchingNext bool
	err          error
}

func (e *listEntry) snapshot() Snapshot {
	s := Snapshot{
		Key:                e.key,
		Pages:              len(e.pages),
		IsLoading:          len(e.pages) == 0 && e.loading,
		IsFetchingNextPage: len(e.pages) > 0 && e.fetchingNext,
		Err:                e.err,
	}
	n := 0
	for _, p := range e.pages {
		n += len(p.Data)
	}
	s.Items = make([]domain.UserSummary, 0, n)
	for _, p := range e.pages {
		s.Items = append(s.Items, p.Data...)
	}
	if len(e.pages) > 0 {
		last := e.pages[len(e.pages)-1]
		s.Total = last.Total
		s.HasNextPage = last.HasNext()
	}
	return s
}

// ListCache accumulates pages per ListKey. Entries are held in an LRU, so
// the least recently used keys are evicted first.
type ListCache struct {
	fetcher ListFetcher
	log     *slog.Logger

	mu      sync.Mutex
	entries *lru.Cache[string, *listEntry]
	epoch   uint64
	group   singleflight.Group
}

// Option customises a cache.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the logger for cache events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewListCache creates a ListCache holding at most size keys.
func NewListCache(fetcher ListFetcher, size int, opts ...Option) (*ListCache, error) {
	if fetcher == nil {
		return nil, errors.New("querycache: nil list fetcher")
	}
	entries, err := lru.New[string, *listEntry](size)
	if err != nil {
		return nil, fmt.Errorf("querycache: create list lru: %w", err)
	}
	o := buildOptions(opts)
	return &ListCache{fetcher: fetcher, log: o.log, entries: entries}, nil
}

// Load returns the accumulated state for key, fetching page 1 when nothing
// is cached. Concurrent loads of the same key share one request.
func (c *ListCache) Load(ctx context.Context, key ListKey) (Snapshot, error) {
	k := key.String()

	c.mu.Lock()
	e, ok := c.entries.Get(k)
	if ok && len(e.pages) > 0 {
		s := e.snapshot()
		c.mu.Unlock()
		lookups.WithLabelValues("list", "hit").Inc()
		return s, nil
	}
	if !ok {
		e = &listEntry{key: key, epoch: c.epoch}
		c.entries.Add(k, e)
	}
	e.loading = true
	e.err = nil
	flight := k + "@" + strconv.FormatUint(e.epoch, 10)
	c.mu.Unlock()
	lookups.WithLabelValues("list", "miss").Inc()

	// The shared fetch outlives any one caller's context; the gateway
	// timeout bounds it. Callers stop waiting when their own ctx is done.
	ch := c.group.DoChan(flight, func() (any, error) {
		page, err := c.fetcher.ListUsers(context.WithoutCancel(ctx), key.params(1))
		c.mu.Lock()
		if c.current(k, e) {
			e.applyFirst(page, err)
		}
		c.mu.Unlock()
		return page, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return c.State(key), ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(k, e) {
		c.discarded(ctx, key, 1)
		return Snapshot{}, ErrResultDiscarded
	}
	page, _ := res.Val.(*domain.Page[domain.UserSummary])
	e.applyFirst(page, res.Err)
	if len(e.pages) == 0 {
		return e.snapshot(), res.Err
	}
	return e.snapshot(), nil
}

// applyFirst settles a first-page load. A page applied by an earlier
// caller of the same flight is kept.
func (e *listEntry) applyFirst(page *domain.Page[domain.UserSummary], err error) {
	e.loading = false
	if len(e.pages) > 0 {
		return
	}
	if err != nil {
		e.err = err
		return
	}
	e.pages = []*domain.Page[domain.UserSummary]{page}
}

// FetchNextPage fetches the page after the last one applied for key and
// appends it. Only one next-page fetch per key runs at a time.
func (c *ListCache) FetchNextPage(ctx context.Context, key ListKey) (Snapshot, error) {
	k := key.String()

	c.mu.Lock()
	e, ok := c.entries.Get(k)
	if !ok || len(e.pages) == 0 {
		c.mu.Unlock()
		return Snapshot{}, ErrNotLoaded
	}
	if e.fetchingNext {
		s := e.snapshot()
		c.mu.Unlock()
		return s, ErrFetchInFlight
	}
	last := e.pages[len(e.pages)-1]
	if !last.HasNext() {
		s := e.snapshot()
		c.mu.Unlock()
		return s, ErrNoNextPage
	}
	next := *last.Next
	e.fetchingNext = true
	e.err = nil
	c.mu.Unlock()

	page, err := c.fetcher.ListUsers(ctx, key.params(next))

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(k, e) {
		c.discarded(ctx, key, next)
		return Snapshot{}, ErrResultDiscarded
	}
	e.fetchingNext = false
	if err != nil {
		e.err = err
		return e.snapshot(), err
	}
	e.pages = append(e.pages, page)
	return e.snapshot(), nil
}

// State reports the cached state of key without fetching.
func (c *ListCache) State(key ListKey) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(key.String())
	if !ok {
		return Snapshot{Key: key}
	}
	return e.snapshot()
}

// Discard drops the pages of key. A fetch still running for it is dropped
// when it returns.
func (c *ListCache) Discard(key ListKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key.String())
}

// InvalidateAll drops every list entry, whatever its key. The next Load
// refetches from page 1.
func (c *ListCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries.Purge()
	invalidations.WithLabelValues("list").Inc()
}

// Len returns the number of cached keys.
func (c *ListCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// current reports whether e is still the live entry for k. Callers hold mu.
func (c *ListCache) current(k string, e *listEntry) bool {
	live, ok := c.entries.Peek(k)
	return ok && live == e && e.epoch == c.epoch
}

func (c *ListCache) discarded(ctx context.Context, key ListKey, page int) {
	discards.WithLabelValues("list").Inc()
	c.log.DebugContext(ctx, "list result discarded",
		slog.String("key", key.String()), slog.Int("page", page))
}
