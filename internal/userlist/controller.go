// Package userlist is the state of the users table: filter inputs, the
// active query key and scroll-driven pagination.
package userlist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/simp-lee/userdesk/internal/debounce"
	"github.com/simp-lee/userdesk/internal/querycache"
)

// Defaults for a Controller.
const (
	DefaultPageSize = 20
	DefaultDebounce = time.Second
)

// FilterState is the raw input of the filter bar.
type FilterState struct {
	Filter string
	Gender string
	Active string
}

// Lister is the list cache the controller reads through.
type Lister interface {
	Load(ctx context.Context, key querycache.ListKey) (querycache.Snapshot, error)
	FetchNextPage(ctx context.Context, key querycache.ListKey) (querycache.Snapshot, error)
	State(key querycache.ListKey) querycache.Snapshot
	Discard(key querycache.ListKey)
}

// Controller ties filter input to the list cache. Free text goes through
// a debouncer; gender and active changes apply at once. Every key change
// discards the previous key's pages and loads page 1 of the new one.
type Controller struct {
	cache    Lister
	sentinel Sentinel
	log      *slog.Logger
	onChange func(querycache.Snapshot)
	filter   *debounce.Debouncer[string]

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	input FilterState
	key   querycache.ListKey
}

// Option customises a Controller.
type Option func(*settings)

type settings struct {
	pageSize int
	delay    time.Duration
	after    debounce.AfterFunc
	sentinel Sentinel
	log      *slog.Logger
	onChange func(querycache.Snapshot)
}

// WithPageSize sets the page size of every query.
func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithDebounce sets the quiet period for filter text.
func WithDebounce(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithAfterFunc replaces the debounce scheduler.
func WithAfterFunc(after debounce.AfterFunc) Option {
	return func(s *settings) { s.after = after }
}

// WithScrollMargin sets how close to the bottom edge the sentinel must be
// before the next page is fetched.
func WithScrollMargin(margin float64) Option {
	return func(s *settings) {
		if margin >= 0 {
			s.sentinel = Sentinel{Margin: margin}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOnChange registers fn to receive the list state after every load.
func WithOnChange(fn func(querycache.Snapshot)) Option {
	return func(s *settings) { s.onChange = fn }
}

// New creates a Controller. ctx bounds the loads started by debounced
// filter changes; Close cancels it.
func New(ctx context.Context, cache Lister, opts ...Option) (*Controller, error) {
	if cache == nil {
		return nil, errors.New("userlist: nil list cache")
	}
	s := settings{
		pageSize: DefaultPageSize,
		delay:    DefaultDebounce,
		sentinel: Sentinel{Margin: DefaultScrollMargin},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	c := &Controller{
		cache:    cache,
		sentinel: s.sentinel,
		log:      s.log,
		onChange: s.onChange,
		key:      querycache.ListKey{PageSize: s.pageSize},
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	var dopts []debounce.Option
	if s.after != nil {
		dopts = append(dopts, debounce.WithAfterFunc(s.after))
	}
	c.filter = debounce.New(s.delay, c.applyFilter, dopts...)
	return c, nil
}

// Input returns the raw filter bar values.
func (c *Controller) Input() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Key returns the active query key.
func (c *Controller) Key() querycache.ListKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Snapshot returns the cached state of the active key.
func (c *Controller) Snapshot() querycache.Snapshot {
	return c.cache.State(c.Key())
}

// Load loads the active key, from cache when possible.
func (c *Controller) Load(ctx context.Context) (querycache.Snapshot, error) {
	s, err := c.cache.Load(ctx, c.Key())
	if err == nil {
		c.notify(s)
	}
	return s, err
}

// SetFilter records filter text. The query changes once the text has been
// stable for the debounce period.
func (c *Controller) SetFilter(text string) {
	c.mu.Lock()
	c.input.Filter = text
	c.mu.Unlock()
	c.filter.Set(text)
}

// FlushFilter applies pending filter text immediately.
func (c *Controller) FlushFilter() bool {
	return c.filter.Flush()
}

// SetGender changes the gender facet and reloads.
func (c *Controller) SetGender(ctx context.Context, gender string) (querycache.Snapshot, error) {
	return c.update(ctx, func(in *FilterState, key *querycache.ListKey) {
		in.Gender = gender
		key.Gender = gender
	})
}

// SetActive changes the status facet and reloads.
func (c *Controller) SetActive(ctx context.Context, active string) (querycache.Snapshot, error) {
	return c.update(ctx, func(in *FilterState, key *querycache.ListKey) {
		in.Active = active
		key.Active = active
	})
}

// ClearFilters resets gender and status at once and the filter text
// through the debouncer.
func (c *Controller) ClearFilters(ctx context.Context) (querycache.Snapshot, error) {
	c.mu.Lock()
	c.input.Filter = ""
	c.mu.Unlock()
	c.filter.Set("")
	return c.update(ctx, func(in *FilterState, key *querycache.ListKey) {
		in.Gender, in.Active = "", ""
		key.Gender, key.Active = "", ""
	})
}

// Apply sets every filter at once and reloads, dropping any filter text
// still waiting in the debouncer.
func (c *Controller) Apply(ctx context.Context, f FilterState) (querycache.Snapshot, error) {
	c.filter.Cancel()
	return c.update(ctx, func(in *FilterState, key *querycache.ListKey) {
		*in = f
		key.Filter, key.Gender, key.Active = f.Filter, f.Gender, f.Active
	})
}

// OnScroll fetches the next page when the sentinel is near the bottom
// edge, more pages exist and no fetch is running. It reports whether a
// fetch was made.
func (c *Controller) OnScroll(ctx context.Context, g Geometry) (bool, error) {
	if !c.sentinel.Near(g) {
		return false, nil
	}
	s := c.Snapshot()
	if !s.HasNextPage || s.IsFetchingNextPage || s.IsLoading {
		return false, nil
	}
	_, err := c.FetchNextPage(ctx)
	if errors.Is(err, querycache.ErrFetchInFlight) || errors.Is(err, querycache.ErrNoNextPage) {
		return false, nil
	}
	return true, err
}

// FetchNextPage appends the next page of the active key.
func (c *Controller) FetchNextPage(ctx context.Context) (querycache.Snapshot, error) {
	s, err := c.cache.FetchNextPage(ctx, c.Key())
	if err == nil {
		c.notify(s)
	}
	return s, err
}

// Close stops the debouncer and cancels background loads.
func (c *Controller) Close() {
	c.filter.Stop()
	c.cancel()
}

// applyFilter runs on the debouncer goroutine.
func (c *Controller) applyFilter(text string) {
	_, err := c.update(c.ctx, func(_ *FilterState, key *querycache.ListKey) {
		key.Filter = text
	})
	if err != nil && !errors.Is(err, querycache.ErrResultDiscarded) && !errors.Is(err, context.Canceled) {
		c.log.WarnContext(c.ctx, "load users failed", slog.String("filter", text), slog.Any("error", err))
	}
}

func (c *Controller) update(ctx context.Context, fn func(*FilterState, *querycache.ListKey)) (querycache.Snapshot, error) {
	c.mu.Lock()
	old := c.key
	fn(&c.input, &c.key)
	key := c.key
	c.mu.Unlock()

	if key != old {
		c.cache.Discard(old)
		c.log.DebugContext(ctx, "list key changed", slog.String("from", old.String()), slog.String("to", key.String()))
	}
	s, err := c.cache.Load(ctx, key)
	if err == nil {
		c.notify(s)
	}
	return s, err
}

func (c *Controller) notify(s querycache.Snapshot) {
	if c.onChange != nil && s.Key == c.Key() {
		c.onChange(s)
	}
}
