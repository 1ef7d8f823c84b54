// Package debounce delays a value until its input has been quiet for a while.
package debounce

import (
	"sync"
	"time"
)

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option customises a Debouncer.
type Option func(*options)

type options struct {
	after AfterFunc
}

// WithAfterFunc replaces the scheduler, mainly so tests can drive time.
func WithAfterFunc(after AfterFunc) Option {
	return func(o *options) {
		if after != nil {
			o.after = after
		}
	}
}

// Debouncer emits the last value passed to Set once delay has elapsed with
// no further Set. fn runs on the scheduler's goroutine.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)
	after AfterFunc

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	value   T
	pending bool
	stopped bool
}

// New returns a Debouncer that calls fn with the settled value.
func New[T any](delay time.Duration, fn func(T), opts ...Option) *Debouncer[T] {
	o := options{after: realAfterFunc}
	for _, opt := range opts {
		opt(&o)
	}
	return &Debouncer[T]{delay: delay, fn: fn, after: o.after}
}

// Set records v and restarts the quiet period. It is a no-op after Stop.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.value = v
	d.pending = true
	d.timer = d.after(d.delay, func() { d.fire(gen) })
}

// fire emits when gen is still the latest generation. A timer whose Stop
// lost the race with expiry lands here with a stale gen and does nothing.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}

// Flush emits a pending value immediately and reports whether it did.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.fn(v)
	return true
}

// Cancel drops a pending value without emitting it. Later Sets still work.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.gen++
}

// Pending reports whether a value is waiting to be emitted.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending emission. Nothing is emitted afterwards.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.stopped = true
	d.pending = false
	d.gen++
}
