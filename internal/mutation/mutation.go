// Package mutation runs create, update and delete calls against the users
// API and keeps the query caches consistent with their outcome.
package mutation

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Mutate while a previous call is still running.
var ErrPending = errors.New("mutation: already pending")

// Status is the lifecycle state of a Mutation.
type Status int

// Success and Failed are settled states. Like Idle they accept the next
// Mutate; Failed keeps the error until then so it can be shown.
const (
	Idle Status = iota
	Pending
	Success
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "error"
	}
	return "unknown"
}

// Mutation tracks a single kind of write for one form or dialog. At most
// one call runs at a time.
type Mutation[In, Out any] struct {
	fn func(context.Context, In) (Out, error)

	mu     sync.Mutex
	status Status
	data   Out
	err    error
}

// New wraps fn in a tracker.
func New[In, Out any](fn func(context.Context, In) (Out, error)) *Mutation[In, Out] {
	return &Mutation[In, Out]{fn: fn}
}

// Mutate runs fn with in. It returns ErrPending without calling fn if a
// previous call has not finished. A failed tracker is resubmitted as is.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	if m.status == Pending {
		m.mu.Unlock()
		var zero Out
		return zero, ErrPending
	}
	m.status = Pending
	m.err = nil
	m.mu.Unlock()

	out, err := m.fn(ctx, in)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.status = Failed
		m.err = err
		var zero Out
		m.data = zero
		return zero, err
	}
	m.status = Success
	m.data = out
	return out, nil
}

// Status returns the current state.
func (m *Mutation[In, Out]) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsPending reports whether a call is running.
func (m *Mutation[In, Out]) IsPending() bool {
	return m.Status() == Pending
}

// Err returns the error of the last failed call.
func (m *Mutation[In, Out]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Data returns the result of the last successful call.
func (m *Mutation[In, Out]) Data() Out {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Reset returns a settled tracker to Idle. It does nothing while pending.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == Pending {
		return
	}
	var zero Out
	m.status = Idle
	m.data = zero
	m.err = nil
}
