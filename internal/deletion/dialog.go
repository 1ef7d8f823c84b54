// Package deletion is the confirm-before-delete dialog for a user row.
package deletion

import (
	"context"
	"errors"
	"sync"

	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/mutation"
)

var (
	// ErrNoRecord is returned by Request without a record.
	ErrNoRecord = errors.New("deletion: no record selected")
	// ErrNotOpen is returned by Confirm when the dialog is closed.
	ErrNotOpen = errors.New("deletion: dialog not open")
)

// State is the dialog state.
type State int

const (
	Closed State = iota
	Open
	// Confirming means the delete request is in flight.
	Confirming
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Confirming:
		return "confirming"
	}
	return "closed"
}

// Outcome is how the dialog was last closed.
type Outcome int

const (
	NoOutcome Outcome = iota
	Confirmed
	Cancelled
)

// DeleteMutation is the tracker a Dialog deletes through.
type DeleteMutation = mutation.Mutation[uint, *domain.DeleteResult]

// Dialog holds the pending deletion of one record.
type Dialog struct {
	del *DeleteMutation

	mu      sync.Mutex
	state   State
	record  *domain.UserSummary
	message string
	outcome Outcome
}

// NewDialog returns a closed dialog that deletes through del.
func NewDialog(del *DeleteMutation) (*Dialog, error) {
	if del == nil {
		return nil, errors.New("deletion: nil delete mutation")
	}
	return &Dialog{del: del}, nil
}

// Request opens the dialog for record. It replaces a previous selection
// unless a delete is in flight.
func (d *Dialog) Request(record *domain.UserSummary) error {
	if record == nil {
		return ErrNoRecord
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Confirming {
		return mutation.ErrPending
	}
	rec := *record
	d.record = &rec
	d.state = Open
	d.message = ""
	d.outcome = NoOutcome
	return nil
}

// Confirm deletes the selected record. On success the dialog closes and
// forgets the record. On failure it stays open with the record and an
// error message.
func (d *Dialog) Confirm(ctx context.Context) (*domain.DeleteResult, error) {
	d.mu.Lock()
	switch d.state {
	case Confirming:
		d.mu.Unlock()
		return nil, mutation.ErrPending
	case Closed:
		d.mu.Unlock()
		return nil, ErrNotOpen
	}
	d.state = Confirming
	d.message = ""
	id := d.record.ID
	d.mu.Unlock()

	res, err := d.del.Mutate(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = Open
		d.message = mutation.Message(err)
		return nil, err
	}
	d.state = Closed
	d.record = nil
	d.outcome = Confirmed
	return res, nil
}

// Cancel closes the dialog and clears the record. It reports false and
// keeps the record while a delete is in flight, which cannot be cancelled.
func (d *Dialog) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Confirming {
		return false
	}
	if d.state == Open {
		d.outcome = Cancelled
	}
	d.state = Closed
	d.record = nil
	d.message = ""
	return true
}

// State returns the dialog state.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsOpen reports whether the dialog is showing.
func (d *Dialog) IsOpen() bool {
	return d.State() != Closed
}

// Record returns the selected record.
func (d *Dialog) Record() (domain.UserSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.record == nil {
		return domain.UserSummary{}, false
	}
	return *d.record, true
}

// Message returns the error of the last failed Confirm.
func (d *Dialog) Message() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.message
}

// Outcome returns how the dialog was last closed.
func (d *Dialog) Outcome() Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome
}
