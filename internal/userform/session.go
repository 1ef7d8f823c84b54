package userform

import (
	"context"
	"errors"
	"sync"

	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/mutation"
)

// Mode is whether a detail view is read-only or editable.
type Mode int

const (
	View Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "view"
}

// ParseMode reads "view" or "edit". Anything else is view.
func ParseMode(s string) Mode {
	if s == "edit" {
		return Edit
	}
	return View
}

// ErrNotEditing is returned by Save outside edit mode.
var ErrNotEditing = errors.New("userform: not in edit mode")

// UpdateMutation is the tracker an EditSession saves through.
type UpdateMutation = mutation.Mutation[domain.UserPatch, *domain.UserMutationResult]

// EditSession is the detail page of one user: the loaded record, a form
// seeded from it and the view/edit mode.
type EditSession struct {
	update *UpdateMutation
	form   *Form

	mu     sync.Mutex
	record domain.UserDetail
	mode   Mode
}

// NewEditSession opens record in mode. update must be bound to record.ID.
func NewEditSession(record *domain.UserDetail, update *UpdateMutation, mode Mode) (*EditSession, error) {
	if record == nil {
		return nil, errors.New("userform: nil record")
	}
	if update == nil {
		return nil, errors.New("userform: nil update mutation")
	}
	return &EditSession{
		update: update,
		form:   New(record.Input()),
		record: *record,
		mode:   mode,
	}, nil
}

// Form returns the session's form.
func (s *EditSession) Form() *Form { return s.form }

// Mode returns the current mode.
func (s *EditSession) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Record returns the last record loaded or saved.
func (s *EditSession) Record() domain.UserDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Edit switches to edit mode.
func (s *EditSession) Edit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Edit
}

// Cancel drops unsaved changes and returns to view mode.
func (s *EditSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Reset(s.record.Input())
	s.mode = View
}

// Save validates the draft and sends it as a PATCH. On success the session
// holds the returned record and goes back to view mode. On failure it
// stays in edit mode with the draft intact.
func (s *EditSession) Save(ctx context.Context) (*domain.UserMutationResult, error) {
	if s.Mode() != Edit {
		return nil, ErrNotEditing
	}
	if err := s.form.Validate(); err != nil {
		return nil, err
	}

	res, err := s.update.Mutate(ctx, s.form.Draft().Patch())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = res.UserDetail
	s.form.Reset(s.record.Input())
	s.mode = View
	return res, nil
}
