package mutation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/simp-lee/userdesk/internal/domain"
)

// Messages shown when the API gives no detail.
const (
	FallbackCreate = "Failed to create user."
	FallbackUpdate = "Failed to update user."
	FallbackDelete = "Error deleting user."
)

// Gateway is the write side of the users API.
type Gateway interface {
	CreateUser(ctx context.Context, in domain.UserInput) (*domain.UserMutationResult, error)
	UpdateUser(ctx context.Context, id uint, patch domain.UserPatch) (*domain.UserMutationResult, error)
	DeleteUser(ctx context.Context, id uint) (*domain.DeleteResult, error)
}

// ListInvalidator drops every cached list.
type ListInvalidator interface {
	InvalidateAll()
}

// RecordInvalidator drops one cached record.
type RecordInvalidator interface {
	Invalidate(id uint)
}

// Error is a failed mutation. Message is what the user should see.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Message returns the display message of err. Non-mutation errors fall
// back to err.Error().
func Message(err error) string {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Coordinator performs writes and invalidates caches on success. Failed
// writes leave the caches untouched.
type Coordinator struct {
	gw      Gateway
	lists   ListInvalidator
	records RecordInvalidator
	log     *slog.Logger
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCoordinator creates a Coordinator. lists and records may be nil when
// the caller keeps no cache of that kind.
func NewCoordinator(gw Gateway, lists ListInvalidator, records RecordInvalidator, opts ...Option) (*Coordinator, error) {
	if gw == nil {
		return nil, errors.New("mutation: nil gateway")
	}
	c := &Coordinator{gw: gw, lists: lists, records: records, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create posts a new user.
func (c *Coordinator) Create(ctx context.Context, in domain.UserInput) (*domain.UserMutationResult, error) {
	res, err := c.gw.CreateUser(ctx, in)
	if err != nil {
		return nil, c.fail(ctx, "create user", FallbackCreate, err)
	}
	c.invalidateLists()
	c.log.InfoContext(ctx, "user created", slog.Uint64("id", uint64(res.ID)))
	return res, nil
}

// Update applies patch to user id.
func (c *Coordinator) Update(ctx context.Context, id uint, patch domain.UserPatch) (*domain.UserMutationResult, error) {
	res, err := c.gw.UpdateUser(ctx, id, patch)
	if err != nil {
		return nil, c.fail(ctx, "update user", FallbackUpdate, err)
	}
	c.invalidateRecord(id)
	c.invalidateLists()
	c.log.InfoContext(ctx, "user updated", slog.Uint64("id", uint64(id)))
	return res, nil
}

// Delete removes user id.
func (c *Coordinator) Delete(ctx context.Context, id uint) (*domain.DeleteResult, error) {
	res, err := c.gw.DeleteUser(ctx, id)
	if err != nil {
		return nil, c.fail(ctx, "delete user", FallbackDelete, err)
	}
	c.invalidateRecord(id)
	c.invalidateLists()
	c.log.InfoContext(ctx, "user deleted", slog.Uint64("id", uint64(id)))
	return res, nil
}

// CreateMutation returns a tracker for a create form.
func (c *Coordinator) CreateMutation() *Mutation[domain.UserInput, *domain.UserMutationResult] {
	return New(c.Create)
}

// UpdateMutation returns a tracker for the edit form of user id.
func (c *Coordinator) UpdateMutation(id uint) *Mutation[domain.UserPatch, *domain.UserMutationResult] {
	return New(func(ctx context.Context, patch domain.UserPatch) (*domain.UserMutationResult, error) {
		return c.Update(ctx, id, patch)
	})
}

// DeleteMutation returns a tracker for a deletion dialog.
func (c *Coordinator) DeleteMutation() *Mutation[uint, *domain.DeleteResult] {
	return New(c.Delete)
}

func (c *Coordinator) fail(ctx context.Context, op, fallback string, err error) error {
	msg := domain.ErrorMessage(err, fallback)
	c.log.WarnContext(ctx, "mutation failed", slog.String("op", op), slog.Any("error", err))
	return &Error{Op: op, Message: msg, Err: err}
}

func (c *Coordinator) invalidateLists() {
	if c.lists != nil {
		c.lists.InvalidateAll()
	}
}

func (c *Coordinator) invalidateRecord(id uint) {
	if c.records != nil {
		c.records.Invalidate(id)
	}
}
