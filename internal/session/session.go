// Package session assembles the client side of userdesk from configuration:
// the API gateway, the query caches and the mutation coordinator, plus
// factories for the list, form and dialog state built on them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simp-lee/userdesk/internal/config"
	"github.com/simp-lee/userdesk/internal/deletion"
	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/gateway"
	"github.com/simp-lee/userdesk/internal/mutation"
	"github.com/simp-lee/userdesk/internal/querycache"
	"github.com/simp-lee/userdesk/internal/userform"
	"github.com/simp-lee/userdesk/internal/userlist"
)

// Session is one client's view of the users API.
type Session struct {
	Gateway   *gateway.Client
	Lists     *querycache.ListCache
	Records   *querycache.RecordCache
	Mutations *mutation.Coordinator

	list config.ListConfig
	log  *slog.Logger
}

// Option customises New.
type Option func(*options)

type options struct {
	log  *slog.Logger
	opts []gateway.Option
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithGatewayOptions passes extra options to gateway.New.
func WithGatewayOptions(opts ...gateway.Option) Option {
	return func(o *options) { o.opts = append(o.opts, opts...) }
}

// New builds a Session from a validated config.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session: nil config")
	}
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	gwOpts := append([]gateway.Option{
		gateway.WithTimeout(config.Duration(cfg.Gateway.Timeout)),
		gateway.WithLogger(o.log),
	}, o.opts...)
	gw, err := gateway.New(cfg.Gateway.BaseURL, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("session: gateway: %w", err)
	}

	lists, err := querycache.NewListCache(gw, cfg.List.MaxCachedQueries, querycache.WithLogger(o.log))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	records, err := querycache.NewRecordCache(gw, cfg.List.MaxCachedQueries, querycache.WithLogger(o.log))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	coord, err := mutation.NewCoordinator(gw, lists, records, mutation.WithLogger(o.log))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	return &Session{
		Gateway:   gw,
		Lists:     lists,
		Records:   records,
		Mutations: coord,
		list:      cfg.List,
		log:       o.log,
	}, nil
}

// NewListController returns a users table controller configured from the
// list section. Extra options override the config.
func (s *Session) NewListController(ctx context.Context, opts ...userlist.Option) (*userlist.Controller, error) {
	base := []userlist.Option{
		userlist.WithPageSize(s.list.PageSize),
		userlist.WithDebounce(config.Duration(s.list.Debounce)),
		userlist.WithScrollMargin(float64(s.list.ScrollMargin)),
		userlist.WithLogger(s.log),
	}
	return userlist.New(ctx, s.Lists, append(base, opts...)...)
}

// NewCreateForm returns an empty create form and its tracker.
func (s *Session) NewCreateForm() (*userform.Form, *mutation.Mutation[domain.UserInput, *domain.UserMutationResult]) {
	return userform.New(domain.UserInput{}), s.Mutations.CreateMutation()
}

// OpenUser loads user id through the record cache and opens its detail
// page in mode.
func (s *Session) OpenUser(ctx context.Context, id uint, mode userform.Mode) (*userform.EditSession, error) {
	rec, err := s.Records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return userform.NewEditSession(rec, s.Mutations.UpdateMutation(id), mode)
}

// NewDeleteDialog returns a closed deletion dialog.
func (s *Session) NewDeleteDialog() (*deletion.Dialog, error) {
	return deletion.NewDialog(s.Mutations.DeleteMutation())
}
