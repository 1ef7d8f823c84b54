// Package gateway is the HTTP client for the users API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/simp-lee/logger"

	"github.com/simp-lee/userdesk/internal/domain"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

const requestIDHeader = "X-Request-ID"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// ListParams are the query parameters of GET /users.
type ListParams struct {
	Page     int
	PageSize int
	Filter   string
	Active   string
	Gender   string
}

// Client talks to the users resource. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) URL", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListUsers fetches one page of user summaries.
func (c *Client) ListUsers(ctx context.Context, p ListParams) (*domain.Page[domain.UserSummary], error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	if p.Active != "" {
		q.Set("active", p.Active)
	}
	if p.Gender != "" {
		q.Set("gender", NormalizeGender(p.Gender))
	}

	var page domain.Page[domain.UserSummary]
	if err := c.do(ctx, "list users", http.MethodGet, "/users", q, nil, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []domain.UserSummary{}
	}
	return &page, nil
}

// GetUser fetches a single record.
func (c *Client) GetUser(ctx context.Context, id uint) (*domain.UserDetail, error) {
	var out domain.UserDetail
	if err := c.do(ctx, "get user", http.MethodGet, userPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser posts a new record.
func (c *Client) CreateUser(ctx context.Context, in domain.UserInput) (*domain.UserMutationResult, error) {
	var out domain.UserMutationResult
	if err := c.do(ctx, "create user", http.MethodPost, "/users", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser sends a partial update.
func (c *Client) UpdateUser(ctx context.Context, id uint, patch domain.UserPatch) (*domain.UserMutationResult, error) {
	var out domain.UserMutationResult
	if err := c.do(ctx, "update user", http.MethodPatch, userPath(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a record.
func (c *Client) DeleteUser(ctx context.Context, id uint) (*domain.DeleteResult, error) {
	var out domain.DeleteResult
	if err := c.do(ctx, "delete user", http.MethodDelete, userPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NormalizeGender replaces spaces with hyphens so multi-word values survive
// the query string the way the API expects them.
func NormalizeGender(g string) string {
	return strings.ReplaceAll(g, " ", "-")
}

func userPath(id uint) string {
	return "/users/" + strconv.FormatUint(uint64(id), 10)
}

type errorBody struct {
	Detail json.RawMessage   `json:"detail"`
	Errors map[string]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() { observe(op, err, time.Since(start)) }()

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestIDFrom(ctx); id != "" {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "users api request failed",
			slog.String("op", op), slog.String("url", u.String()), slog.Any("error", err))
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "users api request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("url", u.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode %d response: %w", op, resp.StatusCode, err)
	}
	return nil
}

func decodeAPIError(op string, resp *http.Response) error {
	apiErr := &domain.APIError{Op: op, StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body errorBody
	if json.Unmarshal(data, &body) != nil {
		return apiErr
	}
	apiErr.Fields = body.Errors

	// detail is normally a string; anything else is kept as raw JSON text.
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		apiErr.Detail = detail
	} else if len(body.Detail) > 0 && !bytes.Equal(body.Detail, []byte("null")) {
		apiErr.Detail = string(body.Detail)
	}
	return apiErr
}

// requestIDFrom returns the request_id attached with logger.WithContextAttrs.
func requestIDFrom(ctx context.Context) string {
	for _, a := range logger.FromContext(ctx) {
		if a.Key == "request_id" {
			return a.Value.String()
		}
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return domain.IsAPIStatus(err, http.StatusNotFound)
}

// IsCanceled reports whether err comes from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
