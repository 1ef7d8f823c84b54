package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/userdesk/internal/domain"
)

type recordedRequest struct {
	method    string
	path      string
	query     string
	body      string
	requestID string
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) at(i int) recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[i]
}

// newTestServer answers every request with status and body, recording what it saw.
func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	seen := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seen.mu.Lock()
		seen.reqs = append(seen.reqs, recordedRequest{
			method:    r.Method,
			path:      r.URL.Path,
			query:     r.URL.RawQuery,
			body:      string(data),
			requestID: r.Header.Get(requestIDHeader),
		})
		seen.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	if err != nil {
		t.Fatalf("New(%q) error: %v", baseURL, err)
	}
	return c
}

func TestNew_BaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:8000", "http://localhost:8000", false},
		{"http://localhost:8000/", "http://localhost:8000", false},
		{" https://api.example.com/v1/ ", "https://api.example.com/v1", false},
		{"localhost:8000", "", true},
		{"/users", "", true},
		{"ftp://example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := New(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error: %v", tt.in, err)
			}
			if c.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.want)
			}
		})
	}
}

func TestNormalizeGender(t *testing.T) {
	tests := []struct{ in, want string }{
		{"non binary", "non-binary"},
		{"male", "male"},
		{"a b c", "a-b-c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeGender(tt.in); got != tt.want {
			t.Errorf("NormalizeGender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestListUsers_QueryParams(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"data":[{"id":1,"name":"Ann Smith"}],"total":1,"page":1,"next":null,"page_size":20,"total_pages":1}`)
	c := newTestClient(t, srv.URL)

	page, err := c.ListUsers(context.Background(), ListParams{Page: 1, PageSize: 20, Filter: "ann s", Active: "active", Gender: "non binary"})
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 || page.Data[0].Name != "Ann Smith" || page.Next != nil {
		t.Errorf("unexpected page %+v", page)
	}

	got := seen.at(0)
	if got.method != http.MethodGet || got.path != "/users" {
		t.Errorf("request = %s %s", got.method, got.path)
	}
	want := "active=active&filter=ann+s&gender=non-binary&page=1&page_size=20"
	if got.query != want {
		t.Errorf("query = %q, want %q", got.query, want)
	}
}

func TestListUsers_OmitsEmptyFacets(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"data":null,"total":0,"page":1,"next":null,"page_size":10,"total_pages":0}`)
	c := newTestClient(t, srv.URL)

	page, err := c.ListUsers(context.Background(), ListParams{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if page.Data == nil {
		t.Error("Data should be an empty slice, not nil")
	}
	if q := seen.at(0).query; q != "page=1&page_size=10" {
		t.Errorf("query = %q", q)
	}
}

func TestBaseURLWithPathPrefix(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"id":3,"first_name":"Ann"}`)
	c := newTestClient(t, srv.URL+"/api/")

	if _, err := c.GetUser(context.Background(), 3); err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if p := seen.at(0).path; p != "/api/users/3" {
		t.Errorf("path = %q, want /api/users/3", p)
	}
}

func TestMutations_MethodsAndBodies(t *testing.T) {
	active := false
	first := "Bob"

	tests := []struct {
		name       string
		status     int
		respBody   string
		call       func(c *Client) (any, error)
		wantMethod string
		wantPath   string
		wantBody   map[string]any
	}{
		{
			name:     "create",
			status:   http.StatusCreated,
			respBody: `{"id":9,"first_name":"Ann","message":"User created successfully"}`,
			call: func(c *Client) (any, error) {
				return c.CreateUser(context.Background(), domain.UserInput{FirstName: "Ann", Email: "ann@example.com", IsActive: &active})
			},
			wantMethod: http.MethodPost,
			wantPath:   "/users",
			wantBody:   map[string]any{"first_name": "Ann", "email": "ann@example.com", "is_active": false},
		},
		{
			name:     "update sends only present fields",
			status:   http.StatusOK,
			respBody: `{"id":4,"first_name":"Bob","message":"User updated successfully"}`,
			call: func(c *Client) (any, error) {
				return c.UpdateUser(context.Background(), 4, domain.UserPatch{FirstName: &first})
			},
			wantMethod: http.MethodPatch,
			wantPath:   "/users/4",
			wantBody:   map[string]any{"first_name": "Bob"},
		},
		{
			name:     "delete",
			status:   http.StatusOK,
			respBody: `{"id":7,"message":"User with ID 7 deleted successfully"}`,
			call: func(c *Client) (any, error) {
				return c.DeleteUser(context.Background(), 7)
			},
			wantMethod: http.MethodDelete,
			wantPath:   "/users/7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen := newTestServer(t, tt.status, tt.respBody)
			c := newTestClient(t, srv.URL)

			if _, err := tt.call(c); err != nil {
				t.Fatalf("call error: %v", err)
			}
			got := seen.at(0)
			if got.method != tt.wantMethod || got.path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", got.method, got.path, tt.wantMethod, tt.wantPath)
			}
			if tt.wantBody == nil {
				if got.body != "" {
					t.Errorf("expected empty body, got %q", got.body)
				}
				return
			}
			var body map[string]any
			if err := json.Unmarshal([]byte(got.body), &body); err != nil {
				t.Fatalf("unmarshal request body: %v", err)
			}
			for k, v := range tt.wantBody {
				if body[k] != v {
					t.Errorf("body[%q] = %v, want %v", k, body[k], v)
				}
			}
			if tt.name == "update sends only present fields" && len(body) != 1 {
				t.Errorf("PATCH body should only carry first_name, got %v", body)
			}
		})
	}
}

func TestMutationResults_Decoded(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusCreated, `{"id":9,"first_name":"Ann","last_name":"Smith","last_login":null,"message":"User created successfully"}`)
	c := newTestClient(t, srv.URL)

	res, err := c.CreateUser(context.Background(), domain.UserInput{FirstName: "Ann"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if res.ID != 9 || res.LastName != "Smith" || res.Message != "User created successfully" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantFields map[string]string
	}{
		{"not found detail", http.StatusNotFound, `{"detail":"User not found"}`, "User not found", nil},
		{"conflict", http.StatusBadRequest, `{"detail":"A user with this email already exists"}`, "A user with this email already exists", nil},
		{"validation fields", http.StatusUnprocessableEntity, `{"detail":"Validation error","errors":{"email":"invalid email format"}}`, "Validation error", map[string]string{"email": "invalid email format"}},
		{"non-string detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","email"]}]}`, `[{"loc":["body","email"]}]`, nil},
		{"no body", http.StatusInternalServerError, ``, "", nil},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL)

			_, err := c.GetUser(context.Background(), 1)
			var apiErr *domain.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *domain.APIError, got %T %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", apiErr.Detail, tt.wantDetail)
			}
			for k, v := range tt.wantFields {
				if apiErr.Fields[k] != v {
					t.Errorf("Fields[%q] = %q, want %q", k, apiErr.Fields[k], v)
				}
			}
			if domain.IsNetwork(err) {
				t.Error("API errors must not be reported as network errors")
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{"detail":"User not found"}`)
	c := newTestClient(t, srv.URL)

	_, err := c.GetUser(context.Background(), 99)
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false", err)
	}
}

func TestNetworkErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		deadURL := srv.URL
		srv.Close()

		c := newTestClient(t, deadURL)
		_, err := c.ListUsers(context.Background(), ListParams{Page: 1})
		if !domain.IsNetwork(err) {
			t.Fatalf("expected network error, got %T %v", err, err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c := newTestClient(t, srv.URL, WithTimeout(20*time.Millisecond))
		_, err := c.GetUser(context.Background(), 1)
		if !domain.IsNetwork(err) {
			t.Fatalf("expected network error, got %T %v", err, err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{}`)
		c := newTestClient(t, srv.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.GetUser(ctx, 1)
		if !domain.IsNetwork(err) || !IsCanceled(err) {
			t.Fatalf("expected canceled network error, got %v", err)
		}
	})
}

func TestUndecodableSuccessBody(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"id":`)
	c := newTestClient(t, srv.URL)

	_, err := c.GetUser(context.Background(), 1)
	if err == nil {
		t.Fatal("GetUser() error = nil for a truncated body")
	}
	if domain.IsNetwork(err) {
		t.Errorf("completed request reported as network error: %v", err)
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("2xx reported as API error: %v", err)
	}
	if !strings.Contains(err.Error(), "get user: decode 200 response") {
		t.Errorf("error = %q, want decode context", err)
	}
	if got := outcome(err); got != "error" {
		t.Errorf("outcome = %q, want error", got)
	}
}

func TestRequestIDForwarded(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"id":1}`)
	c := newTestClient(t, srv.URL)

	ctx := logger.WithContextAttrs(context.Background(), slog.String("request_id", "cli-abc-123"))
	if _, err := c.GetUser(ctx, 1); err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if got := seen.at(0).requestID; got != "cli-abc-123" {
		t.Errorf("X-Request-ID = %q, want cli-abc-123", got)
	}

	if _, err := c.GetUser(context.Background(), 1); err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if got := seen.at(1).requestID; got != "" {
		t.Errorf("X-Request-ID = %q, want none without a context id", got)
	}
}

func TestMetrics_OutcomeLabels(t *testing.T) {
	okBefore := testutil.ToFloat64(requests.WithLabelValues("get user", "ok"))
	nfBefore := testutil.ToFloat64(requests.WithLabelValues("get user", "404"))

	okSrv, _ := newTestServer(t, http.StatusOK, `{"id":1}`)
	nfSrv, _ := newTestServer(t, http.StatusNotFound, `{"detail":"User not found"}`)
	_, _ = newTestClient(t, okSrv.URL).GetUser(context.Background(), 1)
	_, _ = newTestClient(t, nfSrv.URL).GetUser(context.Background(), 1)

	if got := testutil.ToFloat64(requests.WithLabelValues("get user", "ok")) - okBefore; got != 1 {
		t.Errorf("ok count delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(requests.WithLabelValues("get user", "404")) - nfBefore; got != 1 {
		t.Errorf("404 count delta = %v, want 1", got)
	}
	if outcome(errors.New("x")) != "error" || outcome(&domain.NetworkError{Op: "x", Err: io.EOF}) != "network" {
		t.Error("unexpected outcome labels")
	}
	if !strings.Contains(outcome(&domain.APIError{StatusCode: 500}), "500") {
		t.Error("API errors should be labelled by status")
	}
}
