package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/userdesk/internal/domain"
)

func init() {
	if err := RegisterBinding(); err != nil {
		panic(err)
	}
}

func newResponseTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func newResponseTestContextWithBody(body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"not found", domain.NewAppError(domain.CodeNotFound, "User not found", nil), http.StatusNotFound, "User not found"},
		{"already exists", domain.NewAppError(domain.CodeAlreadyExists, "A user with this email already exists", nil), http.StatusBadRequest, "A user with this email already exists"},
		{"validation", domain.NewAppError(domain.CodeValidation, "bad gender", nil), http.StatusUnprocessableEntity, "bad gender"},
		{"internal hides message", domain.NewAppError(domain.CodeInternal, "db exploded", errors.New("disk")), http.StatusInternalServerError, "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContext()
			Error(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			resp := decodeError(t, w)
			if resp.Detail != tt.wantDetail {
				t.Errorf("expected detail %q, got %q", tt.wantDetail, resp.Detail)
			}
			if resp.Errors != nil {
				t.Errorf("expected no field errors, got %v", resp.Errors)
			}
		})
	}
}

func TestAbort(t *testing.T) {
	c, w := newResponseTestContext()
	Abort(c, http.StatusTooManyRequests, "Too many requests")

	if !c.IsAborted() {
		t.Error("expected context to be aborted")
	}
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}
	if got := decodeError(t, w).Detail; got != "Too many requests" {
		t.Errorf("unexpected detail %q", got)
	}
}

func TestValidationError_NonValidationError(t *testing.T) {
	c, w := newResponseTestContext()

	ValidationError(c, errors.New("unexpected EOF"))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
	if got := decodeError(t, w).Detail; !strings.Contains(got, "unexpected EOF") {
		t.Errorf("expected detail to mention the decode error, got %q", got)
	}
}

func TestBindAndValidate_InvalidJSON(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"first_name"`)

	var input domain.UserInput
	if BindAndValidate(c, &input) {
		t.Fatal("expected BindAndValidate to return false for invalid JSON")
	}
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
}

func TestBindAndValidate_UserInputErrors(t *testing.T) {
	body := `{
		"first_name": "   ",
		"last_name": "Smith",
		"email": "ann@nowhere",
		"phone": "555",
		"address": "1 Main St",
		"city": "Springfield",
		"zip_code": "12345",
		"country": "US",
		"date_of_birth": "1990-13-40",
		"gender": "female"
	}`
	c, w := newResponseTestContextWithBody(body)

	var input domain.UserInput
	if BindAndValidate(c, &input) {
		t.Fatal("expected BindAndValidate to return false")
	}
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}

	resp := decodeError(t, w)
	if resp.Detail != "Validation error" {
		t.Errorf("unexpected detail %q", resp.Detail)
	}
	want := map[string]string{
		"first_name":    "field is required",
		"email":         "invalid email format",
		"date_of_birth": "must be a date formatted as 2006-01-02",
	}
	if len(resp.Errors) != len(want) {
		t.Errorf("expected %d field errors, got %v", len(want), resp.Errors)
	}
	for field, msg := range want {
		if resp.Errors[field] != msg {
			t.Errorf("errors[%q] = %q, want %q", field, resp.Errors[field], msg)
		}
	}
}

func TestBindAndValidate_PatchSkipsMissingFields(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"city": "Shelbyville"}`)

	var patch domain.UserPatch
	if !BindAndValidate(c, &patch) {
		t.Fatalf("expected partial patch to be valid, got %s", w.Body.String())
	}
	if patch.City == nil || *patch.City != "Shelbyville" {
		t.Errorf("expected city to be bound, got %v", patch.City)
	}
	if patch.FirstName != nil {
		t.Error("expected first_name to stay nil")
	}
}

func TestBindAndValidate_PatchRejectsBlankField(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"last_name": "  "}`)

	var patch domain.UserPatch
	if BindAndValidate(c, &patch) {
		t.Fatal("expected blank last_name to be rejected")
	}
	if got := decodeError(t, w).Errors["last_name"]; got != "field is required" {
		t.Errorf("unexpected last_name error %q", got)
	}
}

func TestNewValidator_UsesJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.Struct(domain.UserInput{Email: "x"})
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validator.ValidationErrors, got %T", err)
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	if fields["first_name"] != "required" {
		t.Errorf("expected first_name required, got %q", fields["first_name"])
	}
	if fields["email"] != "basic_email" {
		t.Errorf("expected email basic_email, got %q", fields["email"])
	}
	if _, ok := fields["is_active"]; ok {
		t.Error("is_active should be optional")
	}
}

func TestEmailPattern(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ann@example.com", true},
		{"a.b+c@sub.example.org", true},
		{"ann@example", false},
		{"ann example@x.com", false},
		{"@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := EmailPattern.MatchString(tt.in); got != tt.want {
			t.Errorf("EmailPattern(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFieldMessage(t *testing.T) {
	if got := FieldMessage("max", "100"); got != "max=100" {
		t.Errorf("unexpected fallback message %q", got)
	}
	if got := FieldMessage("notblank", ""); got != "field is required" {
		t.Errorf("unexpected notblank message %q", got)
	}
}
