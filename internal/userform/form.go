// Package userform holds the create/edit form state for a user record:
// the draft, per-field validation and submission through a mutation.
package userform

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/mutation"
	"github.com/simp-lee/userdesk/internal/pkg"
)

// Field names, matching the JSON names of domain.UserInput.
const (
	FirstName   = "first_name"
	LastName    = "last_name"
	Email       = "email"
	Phone       = "phone"
	Address     = "address"
	City        = "city"
	ZipCode     = "zip_code"
	Country     = "country"
	DateOfBirth = "date_of_birth"
	Gender      = "gender"
	IsActive    = "is_active"
)

// Fields lists the editable fields in display order.
var Fields = []string{
	FirstName, LastName, Email, Phone, Address, City, ZipCode, Country, DateOfBirth, Gender, IsActive,
}

var labels = map[string]string{
	FirstName:   "First name",
	LastName:    "Last name",
	Email:       "Email",
	Phone:       "Phone",
	Address:     "Address",
	City:        "City",
	ZipCode:     "Zip code",
	Country:     "Country",
	DateOfBirth: "Date of birth",
	Gender:      "Gender",
	IsActive:    "Active",
}

// Label returns the display label of field.
func Label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

// ErrUnknownField is returned by Set for a name not in Fields.
var ErrUnknownField = errors.New("userform: unknown field")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() { validate = pkg.NewValidator() })
	return validate
}

// Form is a user draft plus its field errors.
type Form struct {
	mu     sync.Mutex
	draft  domain.UserInput
	errors map[string]string
}

// New returns a form seeded with initial. A nil IsActive defaults to true.
func New(initial domain.UserInput) *Form {
	if initial.IsActive == nil {
		active := true
		initial.IsActive = &active
	}
	return &Form{draft: initial, errors: map[string]string{}}
}

// Draft returns a copy of the current values.
func (f *Form) Draft() domain.UserInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	if d.IsActive != nil {
		active := *d.IsActive
		d.IsActive = &active
	}
	return d
}

// Set changes one field and clears its error. is_active takes any value
// strconv.ParseBool accepts.
func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if field == IsActive {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("userform: %s: %w", field, err)
		}
		f.draft.IsActive = &b
		delete(f.errors, field)
		return nil
	}

	p := f.stringField(field)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	*p = value
	delete(f.errors, field)
	return nil
}

// SetActive sets the active flag.
func (f *Form) SetActive(active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.IsActive = &active
	delete(f.errors, IsActive)
}

// Reset replaces the draft and clears all errors.
func (f *Form) Reset(in domain.UserInput) {
	next := New(in)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = next.draft
	f.errors = map[string]string{}
}

// Errors returns the field errors from the last Validate, minus fields
// edited since.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.errors)
}

// Validate checks the draft. It returns a *domain.ValidationError listing
// every failing field, or nil.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errors = map[string]string{}
	err := formValidator().Struct(f.draft)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("userform: validate: %w", err)
	}
	for _, fe := range ve {
		if _, seen := f.errors[fe.Field()]; seen {
			continue
		}
		f.errors[fe.Field()] = message(fe.Field(), fe.Tag())
	}
	return &domain.ValidationError{Fields: maps.Clone(f.errors)}
}

// SubmitCreate validates the draft and, when it is valid, creates the user
// through m. The draft is kept either way.
func (f *Form) SubmitCreate(ctx context.Context, m *mutation.Mutation[domain.UserInput, *domain.UserMutationResult]) (*domain.UserMutationResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return m.Mutate(ctx, f.Draft())
}

func message(field, tag string) string {
	switch tag {
	case "required", "notblank":
		return Label(field) + " is required"
	case "basic_email":
		return "Invalid email format"
	case "datetime":
		return Label(field) + " must be a date in YYYY-MM-DD format"
	}
	return Label(field) + " is invalid"
}

func (f *Form) stringField(field string) *string {
	switch field {
	case FirstName:
		return &f.draft.FirstName
	case LastName:
		return &f.draft.LastName
	case Email:
		return &f.draft.Email
	case Phone:
		return &f.draft.Phone
	case Address:
		return &f.draft.Address
	case City:
		return &f.draft.City
	case ZipCode:
		return &f.draft.ZipCode
	case Country:
		return &f.draft.Country
	case DateOfBirth:
		return &f.draft.DateOfBirth
	case Gender:
		return &f.draft.Gender
	}
	return nil
}
