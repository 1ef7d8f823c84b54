package domain

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Gender values accepted by the users API.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Active facet values for list filtering.
const (
	ActiveOnly   = "active"
	InactiveOnly = "inactive"
)

// User represents a stored user record.
type User struct {
	BaseModel
	FirstName   string     `gorm:"size:100;not null"`
	LastName    string     `gorm:"size:100;not null"`
	Email       string     `gorm:"size:255;uniqueIndex;not null"`
	Phone       string     `gorm:"size:50;not null"`
	Address     string     `gorm:"size:255;not null"`
	City        string     `gorm:"size:100;not null"`
	ZipCode     string     `gorm:"size:20;not null"`
	Country     string     `gorm:"size:100;not null"`
	DateOfBirth string     `gorm:"size:10;not null"`
	Gender      string     `gorm:"size:32;index;not null"`
	IsActive    bool       `gorm:"index;not null"`
	LastLogin   *time.Time ``
}

// FullName joins first and last name the way list rows display it.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Address is the nested postal address in API responses.
type Address struct {
	Address string `json:"address"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// UserSummary is a row of GET /users.
type UserSummary struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     Address    `json:"address"`
	DateOfBirth string     `json:"date_of_birth"`
	Gender      string     `json:"gender"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
	IsActive    bool       `json:"is_active"`
}

// UserDetail is the body of GET /users/{id}.
type UserDetail struct {
	ID          uint       `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     Address    `json:"address"`
	DateOfBirth string     `json:"date_of_birth"`
	Gender      string     `json:"gender"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
	IsActive    bool       `json:"is_active"`
}

// LastLoginDisplay renders the last login time, or "Never".
func (d *UserDetail) LastLoginDisplay() string {
	if d.LastLogin == nil {
		return "Never"
	}
	return d.LastLogin.Local().Format(time.DateTime)
}

// Input converts a detail record into a full form draft.
func (d *UserDetail) Input() UserInput {
	active := d.IsActive
	return UserInput{
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Email:       d.Email,
		Phone:       d.Phone,
		Address:     d.Address.Address,
		City:        d.Address.City,
		ZipCode:     d.Address.ZipCode,
		Country:     d.Address.Country,
		DateOfBirth: d.DateOfBirth,
		Gender:      strings.ToLower(d.Gender),
		IsActive:    &active,
	}
}

// UserInput is the body of POST /users and the draft edited by forms.
// A nil IsActive means active.
type UserInput struct {
	FirstName   string `json:"first_name" binding:"required,notblank"`
	LastName    string `json:"last_name" binding:"required,notblank"`
	Email       string `json:"email" binding:"required,notblank,basic_email"`
	Phone       string `json:"phone" binding:"required,notblank"`
	Address     string `json:"address" binding:"required,notblank"`
	City        string `json:"city" binding:"required,notblank"`
	ZipCode     string `json:"zip_code" binding:"required,notblank"`
	Country     string `json:"country" binding:"required,notblank"`
	DateOfBirth string `json:"date_of_birth" binding:"required,notblank,datetime=2006-01-02"`
	Gender      string `json:"gender" binding:"required,notblank"`
	IsActive    *bool  `json:"is_active"`
}

// Active resolves the IsActive default.
func (in UserInput) Active() bool {
	return in.IsActive == nil || *in.IsActive
}

// Patch turns a full draft into a PATCH body carrying every field.
func (in UserInput) Patch() UserPatch {
	active := in.Active()
	return UserPatch{
		FirstName:   &in.FirstName,
		LastName:    &in.LastName,
		Email:       &in.Email,
		Phone:       &in.Phone,
		Address:     &in.Address,
		City:        &in.City,
		ZipCode:     &in.ZipCode,
		Country:     &in.Country,
		DateOfBirth: &in.DateOfBirth,
		Gender:      &in.Gender,
		IsActive:    &active,
	}
}

// UserPatch is the body of PATCH /users/{id}. Nil fields are left unchanged.
type UserPatch struct {
	FirstName   *string `json:"first_name,omitempty" binding:"omitempty,notblank"`
	LastName    *string `json:"last_name,omitempty" binding:"omitempty,notblank"`
	Email       *string `json:"email,omitempty" binding:"omitempty,notblank,basic_email"`
	Phone       *string `json:"phone,omitempty" binding:"omitempty,notblank"`
	Address     *string `json:"address,omitempty" binding:"omitempty,notblank"`
	City        *string `json:"city,omitempty" binding:"omitempty,notblank"`
	ZipCode     *string `json:"zip_code,omitempty" binding:"omitempty,notblank"`
	Country     *string `json:"country,omitempty" binding:"omitempty,notblank"`
	DateOfBirth *string `json:"date_of_birth,omitempty" binding:"omitempty,notblank,datetime=2006-01-02"`
	Gender      *string `json:"gender,omitempty" binding:"omitempty,notblank"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.Address == nil && p.City == nil && p.ZipCode == nil && p.Country == nil &&
		p.DateOfBirth == nil && p.Gender == nil && p.IsActive == nil
}

// UserMutationResult is the body returned by POST and PATCH.
type UserMutationResult struct {
	UserDetail
	Message string `json:"message"`
}

// DeleteResult is the body returned by DELETE /users/{id}.
type DeleteResult struct {
	ID      uint   `json:"id"`
	Message string `json:"message"`
}

// UserQuery holds the list parameters of GET /users.
type UserQuery struct {
	Page     int
	PageSize int
	Filter   string
	Active   string
	Gender   string
}

// FormatGender canonicalises a gender value: hyphens become spaces, male and
// female map to "Male"/"Female", anything else is title-cased.
func FormatGender(input string) string {
	normalized := strings.ToLower(strings.ReplaceAll(input, "-", " "))
	switch normalized {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	}

	var b strings.Builder
	startOfWord := true
	for _, r := range normalized {
		if !unicode.IsLetter(r) {
			startOfWord = true
			b.WriteRune(r)
			continue
		}
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SummaryOf builds the list row for u.
func SummaryOf(u *User) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Name:        u.FullName(),
		Email:       u.Email,
		Phone:       u.Phone,
		Address:     addressOf(u),
		DateOfBirth: u.DateOfBirth,
		Gender:      u.Gender,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
		IsActive:    u.IsActive,
	}
}

// DetailOf builds the single-record view of u.
func DetailOf(u *User) UserDetail {
	return UserDetail{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    strings.TrimSpace(u.LastName),
		Email:       u.Email,
		Phone:       u.Phone,
		Address:     addressOf(u),
		DateOfBirth: u.DateOfBirth,
		Gender:      u.Gender,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
		IsActive:    u.IsActive,
	}
}

func addressOf(u *User) Address {
	return Address{
		Address: u.Address,
		City:    u.City,
		ZipCode: u.ZipCode,
		Country: u.Country,
	}
}

// UserRepository defines the data access interface for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, q UserQuery) ([]User, int64, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uint) error
	// Transaction runs fn against a repository bound to a single transaction.
	Transaction(ctx context.Context, fn func(repo UserRepository) error) error
}

// UserService defines the business logic interface for users.
type UserService interface {
	CreateUser(ctx context.Context, in UserInput) (*User, error)
	GetUser(ctx context.Context, id uint) (*User, error)
	ListUsers(ctx context.Context, q UserQuery) (*Page[UserSummary], error)
	UpdateUser(ctx context.Context, id uint, patch UserPatch) (*User, error)
	DeleteUser(ctx context.Context, id uint) error
}
