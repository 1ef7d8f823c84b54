package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/simp-lee/userdesk/internal/domain"
)

const msgEmailTaken = "A user with this email already exists"

// userService implements domain.UserService.
type userService struct {
	repo domain.UserRepository
}

// NewUserService creates a new UserService with the given repository.
func NewUserService(repo domain.UserRepository) domain.UserService {
	return &userService{repo: repo}
}

// CreateUser rejects duplicate emails and stores the new user in one
// transaction. Gender is stored canonicalised.
func (s *userService) CreateUser(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	user := &domain.User{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		City:        strings.TrimSpace(in.City),
		ZipCode:     strings.TrimSpace(in.ZipCode),
		Country:     strings.TrimSpace(in.Country),
		DateOfBirth: strings.TrimSpace(in.DateOfBirth),
		Gender:      domain.FormatGender(strings.TrimSpace(in.Gender)),
		IsActive:    in.Active(),
	}

	err := s.repo.Transaction(ctx, func(repo domain.UserRepository) error {
		if err := ensureEmailFree(ctx, repo, user.Email, 0); err != nil {
			return err
		}
		return repo.Create(ctx, user)
	})
	if err != nil {
		return nil, emailConflict(err)
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

// ListUsers returns one page of list rows for q.
func (s *userService) ListUsers(ctx context.Context, q domain.UserQuery) (*domain.Page[domain.UserSummary], error) {
	users, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		rows = append(rows, domain.SummaryOf(&users[i]))
	}
	return domain.NewPage(rows, total, q.Page, q.PageSize), nil
}

// UpdateUser applies the non-nil fields of patch. Changing the email to one
// held by another user fails with CodeAlreadyExists.
func (s *userService) UpdateUser(ctx context.Context, id uint, patch domain.UserPatch) (*domain.User, error) {
	var user *domain.User
	err := s.repo.Transaction(ctx, func(repo domain.UserRepository) error {
		var err error
		user, err = repo.GetByID(ctx, id)
		if err != nil {
			return userNotFound(err)
		}

		if patch.Email != nil {
			if err := ensureEmailFree(ctx, repo, strings.TrimSpace(*patch.Email), user.ID); err != nil {
				return err
			}
		}
		applyPatch(user, patch)
		return repo.Update(ctx, user)
	})
	if err != nil {
		return nil, emailConflict(err)
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("User with ID %d not found", id), err)
		}
		return err
	}
	return nil
}

// ensureEmailFree fails when email belongs to a user other than self.
func ensureEmailFree(ctx context.Context, repo domain.UserRepository, email string, self uint) error {
	existing, err := repo.GetByEmail(ctx, email)
	switch {
	case domain.IsNotFound(err):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return domain.NewAppError(domain.CodeAlreadyExists, msgEmailTaken, nil)
	}
	return nil
}

func applyPatch(u *domain.User, p domain.UserPatch) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&u.FirstName, p.FirstName)
	set(&u.LastName, p.LastName)
	set(&u.Email, p.Email)
	set(&u.Phone, p.Phone)
	set(&u.Address, p.Address)
	set(&u.City, p.City)
	set(&u.ZipCode, p.ZipCode)
	set(&u.Country, p.Country)
	set(&u.DateOfBirth, p.DateOfBirth)
	if p.Gender != nil {
		u.Gender = domain.FormatGender(strings.TrimSpace(*p.Gender))
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}

func userNotFound(err error) error {
	if domain.IsNotFound(err) {
		return domain.NewAppError(domain.CodeNotFound, "User not found", err)
	}
	return err
}

// emailConflict gives a unique-index violation from the store the same
// message as the explicit pre-check.
func emailConflict(err error) error {
	if domain.IsAlreadyExists(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, msgEmailTaken, err)
	}
	return err
}
