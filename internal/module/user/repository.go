package user

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/pkg"
)

// userRepository implements domain.UserRepository using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository backed by the given GORM database.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// GetByEmail looks up a user by exact email address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// List returns one page of users matching q, ordered by id, and the total
// number of matches.
func (r *userRepository) List(ctx context.Context, q domain.UserQuery) ([]domain.User, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.User{}).Scopes(
		pkg.FilterWords(q.Filter),
		pkg.FilterActive(q.Active),
		pkg.FilterGender(q.Gender),
	)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	var users []domain.User
	if err := base.Scopes(pkg.Paginate(q)).Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, mapError(err)
	}
	return users, total, nil
}

// Update saves every column of an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return mapError(err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.User{}, id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Transaction runs fn with a repository bound to one database transaction.
func (r *userRepository) Transaction(ctx context.Context, fn func(repo domain.UserRepository) error) error {
	return pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		return fn(&userRepository{db: tx})
	})
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations from the message.
// The pure-Go SQLite driver does not translate them to gorm.ErrDuplicatedKey.
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
