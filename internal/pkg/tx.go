package pkg

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// WithTx executes fn within a database transaction bound to ctx.
// It commits on success, rolls back on error or panic.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil && rbErr != gorm.ErrInvalidTransaction {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit().Error
}
