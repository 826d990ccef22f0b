package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
	"github.com/crateful-io/crateful/internal/shared/db"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// ErrUserNotFound marks a user id that no longer resolves.
var ErrUserNotFound = errors.New("user not found")

// UserRepositoryImpl resolves user contact details for gateway registration
// and notifications.
type UserRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserRepository(
	db *gorm.DB,
	logger logger.Interface,
) *UserRepositoryImpl {
	return &UserRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *UserRepositoryImpl) EmailByUserID(ctx context.Context, userID uint) (string, error) {
	var model models.UserModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Select("id", "email").First(&model, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		r.logger.Errorw("failed to get user by ID", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	return model.Email, nil
}
