package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/domain/subscription"
	vo "github.com/crateful-io/crateful/internal/domain/subscription/valueobjects"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/mappers"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
	"github.com/crateful-io/crateful/internal/shared/db"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(
	db *gorm.DB,
	logger logger.Interface,
) subscription.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(subscriptionEntity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		itemModels := r.mapper.ToItemModels(subscriptionEntity)
		for _, item := range itemModels {
			item.SubscriptionID = model.ID
		}
		if len(itemModels) > 0 {
			if err := tx.Create(itemModels).Error; err != nil {
				return fmt.Errorf("failed to create subscription items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("failed to create subscription in database", "error", err)
		return err
	}

	if err := subscriptionEntity.SetID(model.ID); err != nil {
		r.logger.Errorw("failed to set subscription ID", "error", err)
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created successfully", "id", model.ID, "sid", model.SID, "user_id", model.UserID)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.toEntityWithItems(tx, &model)
}

func (r *SubscriptionRepositoryImpl) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.toEntityWithItems(tx, &model)
}

func (r *SubscriptionRepositoryImpl) GetByUserID(ctx context.Context, userID uint) ([]*subscription.Subscription, error) {
	var subModels []*models.SubscriptionModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("user_id = ?", userID).Order("created_at DESC").Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to get subscriptions by user ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	return r.toEntitiesWithItems(tx, subModels)
}

func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, subscriptionEntity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(subscriptionEntity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	err = tx.Transaction(func(tx *gorm.DB) error {
		// Save writes zero and nil fields too, which matters here: a
		// successful renewal clears retry bookkeeping back to NULL.
		if err := tx.Save(model).Error; err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}

		// The item set is small; replace wholesale instead of diffing.
		if err := tx.Where("subscription_id = ?", model.ID).Delete(&models.SubscriptionItemModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscription items: %w", err)
		}
		itemModels := r.mapper.ToItemModels(subscriptionEntity)
		if len(itemModels) > 0 {
			if err := tx.Create(itemModels).Error; err != nil {
				return fmt.Errorf("failed to recreate subscription items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("failed to update subscription in database", "id", model.ID, "error", err)
		return err
	}

	return nil
}

func (r *SubscriptionRepositoryImpl) Delete(ctx context.Context, id uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Delete(&models.SubscriptionModel{}, id).Error; err != nil {
		r.logger.Errorw("failed to delete subscription", "id", id, "error", err)
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) FindDueForRenewal(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	var subModels []*models.SubscriptionModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.
		Where("status = ? AND next_delivery_date <= ?", string(vo.StatusActive), now).
		Order("next_delivery_date ASC").
		Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to find subscriptions due for renewal", "error", err)
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	return r.toEntitiesWithItems(tx, subModels)
}

func (r *SubscriptionRepositoryImpl) FindDueForRetry(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	var subModels []*models.SubscriptionModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.
		Where("status = ? AND next_retry_date IS NOT NULL AND next_retry_date <= ? AND failed_payment_count < ?",
			string(vo.StatusPaymentFailed), now, subscription.MaxPaymentFailures).
		Order("next_retry_date ASC").
		Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to find subscriptions due for retry", "error", err)
		return nil, fmt.Errorf("failed to find retryable subscriptions: %w", err)
	}

	return r.toEntitiesWithItems(tx, subModels)
}

func (r *SubscriptionRepositoryImpl) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Model(&models.SubscriptionModel{}).Where("status = ?", status).Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count subscriptions by status", "status", status, "error", err)
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	return count, nil
}

func (r *SubscriptionRepositoryImpl) toEntityWithItems(tx *gorm.DB, model *models.SubscriptionModel) (*subscription.Subscription, error) {
	var itemModels []*models.SubscriptionItemModel
	if err := tx.Where("subscription_id = ?", model.ID).Order("id ASC").Find(&itemModels).Error; err != nil {
		r.logger.Errorw("failed to load subscription items", "subscription_id", model.ID, "error", err)
		return nil, fmt.Errorf("failed to load subscription items: %w", err)
	}

	entity, err := r.mapper.ToEntity(model, itemModels)
	if err != nil {
		r.logger.Errorw("failed to map subscription model to entity", "id", model.ID, "error", err)
		return nil, fmt.Errorf("failed to map subscription: %w", err)
	}

	return entity, nil
}

func (r *SubscriptionRepositoryImpl) toEntitiesWithItems(tx *gorm.DB, subModels []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	entities := make([]*subscription.Subscription, 0, len(subModels))
	for _, model := range subModels {
		entity, err := r.toEntityWithItems(tx, model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
