package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/mappers"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
	"github.com/crateful-io/crateful/internal/shared/db"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

type BillingEventRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.BillingEventMapper
	logger logger.Interface
}

func NewBillingEventRepository(
	db *gorm.DB,
	logger logger.Interface,
) subscription.BillingEventRepository {
	return &BillingEventRepositoryImpl{
		db:     db,
		mapper: mappers.NewBillingEventMapper(),
		logger: logger,
	}
}

func (r *BillingEventRepositoryImpl) Create(ctx context.Context, event *subscription.BillingEvent) error {
	model, err := r.mapper.ToModel(event)
	if err != nil {
		r.logger.Errorw("failed to map billing event to model", "error", err)
		return fmt.Errorf("failed to map billing event: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("failed to create billing event in database", "error", err)
		return fmt.Errorf("failed to create billing event: %w", err)
	}

	if err := event.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set billing event ID: %w", err)
	}

	return nil
}

func (r *BillingEventRepositoryImpl) ListBySubscriptionID(ctx context.Context, subscriptionID uint, limit int) ([]*subscription.BillingEvent, error) {
	var eventModels []*models.BillingEventModel

	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Where("subscription_id = ?", subscriptionID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&eventModels).Error; err != nil {
		r.logger.Errorw("failed to list billing events", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to list billing events: %w", err)
	}

	entities, err := r.mapper.ToEntities(eventModels)
	if err != nil {
		r.logger.Errorw("failed to map billing event models", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to map billing events: %w", err)
	}

	return entities, nil
}
