package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/domain/order"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/mappers"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
	"github.com/crateful-io/crateful/internal/shared/db"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

type OrderRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.OrderMapper
	logger logger.Interface
}

func NewOrderRepository(
	db *gorm.DB,
	logger logger.Interface,
) order.OrderRepository {
	return &OrderRepositoryImpl{
		db:     db,
		mapper: mappers.NewOrderMapper(),
		logger: logger,
	}
}

func (r *OrderRepositoryImpl) Create(ctx context.Context, orderEntity *order.Order) error {
	model, err := r.mapper.ToModel(orderEntity)
	if err != nil {
		r.logger.Errorw("failed to map order entity to model", "error", err)
		return fmt.Errorf("failed to map order entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("failed to create order in database", "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err := orderEntity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set order ID: %w", err)
	}

	r.logger.Infow("order created successfully", "id", model.ID, "oid", model.OID, "subscription_id", model.SubscriptionID)
	return nil
}

func (r *OrderRepositoryImpl) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	var model models.OrderModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get order by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map order model to entity", "id", id, "error", err)
		return nil, fmt.Errorf("failed to map order: %w", err)
	}

	return entity, nil
}

func (r *OrderRepositoryImpl) GetByOID(ctx context.Context, oid string) (*order.Order, error) {
	var model models.OrderModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("oid = ?", oid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get order by OID", "oid", oid, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map order model to entity", "oid", oid, "error", err)
		return nil, fmt.Errorf("failed to map order: %w", err)
	}

	return entity, nil
}

func (r *OrderRepositoryImpl) GetBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*order.Order, error) {
	var orderModels []*models.OrderModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("subscription_id = ?", subscriptionID).Order("created_at DESC").Find(&orderModels).Error; err != nil {
		r.logger.Errorw("failed to get orders by subscription ID", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}

	entities, err := r.mapper.ToEntities(orderModels)
	if err != nil {
		r.logger.Errorw("failed to map order models", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to map orders: %w", err)
	}

	return entities, nil
}
