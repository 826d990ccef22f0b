package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/domain/catalog"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/mappers"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
	"github.com/crateful-io/crateful/internal/shared/db"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

// ProductRepositoryImpl is the read-only catalog lookup backing the
// inventory validator.
type ProductRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.ProductMapper
	logger logger.Interface
}

func NewProductRepository(
	db *gorm.DB,
	logger logger.Interface,
) catalog.ProductReader {
	return &ProductRepositoryImpl{
		db:     db,
		mapper: mappers.NewProductMapper(),
		logger: logger,
	}
}

func (r *ProductRepositoryImpl) GetByID(ctx context.Context, id uint) (*catalog.Product, error) {
	var model models.ProductModel

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		r.logger.Errorw("failed to get product by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map product model to entity", "id", id, "error", err)
		return nil, fmt.Errorf("failed to map product: %w", err)
	}

	return entity, nil
}
