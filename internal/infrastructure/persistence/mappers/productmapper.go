package mappers

import (
	"fmt"

	"github.com/crateful-io/crateful/internal/domain/catalog"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
)

type ProductMapper interface {
	ToEntity(model *models.ProductModel) (*catalog.Product, error)
}

type ProductMapperImpl struct{}

func NewProductMapper() ProductMapper {
	return &ProductMapperImpl{}
}

func (m *ProductMapperImpl) ToEntity(model *models.ProductModel) (*catalog.Product, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := catalog.ReconstructProduct(
		model.ID,
		model.Name,
		model.PriceCents,
		model.IsActive,
		model.InStock,
		model.StockCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct product: %w", err)
	}

	return entity, nil
}
