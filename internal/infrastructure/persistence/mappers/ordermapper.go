package mappers

import (
	"encoding/json"
	"fmt"

	"github.com/crateful-io/crateful/internal/domain/order"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
)

type OrderMapper interface {
	ToEntity(model *models.OrderModel) (*order.Order, error)
	ToModel(entity *order.Order) (*models.OrderModel, error)
	ToEntities(models []*models.OrderModel) ([]*order.Order, error)
}

type OrderMapperImpl struct{}

func NewOrderMapper() OrderMapper {
	return &OrderMapperImpl{}
}

func (m *OrderMapperImpl) ToEntity(model *models.OrderModel) (*order.Order, error) {
	if model == nil {
		return nil, nil
	}

	var items []order.LineItem
	if err := json.Unmarshal(model.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}

	entity, err := order.Reconstruct(order.ReconstructParams{
		ID:              model.ID,
		OID:             model.OID,
		UserID:          model.UserID,
		SubscriptionID:  model.SubscriptionID,
		Items:           items,
		SubtotalCents:   model.SubtotalCents,
		ShippingCents:   model.ShippingCents,
		TotalCents:      model.TotalCents,
		ShippingAddress: model.ShippingAddress,
		DeliveryType:    model.DeliveryType,
		DeliveryNotes:   model.DeliveryNotes,
		Payment: order.PaymentRecord{
			TransactionID: model.TransactionID,
			AmountCents:   model.AmountCents,
			ChargedAt:     model.ChargedAt,
		},
		CreatedAt: model.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct order entity: %w", err)
	}

	return entity, nil
}

func (m *OrderMapperImpl) ToModel(entity *order.Order) (*models.OrderModel, error) {
	if entity == nil {
		return nil, nil
	}

	itemsJSON, err := json.Marshal(entity.Items())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}

	payment := entity.Payment()
	return &models.OrderModel{
		ID:              entity.ID(),
		OID:             entity.OID(),
		UserID:          entity.UserID(),
		SubscriptionID:  entity.SubscriptionID(),
		Items:           itemsJSON,
		SubtotalCents:   entity.SubtotalCents(),
		ShippingCents:   entity.ShippingCents(),
		TotalCents:      entity.TotalCents(),
		ShippingAddress: entity.ShippingAddress(),
		DeliveryType:    entity.DeliveryType(),
		DeliveryNotes:   entity.DeliveryNotes(),
		TransactionID:   payment.TransactionID,
		AmountCents:     payment.AmountCents,
		ChargedAt:       payment.ChargedAt,
		CreatedAt:       entity.CreatedAt(),
	}, nil
}

func (m *OrderMapperImpl) ToEntities(orderModels []*models.OrderModel) ([]*order.Order, error) {
	entities := make([]*order.Order, 0, len(orderModels))
	for _, model := range orderModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
