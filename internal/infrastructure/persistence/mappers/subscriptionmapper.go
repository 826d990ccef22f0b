package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/crateful-io/crateful/internal/domain/subscription"
	vo "github.com/crateful-io/crateful/internal/domain/subscription/valueobjects"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel, itemModels []*models.SubscriptionItemModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error)
	ToItemModels(entity *subscription.Subscription) []*models.SubscriptionItemModel
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel, itemModels []*models.SubscriptionItemModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	cadence, err := vo.ParseCadence(model.Cadence)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cadence: %w", err)
	}

	status := vo.SubscriptionStatus(model.Status)
	if !vo.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}

	deliveryType, err := vo.ParseDeliveryType(model.DeliveryType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse delivery type: %w", err)
	}

	items := make([]subscription.Item, 0, len(itemModels))
	for _, im := range itemModels {
		items = append(items, subscription.ReconstructItem(im.ProductID, im.Quantity))
	}

	var metadata map[string]interface{}
	if model.Metadata != nil {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	entity, err := subscription.Reconstruct(subscription.ReconstructParams{
		ID:                     model.ID,
		SID:                    model.SID,
		UUID:                   model.UUID,
		UserID:                 model.UserID,
		Cadence:                cadence,
		Status:                 status,
		Items:                  items,
		NextDeliveryDate:       model.NextDeliveryDate,
		LastDeliveryDate:       model.LastDeliveryDate,
		FailedPaymentCount:     model.FailedPaymentCount,
		LastBillingAttempt:     model.LastBillingAttempt,
		LastBillingError:       model.LastBillingError,
		NextRetryDate:          model.NextRetryDate,
		GatewayCustomerID:      model.GatewayCustomerID,
		GatewayPaymentMethodID: model.GatewayPaymentMethodID,
		ShippingAddress:        model.ShippingAddress,
		DeliveryType:           deliveryType,
		DeliveryNotes:          model.DeliveryNotes,
		CancelledAt:            model.CancelledAt,
		CancelReason:           model.CancelReason,
		Metadata:               metadata,
		Version:                model.Version,
		CreatedAt:              model.CreatedAt,
		UpdatedAt:              model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}

	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadataJSON datatypes.JSON
	if metadata := entity.Metadata(); len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = data
	}

	return &models.SubscriptionModel{
		ID:                     entity.ID(),
		SID:                    entity.SID(),
		UUID:                   entity.UUID(),
		UserID:                 entity.UserID(),
		Cadence:                entity.Cadence().String(),
		Status:                 entity.Status().String(),
		NextDeliveryDate:       entity.NextDeliveryDate(),
		LastDeliveryDate:       entity.LastDeliveryDate(),
		FailedPaymentCount:     entity.FailedPaymentCount(),
		LastBillingAttempt:     entity.LastBillingAttempt(),
		LastBillingError:       entity.LastBillingError(),
		NextRetryDate:          entity.NextRetryDate(),
		GatewayCustomerID:      entity.GatewayCustomerID(),
		GatewayPaymentMethodID: entity.GatewayPaymentMethodID(),
		ShippingAddress:        entity.ShippingAddress(),
		DeliveryType:           entity.DeliveryType().String(),
		DeliveryNotes:          entity.DeliveryNotes(),
		CancelledAt:            entity.CancelledAt(),
		CancelReason:           entity.CancelReason(),
		Metadata:               metadataJSON,
		Version:                entity.Version(),
		CreatedAt:              entity.CreatedAt(),
		UpdatedAt:              entity.UpdatedAt(),
	}, nil
}

// ToItemModels flattens the entity's items for the subscription_items table.
// SubscriptionID is filled by the repository once the parent row exists.
func (m *SubscriptionMapperImpl) ToItemModels(entity *subscription.Subscription) []*models.SubscriptionItemModel {
	if entity == nil {
		return nil
	}
	itemModels := make([]*models.SubscriptionItemModel, 0, len(entity.Items()))
	for _, item := range entity.Items() {
		itemModels = append(itemModels, &models.SubscriptionItemModel{
			SubscriptionID: entity.ID(),
			ProductID:      item.ProductID(),
			Quantity:       item.Quantity(),
		})
	}
	return itemModels
}
