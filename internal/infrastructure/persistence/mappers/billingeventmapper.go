package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/infrastructure/persistence/models"
)

type BillingEventMapper interface {
	ToEntity(model *models.BillingEventModel) (*subscription.BillingEvent, error)
	ToModel(entity *subscription.BillingEvent) (*models.BillingEventModel, error)
	ToEntities(models []*models.BillingEventModel) ([]*subscription.BillingEvent, error)
}

type BillingEventMapperImpl struct{}

func NewBillingEventMapper() BillingEventMapper {
	return &BillingEventMapperImpl{}
}

func (m *BillingEventMapperImpl) ToEntity(model *models.BillingEventModel) (*subscription.BillingEvent, error) {
	if model == nil {
		return nil, nil
	}

	var skipped []subscription.SkippedItem
	if model.SkippedItems != nil {
		if err := json.Unmarshal(model.SkippedItems, &skipped); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skipped items: %w", err)
		}
	}

	entity, err := subscription.ReconstructBillingEvent(subscription.BillingEventReconstructParams{
		ID:             model.ID,
		EID:            model.EID,
		SubscriptionID: model.SubscriptionID,
		UserID:         model.UserID,
		EventType:      subscription.BillingEventType(model.EventType),
		AmountCents:    model.AmountCents,
		TransactionID:  model.TransactionID,
		OrderID:        model.OrderID,
		SkippedItems:   skipped,
		ErrorCode:      model.ErrorCode,
		ErrorMessage:   model.ErrorMessage,
		CreatedAt:      model.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct billing event: %w", err)
	}

	return entity, nil
}

func (m *BillingEventMapperImpl) ToModel(entity *subscription.BillingEvent) (*models.BillingEventModel, error) {
	if entity == nil {
		return nil, nil
	}

	var skippedJSON datatypes.JSON
	if skipped := entity.SkippedItems(); len(skipped) > 0 {
		data, err := json.Marshal(skipped)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal skipped items: %w", err)
		}
		skippedJSON = data
	}

	return &models.BillingEventModel{
		ID:             entity.ID(),
		EID:            entity.EID(),
		SubscriptionID: entity.SubscriptionID(),
		UserID:         entity.UserID(),
		EventType:      string(entity.EventType()),
		AmountCents:    entity.AmountCents(),
		TransactionID:  entity.TransactionID(),
		OrderID:        entity.OrderID(),
		SkippedItems:   skippedJSON,
		ErrorCode:      entity.ErrorCode(),
		ErrorMessage:   entity.ErrorMessage(),
		CreatedAt:      entity.CreatedAt(),
	}, nil
}

func (m *BillingEventMapperImpl) ToEntities(eventModels []*models.BillingEventModel) ([]*subscription.BillingEvent, error) {
	entities := make([]*subscription.BillingEvent, 0, len(eventModels))
	for _, model := range eventModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
