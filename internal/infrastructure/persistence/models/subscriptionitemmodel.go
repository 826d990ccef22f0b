package models

import (
	"time"

	"github.com/crateful-io/crateful/internal/shared/constants"
)

// SubscriptionItemModel represents one product line on a subscription. No
// price column: prices are resolved from the catalog at billing time.
type SubscriptionItemModel struct {
	ID             uint `gorm:"primarykey"`
	SubscriptionID uint `gorm:"not null;index:idx_subscription_item"`
	ProductID      uint `gorm:"not null;index:idx_item_product"`
	Quantity       int  `gorm:"not null;default:1"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionItemModel) TableName() string {
	return constants.TableSubscriptionItems
}
