package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/crateful-io/crateful/internal/shared/constants"
)

// OrderModel persists the order snapshot created on a successful renewal
// charge. Line items are stored as a JSON snapshot of the charged prices.
type OrderModel struct {
	ID             uint           `gorm:"primarykey"`
	OID            string         `gorm:"column:oid;uniqueIndex;not null;size:50;comment:Stripe-style ID: ord_xxx"`
	UserID         uint           `gorm:"not null;index:idx_order_user"`
	SubscriptionID uint           `gorm:"not null;index:idx_order_subscription"`
	Items          datatypes.JSON `gorm:"not null"`
	SubtotalCents  int64          `gorm:"not null"`
	ShippingCents  int64          `gorm:"not null"`
	TotalCents     int64          `gorm:"not null"`

	ShippingAddress string `gorm:"not null;size:500"`
	DeliveryType    string `gorm:"not null;size:20"`
	DeliveryNotes   string `gorm:"size:500"`

	TransactionID string    `gorm:"not null;size:100;index:idx_order_transaction"`
	AmountCents   int64     `gorm:"not null"`
	ChargedAt     time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (OrderModel) TableName() string {
	return constants.TableOrders
}
