package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/crateful-io/crateful/internal/shared/constants"
)

// BillingEventModel persists one append-only renewal audit record. Rows are
// only ever inserted; there is no UpdatedAt and no soft delete.
type BillingEventModel struct {
	ID             uint   `gorm:"primarykey"`
	EID            string `gorm:"column:eid;uniqueIndex;not null;size:50;comment:Stripe-style ID: evt_xxx"`
	SubscriptionID uint   `gorm:"not null;index:idx_event_subscription"`
	UserID         uint   `gorm:"not null;index:idx_event_user"`
	EventType      string `gorm:"not null;size:30;index:idx_event_type"`
	AmountCents    *int64
	TransactionID  *string `gorm:"size:100"`
	OrderID        *uint
	SkippedItems   datatypes.JSON
	ErrorCode      *string `gorm:"size:50"`
	ErrorMessage   *string `gorm:"size:500"`
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (BillingEventModel) TableName() string {
	return constants.TableBillingEvents
}
