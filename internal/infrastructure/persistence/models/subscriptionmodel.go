package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/crateful-io/crateful/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for subscriptions
// This is the anti-corruption layer between domain and database
type SubscriptionModel struct {
	ID               uint      `gorm:"primarykey"`
	SID              string    `gorm:"column:sid;uniqueIndex;not null;size:50;comment:Stripe-style ID: sub_xxx"`
	UUID             string    `gorm:"uniqueIndex;not null;size:36"`
	UserID           uint      `gorm:"not null;index:idx_user_subscription"`
	Cadence          string    `gorm:"not null;size:30"`
	Status           string    `gorm:"not null;size:20;index:idx_status_next_delivery,priority:1"`
	NextDeliveryDate time.Time `gorm:"not null;index:idx_status_next_delivery,priority:2"`
	LastDeliveryDate *time.Time

	FailedPaymentCount int `gorm:"not null;default:0"`
	LastBillingAttempt *time.Time
	LastBillingError   *string    `gorm:"size:500"`
	NextRetryDate      *time.Time `gorm:"index:idx_next_retry"`

	GatewayCustomerID      *string `gorm:"size:100"`
	GatewayPaymentMethodID *string `gorm:"size:100"`

	ShippingAddress string `gorm:"not null;size:500"`
	DeliveryType    string `gorm:"not null;size:20;default:standard"`
	DeliveryNotes   string `gorm:"size:500"`

	CancelledAt  *time.Time
	CancelReason *string `gorm:"size:500"`
	Metadata     datatypes.JSON
	Version      int `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
