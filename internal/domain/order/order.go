// Package order holds the durable order record created on a successful
// renewal charge. An order is immutable history: item prices are snapshots
// of what was actually charged, never live catalog references.
package order

import (
	"fmt"
	"time"

	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/id"
)

// LineItem is a charged item snapshot at the price used.
type LineItem struct {
	ProductID      uint   `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// LineTotalCents returns unit price times quantity.
func (li LineItem) LineTotalCents() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// PaymentRecord references the gateway transaction that paid the order.
type PaymentRecord struct {
	TransactionID string    `json:"transaction_id"`
	AmountCents   int64     `json:"amount_cents"`
	ChargedAt     time.Time `json:"charged_at"`
}

// Order is the aggregate created on a successful subscription renewal.
type Order struct {
	dbID           uint
	oid            string
	userID         uint
	subscriptionID uint
	items          []LineItem
	subtotalCents  int64
	shippingCents  int64
	totalCents     int64

	// Shipping snapshot copied from the subscription at charge time.
	shippingAddress string
	deliveryType    string
	deliveryNotes   string

	payment   PaymentRecord
	createdAt time.Time
}

// NewFromRenewal creates the order snapshot for a charged renewal cycle.
func NewFromRenewal(
	userID, subscriptionID uint,
	items []LineItem,
	subtotalCents, shippingCents int64,
	shippingAddress, deliveryType, deliveryNotes string,
	payment PaymentRecord,
) (*Order, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}
	if payment.TransactionID == "" {
		return nil, fmt.Errorf("payment transaction ID is required")
	}

	total := subtotalCents + shippingCents
	if payment.AmountCents != total {
		return nil, fmt.Errorf("payment amount %d does not match order total %d", payment.AmountCents, total)
	}

	return &Order{
		oid:             id.MustGenerateWithPrefix(id.PrefixOrder, id.DefaultLength),
		userID:          userID,
		subscriptionID:  subscriptionID,
		items:           items,
		subtotalCents:   subtotalCents,
		shippingCents:   shippingCents,
		totalCents:      total,
		shippingAddress: shippingAddress,
		deliveryType:    deliveryType,
		deliveryNotes:   deliveryNotes,
		payment:         payment,
		createdAt:       biztime.NowUTC(),
	}, nil
}

// ReconstructParams carries every persisted field of an order.
type ReconstructParams struct {
	ID              uint
	OID             string
	UserID          uint
	SubscriptionID  uint
	Items           []LineItem
	SubtotalCents   int64
	ShippingCents   int64
	TotalCents      int64
	ShippingAddress string
	DeliveryType    string
	DeliveryNotes   string
	Payment         PaymentRecord
	CreatedAt       time.Time
}

// Reconstruct rebuilds an order from persistence.
func Reconstruct(p ReconstructParams) (*Order, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("order ID cannot be zero")
	}
	return &Order{
		dbID:            p.ID,
		oid:             p.OID,
		userID:          p.UserID,
		subscriptionID:  p.SubscriptionID,
		items:           p.Items,
		subtotalCents:   p.SubtotalCents,
		shippingCents:   p.ShippingCents,
		totalCents:      p.TotalCents,
		shippingAddress: p.ShippingAddress,
		deliveryType:    p.DeliveryType,
		deliveryNotes:   p.DeliveryNotes,
		payment:         p.Payment,
		createdAt:       p.CreatedAt,
	}, nil
}

func (o *Order) ID() uint                { return o.dbID }
func (o *Order) OID() string             { return o.oid }
func (o *Order) UserID() uint            { return o.userID }
func (o *Order) SubscriptionID() uint    { return o.subscriptionID }
func (o *Order) Items() []LineItem       { return o.items }
func (o *Order) SubtotalCents() int64    { return o.subtotalCents }
func (o *Order) ShippingCents() int64    { return o.shippingCents }
func (o *Order) TotalCents() int64       { return o.totalCents }
func (o *Order) ShippingAddress() string { return o.shippingAddress }
func (o *Order) DeliveryType() string    { return o.deliveryType }
func (o *Order) DeliveryNotes() string   { return o.deliveryNotes }
func (o *Order) Payment() PaymentRecord  { return o.payment }
func (o *Order) CreatedAt() time.Time    { return o.createdAt }

// SetID sets the order ID (only for persistence layer use)
func (o *Order) SetID(dbID uint) error {
	if o.dbID != 0 {
		return fmt.Errorf("order ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("order ID cannot be zero")
	}
	o.dbID = dbID
	return nil
}
