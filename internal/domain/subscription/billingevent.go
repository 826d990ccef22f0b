package subscription

import (
	"fmt"
	"time"

	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/id"
)

// BillingEventType classifies the outcome of one renewal attempt.
type BillingEventType string

const (
	EventRenewalSuccess      BillingEventType = "renewal_success"
	EventRenewalFailed       BillingEventType = "renewal_failed"
	EventSkippedItem         BillingEventType = "skipped_item"
	EventSubscriptionExpired BillingEventType = "subscription_expired"
)

var ValidBillingEventTypes = map[BillingEventType]bool{
	EventRenewalSuccess:      true,
	EventRenewalFailed:       true,
	EventSkippedItem:         true,
	EventSubscriptionExpired: true,
}

// SkippedItem records why one subscription item was excluded from a cycle.
type SkippedItem struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// BillingEvent is the append-only audit record of one renewal attempt.
// Exactly one is created per attempt; it is never mutated or deleted.
type BillingEvent struct {
	dbID           uint
	eid            string
	subscriptionID uint
	userID         uint
	eventType      BillingEventType
	amountCents    *int64
	transactionID  *string
	orderID        *uint
	skippedItems   []SkippedItem
	errorCode      *string
	errorMessage   *string
	createdAt      time.Time
}

func newBillingEvent(subscriptionID, userID uint, eventType BillingEventType) (*BillingEvent, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	return &BillingEvent{
		eid:            id.MustGenerateWithPrefix(id.PrefixBillingEvent, id.DefaultLength),
		subscriptionID: subscriptionID,
		userID:         userID,
		eventType:      eventType,
		createdAt:      biztime.NowUTC(),
	}, nil
}

// NewRenewalSuccessEvent records a successful charge, including any items
// skipped alongside a partial fulfillment.
func NewRenewalSuccessEvent(subscriptionID, userID uint, amountCents int64, transactionID string, orderID uint, skipped []SkippedItem) (*BillingEvent, error) {
	ev, err := newBillingEvent(subscriptionID, userID, EventRenewalSuccess)
	if err != nil {
		return nil, err
	}
	ev.amountCents = &amountCents
	ev.transactionID = &transactionID
	ev.orderID = &orderID
	ev.skippedItems = skipped
	return ev, nil
}

// NewRenewalFailedEvent records a failed charge attempt (failure counts 1-2).
func NewRenewalFailedEvent(subscriptionID, userID uint, amountCents int64, errorCode, errorMessage string) (*BillingEvent, error) {
	ev, err := newBillingEvent(subscriptionID, userID, EventRenewalFailed)
	if err != nil {
		return nil, err
	}
	ev.amountCents = &amountCents
	ev.errorCode = &errorCode
	ev.errorMessage = &errorMessage
	return ev, nil
}

// NewSkippedCycleEvent records a cycle where every item was unavailable and
// no charge was attempted.
func NewSkippedCycleEvent(subscriptionID, userID uint, skipped []SkippedItem) (*BillingEvent, error) {
	ev, err := newBillingEvent(subscriptionID, userID, EventSkippedItem)
	if err != nil {
		return nil, err
	}
	ev.skippedItems = skipped
	return ev, nil
}

// NewSubscriptionExpiredEvent records the terminal third failure.
func NewSubscriptionExpiredEvent(subscriptionID, userID uint, errorCode, errorMessage string) (*BillingEvent, error) {
	ev, err := newBillingEvent(subscriptionID, userID, EventSubscriptionExpired)
	if err != nil {
		return nil, err
	}
	ev.errorCode = &errorCode
	ev.errorMessage = &errorMessage
	return ev, nil
}

// BillingEventReconstructParams carries every persisted field of an event.
type BillingEventReconstructParams struct {
	ID             uint
	EID            string
	SubscriptionID uint
	UserID         uint
	EventType      BillingEventType
	AmountCents    *int64
	TransactionID  *string
	OrderID        *uint
	SkippedItems   []SkippedItem
	ErrorCode      *string
	ErrorMessage   *string
	CreatedAt      time.Time
}

// ReconstructBillingEvent rebuilds an event from persistence.
func ReconstructBillingEvent(p BillingEventReconstructParams) (*BillingEvent, error) {
	if !ValidBillingEventTypes[p.EventType] {
		return nil, fmt.Errorf("invalid billing event type: %s", p.EventType)
	}
	return &BillingEvent{
		dbID:           p.ID,
		eid:            p.EID,
		subscriptionID: p.SubscriptionID,
		userID:         p.UserID,
		eventType:      p.EventType,
		amountCents:    p.AmountCents,
		transactionID:  p.TransactionID,
		orderID:        p.OrderID,
		skippedItems:   p.SkippedItems,
		errorCode:      p.ErrorCode,
		errorMessage:   p.ErrorMessage,
		createdAt:      p.CreatedAt,
	}, nil
}

func (e *BillingEvent) ID() uint                    { return e.dbID }
func (e *BillingEvent) EID() string                 { return e.eid }
func (e *BillingEvent) SubscriptionID() uint        { return e.subscriptionID }
func (e *BillingEvent) UserID() uint                { return e.userID }
func (e *BillingEvent) EventType() BillingEventType { return e.eventType }
func (e *BillingEvent) AmountCents() *int64         { return e.amountCents }
func (e *BillingEvent) TransactionID() *string      { return e.transactionID }
func (e *BillingEvent) OrderID() *uint              { return e.orderID }
func (e *BillingEvent) SkippedItems() []SkippedItem { return e.skippedItems }
func (e *BillingEvent) ErrorCode() *string          { return e.errorCode }
func (e *BillingEvent) ErrorMessage() *string       { return e.errorMessage }
func (e *BillingEvent) CreatedAt() time.Time        { return e.createdAt }

// SetID sets the event ID (only for persistence layer use)
func (e *BillingEvent) SetID(dbID uint) error {
	if e.dbID != 0 {
		return fmt.Errorf("billing event ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("billing event ID cannot be zero")
	}
	e.dbID = dbID
	return nil
}
