package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	vo "github.com/crateful-io/crateful/internal/domain/subscription/valueobjects"
	"github.com/crateful-io/crateful/internal/shared/biztime"
	"github.com/crateful-io/crateful/internal/shared/id"
)

const (
	// MaxPaymentFailures is the number of failed charges after which a
	// subscription expires.
	MaxPaymentFailures = 3

	firstRetryDelay  = 3 * 24 * time.Hour
	secondRetryDelay = 4 * 24 * time.Hour // 7 days after the original failure
)

// Subscription is the recurring-delivery aggregate root.
type Subscription struct {
	dbID   uint
	sid    string
	uid    string
	userID uint

	cadence vo.Cadence
	status  vo.SubscriptionStatus
	items   []Item

	nextDeliveryDate time.Time
	lastDeliveryDate *time.Time

	failedPaymentCount int
	lastBillingAttempt *time.Time
	lastBillingError   *string
	nextRetryDate      *time.Time

	// Opaque gateway references; never raw card data.
	gatewayCustomerID      *string
	gatewayPaymentMethodID *string

	shippingAddress string
	deliveryType    vo.DeliveryType
	deliveryNotes   string

	cancelledAt  *time.Time
	cancelReason *string

	metadata  map[string]interface{}
	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewSubscription creates an active subscription with its first delivery date.
func NewSubscription(
	userID uint,
	cadence vo.Cadence,
	items []Item,
	deliveryType vo.DeliveryType,
	shippingAddress string,
	deliveryNotes string,
	nextDeliveryDate time.Time,
) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if err := cadence.Validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one item is required")
	}
	if shippingAddress == "" {
		return nil, fmt.Errorf("shipping address is required")
	}
	if nextDeliveryDate.IsZero() {
		return nil, fmt.Errorf("next delivery date is required")
	}

	now := biztime.NowUTC()
	return &Subscription{
		sid:              id.MustGenerateWithPrefix(id.PrefixSubscription, id.DefaultLength),
		uid:              uuid.NewString(),
		userID:           userID,
		cadence:          cadence,
		status:           vo.StatusActive,
		items:            items,
		nextDeliveryDate: nextDeliveryDate,
		shippingAddress:  shippingAddress,
		deliveryType:     deliveryType,
		deliveryNotes:    deliveryNotes,
		metadata:         make(map[string]interface{}),
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// ReconstructParams carries every persisted field of a subscription.
type ReconstructParams struct {
	ID                     uint
	SID                    string
	UUID                   string
	UserID                 uint
	Cadence                vo.Cadence
	Status                 vo.SubscriptionStatus
	Items                  []Item
	NextDeliveryDate       time.Time
	LastDeliveryDate       *time.Time
	FailedPaymentCount     int
	LastBillingAttempt     *time.Time
	LastBillingError       *string
	NextRetryDate          *time.Time
	GatewayCustomerID      *string
	GatewayPaymentMethodID *string
	ShippingAddress        string
	DeliveryType           vo.DeliveryType
	DeliveryNotes          string
	CancelledAt            *time.Time
	CancelReason           *string
	Metadata               map[string]interface{}
	Version                int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Reconstruct rebuilds a subscription from persistence.
func Reconstruct(p ReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !vo.ValidStatuses[p.Status] {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}
	if err := p.Cadence.Validate(); err != nil {
		return nil, err
	}

	metadata := p.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Subscription{
		dbID:                   p.ID,
		sid:                    p.SID,
		uid:                    p.UUID,
		userID:                 p.UserID,
		cadence:                p.Cadence,
		status:                 p.Status,
		items:                  p.Items,
		nextDeliveryDate:       p.NextDeliveryDate,
		lastDeliveryDate:       p.LastDeliveryDate,
		failedPaymentCount:     p.FailedPaymentCount,
		lastBillingAttempt:     p.LastBillingAttempt,
		lastBillingError:       p.LastBillingError,
		nextRetryDate:          p.NextRetryDate,
		gatewayCustomerID:      p.GatewayCustomerID,
		gatewayPaymentMethodID: p.GatewayPaymentMethodID,
		shippingAddress:        p.ShippingAddress,
		deliveryType:           p.DeliveryType,
		deliveryNotes:          p.DeliveryNotes,
		cancelledAt:            p.CancelledAt,
		cancelReason:           p.CancelReason,
		metadata:               metadata,
		version:                p.Version,
		createdAt:              p.CreatedAt,
		updatedAt:              p.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint                         { return s.dbID }
func (s *Subscription) SID() string                      { return s.sid }
func (s *Subscription) UUID() string                     { return s.uid }
func (s *Subscription) UserID() uint                     { return s.userID }
func (s *Subscription) Cadence() vo.Cadence              { return s.cadence }
func (s *Subscription) Status() vo.SubscriptionStatus    { return s.status }
func (s *Subscription) Items() []Item                    { return s.items }
func (s *Subscription) NextDeliveryDate() time.Time      { return s.nextDeliveryDate }
func (s *Subscription) LastDeliveryDate() *time.Time     { return s.lastDeliveryDate }
func (s *Subscription) FailedPaymentCount() int          { return s.failedPaymentCount }
func (s *Subscription) LastBillingAttempt() *time.Time   { return s.lastBillingAttempt }
func (s *Subscription) LastBillingError() *string        { return s.lastBillingError }
func (s *Subscription) NextRetryDate() *time.Time        { return s.nextRetryDate }
func (s *Subscription) GatewayCustomerID() *string       { return s.gatewayCustomerID }
func (s *Subscription) GatewayPaymentMethodID() *string  { return s.gatewayPaymentMethodID }
func (s *Subscription) ShippingAddress() string          { return s.shippingAddress }
func (s *Subscription) DeliveryType() vo.DeliveryType    { return s.deliveryType }
func (s *Subscription) DeliveryNotes() string            { return s.deliveryNotes }
func (s *Subscription) CancelledAt() *time.Time          { return s.cancelledAt }
func (s *Subscription) CancelReason() *string            { return s.cancelReason }
func (s *Subscription) Metadata() map[string]interface{} { return s.metadata }
func (s *Subscription) Version() int                     { return s.version }
func (s *Subscription) CreatedAt() time.Time             { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time             { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(dbID uint) error {
	if s.dbID != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if dbID == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.dbID = dbID
	return nil
}

func (s *Subscription) touch() {
	s.updatedAt = biztime.NowUTC()
	s.version++
}

// HasPaymentReferences reports whether both gateway references needed for an
// off-session charge are present.
func (s *Subscription) HasPaymentReferences() bool {
	return s.gatewayCustomerID != nil && *s.gatewayCustomerID != "" &&
		s.gatewayPaymentMethodID != nil && *s.gatewayPaymentMethodID != ""
}

// LinkPaymentMethod stores the gateway customer and payment-method references
// after a completed setup handshake.
func (s *Subscription) LinkPaymentMethod(customerRef, paymentMethodRef string) error {
	if customerRef == "" || paymentMethodRef == "" {
		return fmt.Errorf("gateway customer and payment method references are required")
	}
	s.gatewayCustomerID = &customerRef
	s.gatewayPaymentMethodID = &paymentMethodRef
	s.touch()
	return nil
}

// SetGatewayCustomerID records the gateway customer reference on its own,
// before a payment method has been stored.
func (s *Subscription) SetGatewayCustomerID(customerRef string) error {
	if customerRef == "" {
		return fmt.Errorf("gateway customer reference is required")
	}
	s.gatewayCustomerID = &customerRef
	s.touch()
	return nil
}

// UpdateItems replaces the item list (user item-modify action).
func (s *Subscription) UpdateItems(items []Item) error {
	if s.status.IsTerminal() {
		return fmt.Errorf("cannot modify items of a %s subscription", s.status)
	}
	if len(items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	s.items = items
	s.touch()
	return nil
}

// Pause suspends billing until resumed.
func (s *Subscription) Pause() error {
	if s.status == vo.StatusPaused {
		return nil
	}
	if !s.status.CanTransitionTo(vo.StatusPaused) {
		return fmt.Errorf("cannot pause subscription with status %s", s.status)
	}
	s.status = vo.StatusPaused
	s.touch()
	return nil
}

// Resume reactivates a paused subscription.
func (s *Subscription) Resume() error {
	if s.status == vo.StatusActive {
		return nil
	}
	if s.status != vo.StatusPaused {
		return fmt.Errorf("cannot resume subscription with status %s", s.status)
	}
	s.status = vo.StatusActive
	s.touch()
	return nil
}

// Cancel terminates the subscription with a reason.
func (s *Subscription) Cancel(reason string) error {
	if s.status == vo.StatusCancelled {
		return nil
	}
	if !s.status.CanTransitionTo(vo.StatusCancelled) {
		return fmt.Errorf("cannot cancel subscription with status %s", s.status)
	}
	if reason == "" {
		return fmt.Errorf("cancel reason is required")
	}

	now := biztime.NowUTC()
	s.status = vo.StatusCancelled
	s.cancelledAt = &now
	s.cancelReason = &reason
	s.updatedAt = now
	s.version++
	return nil
}

// PostponeDelivery advances the delivery date by one cadence step without a
// charge. Failure bookkeeping is untouched: a fully-skipped cycle is not a
// payment failure.
func (s *Subscription) PostponeDelivery() error {
	if s.status.IsTerminal() {
		return fmt.Errorf("cannot postpone delivery of a %s subscription", s.status)
	}
	s.nextDeliveryDate = s.cadence.NextDate(s.nextDeliveryDate)
	s.touch()
	return nil
}

// CompleteRenewal records a successful charge: the delivery date advances by
// one cadence step from its previous value (not from now, so a late sweep
// keeps cadence alignment), failure bookkeeping resets, and a past_due
// subscription returns to active.
func (s *Subscription) CompleteRenewal(now time.Time) error {
	if s.status != vo.StatusActive && s.status != vo.StatusPaymentFailed {
		return fmt.Errorf("cannot renew subscription with status %s", s.status)
	}

	s.nextDeliveryDate = s.cadence.NextDate(s.nextDeliveryDate)
	s.lastDeliveryDate = &now
	s.lastBillingAttempt = &now
	s.failedPaymentCount = 0
	s.lastBillingError = nil
	s.nextRetryDate = nil
	s.status = vo.StatusActive
	s.touch()
	return nil
}

// RecordPaymentFailure applies the retry policy for one failed charge and
// returns the post-increment failure count. The delivery date stays put
// until a charge succeeds.
//
//	count 1: payment_failed, retry in 3 days
//	count 2: payment_failed, retry in 4 more days (7 from the original failure)
//	count 3: expired, no further retries
func (s *Subscription) RecordPaymentFailure(now time.Time, gatewayError string) int {
	s.failedPaymentCount++
	s.lastBillingAttempt = &now
	s.lastBillingError = &gatewayError

	switch s.failedPaymentCount {
	case 1:
		retry := now.Add(firstRetryDelay)
		s.status = vo.StatusPaymentFailed
		s.nextRetryDate = &retry
	case 2:
		retry := now.Add(secondRetryDelay)
		s.status = vo.StatusPaymentFailed
		s.nextRetryDate = &retry
	default:
		s.status = vo.StatusExpired
		s.nextRetryDate = nil
	}

	s.touch()
	return s.failedPaymentCount
}

// Validate performs domain-level validation.
func (s *Subscription) Validate() error {
	if s.userID == 0 {
		return fmt.Errorf("user ID is required")
	}
	if !vo.ValidStatuses[s.status] {
		return fmt.Errorf("invalid status: %s", s.status)
	}
	if err := s.cadence.Validate(); err != nil {
		return err
	}
	if s.failedPaymentCount < 0 || s.failedPaymentCount > MaxPaymentFailures {
		return fmt.Errorf("failed payment count out of range: %d", s.failedPaymentCount)
	}
	for _, item := range s.items {
		if item.Quantity() < 1 {
			return fmt.Errorf("item quantity must be at least 1 (product %d)", item.ProductID())
		}
	}
	return nil
}
