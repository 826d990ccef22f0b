package valueobjects

type SubscriptionStatus string

const (
	StatusActive        SubscriptionStatus = "active"
	StatusPaused        SubscriptionStatus = "paused"
	StatusPaymentFailed SubscriptionStatus = "payment_failed"
	StatusCancelled     SubscriptionStatus = "cancelled"
	StatusExpired       SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsBillable reports whether the renewal sweep may pick this subscription up.
func (s SubscriptionStatus) IsBillable() bool {
	return s == StatusActive
}

// IsRetryable reports whether the retry sweep may pick this subscription up.
func (s SubscriptionStatus) IsRetryable() bool {
	return s == StatusPaymentFailed
}

// IsTerminal reports whether the subscription can never be billed again.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	transitions := map[SubscriptionStatus][]SubscriptionStatus{
		StatusActive:        {StatusPaused, StatusPaymentFailed, StatusCancelled, StatusExpired},
		StatusPaused:        {StatusActive, StatusCancelled},
		StatusPaymentFailed: {StatusActive, StatusCancelled, StatusExpired},
		StatusCancelled:     {},
		StatusExpired:       {},
	}

	allowed, exists := transitions[s]
	if !exists {
		return false
	}

	for _, a := range allowed {
		if a == target {
			return true
		}
	}
	return false
}

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusActive:        true,
	StatusPaused:        true,
	StatusPaymentFailed: true,
	StatusCancelled:     true,
	StatusExpired:       true,
}
