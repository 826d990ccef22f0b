package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNotOwner             = errors.New("subscription does not belong to this user")

	// ErrMissingPaymentReferences marks a subscription that cannot be charged
	// off-session because it has no stored gateway customer or payment-method
	// reference. This is a configuration error, not a declined charge: it
	// will never succeed on retry without user action.
	ErrMissingPaymentReferences = errors.New("subscription has no stored payment method")
)
