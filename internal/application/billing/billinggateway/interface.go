// Package billinggateway adapts the payment processor's stored-payment-method
// capabilities: the setup handshake that stores a method for future
// unattended use, and the off-session charge against a stored method.
package billinggateway

import "context"

// BillingGateway is the payment processor surface consumed by the billing
// engine. Implementations perform exactly one charge attempt per
// ChargeOffSession call; retry is a higher-level policy.
type BillingGateway interface {
	// PreparePaymentMethod obtains or creates a gateway customer record for
	// the user and begins a "store a payment method for future unattended
	// use" handshake. No money moves. The returned continuation token is
	// handed to the client to complete the handshake.
	PreparePaymentMethod(ctx context.Context, req PrepareRequest) (*PrepareResponse, error)

	// ChargeOffSession attempts an immediate, customer-absent charge against
	// a stored payment method. Exactly one attempt is made; failures come
	// back as *GatewayError.
	ChargeOffSession(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
}

// PrepareRequest identifies the user starting a payment-method setup.
type PrepareRequest struct {
	UserID uint
	Email  string

	// CustomerRef is the existing gateway customer, empty when the user has
	// never been registered with the gateway.
	CustomerRef string
}

// PrepareResponse carries the setup handshake continuation.
type PrepareResponse struct {
	CustomerRef       string
	ContinuationToken string
}

// ChargeRequest describes one off-session charge attempt.
type ChargeRequest struct {
	CustomerRef      string
	PaymentMethodRef string
	AmountCents      int64
	Currency         string

	// IdempotencyKey is deterministic per (subscription, cycle date) so a
	// re-submitted attempt cannot double-charge.
	IdempotencyKey string

	// Metadata is correlation data attached to the gateway transaction.
	Metadata map[string]string
}

// ChargeResponse is the gateway's transaction success object.
type ChargeResponse struct {
	TransactionID string
	AmountCents   int64
}
