package billinggateway

import (
	"errors"
	"fmt"
)

// Well-known gateway error codes.
const (
	CodeCardDeclined       = "card_declined"
	CodeInsufficientFunds  = "insufficient_funds"
	CodeExpiredCard        = "expired_card"
	CodeAuthRequired       = "authentication_required"
	CodeRequestTimeout     = "request_timeout"
	CodeGatewayUnavailable = "gateway_unavailable"

	// CodeMissingPaymentMethod is raised locally, before any gateway call,
	// when a subscription lacks stored payment references. It is a
	// configuration error, not a declined charge.
	CodeMissingPaymentMethod = "missing_payment_method"
)

// GatewayError is the structured failure returned by a charge attempt.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// NewGatewayError builds a GatewayError with the given code and message.
func NewGatewayError(code, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message}
}

// AsGatewayError extracts a *GatewayError from err, or nil.
func AsGatewayError(err error) *GatewayError {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return nil
}

// IsConfigurationError reports whether the failure cannot be fixed by
// retrying — the user must re-link a payment method.
func (e *GatewayError) IsConfigurationError() bool {
	return e.Code == CodeMissingPaymentMethod
}
