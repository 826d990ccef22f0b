package billinggateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/crateful-io/crateful/internal/shared/logger"
)

// HTTPGatewayConfig holds the connection settings for the payment processor's
// REST API.
type HTTPGatewayConfig struct {
	BaseURL       string
	SecretKey     string
	ChargeTimeout time.Duration
}

// HTTPGateway implements BillingGateway against the processor's REST API.
// Every charge request carries an Idempotency-Key header so the processor
// deduplicates re-submitted attempts.
type HTTPGateway struct {
	config HTTPGatewayConfig
	client *http.Client
	logger logger.Interface
}

// Ensure HTTPGateway implements BillingGateway
var _ BillingGateway = (*HTTPGateway)(nil)

func NewHTTPGateway(config HTTPGatewayConfig, logger logger.Interface) *HTTPGateway {
	timeout := config.ChargeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type customerResponse struct {
	ID string `json:"id"`
}

type setupIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type chargeResponse struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount"`
	Status      string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// PreparePaymentMethod ensures a gateway customer exists for the user, then
// opens a setup handshake and returns its continuation token.
func (g *HTTPGateway) PreparePaymentMethod(ctx context.Context, req PrepareRequest) (*PrepareResponse, error) {
	customerRef := req.CustomerRef
	if customerRef == "" {
		var customer customerResponse
		payload := map[string]any{
			"email": req.Email,
			"metadata": map[string]string{
				"user_id": strconv.FormatUint(uint64(req.UserID), 10),
			},
		}
		if err := g.post(ctx, "/v1/customers", payload, "", &customer); err != nil {
			return nil, fmt.Errorf("failed to create gateway customer: %w", err)
		}
		customerRef = customer.ID
	}

	var intent setupIntentResponse
	payload := map[string]any{
		"customer": customerRef,
		"usage":    "off_session",
	}
	if err := g.post(ctx, "/v1/setup_intents", payload, "", &intent); err != nil {
		return nil, fmt.Errorf("failed to create setup intent: %w", err)
	}

	return &PrepareResponse{
		CustomerRef:       customerRef,
		ContinuationToken: intent.ClientSecret,
	}, nil
}

// ChargeOffSession performs exactly one customer-absent charge attempt.
func (g *HTTPGateway) ChargeOffSession(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	if req.CustomerRef == "" || req.PaymentMethodRef == "" {
		return nil, NewGatewayError(CodeMissingPaymentMethod,
			"customer and payment method references are required for an off-session charge")
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("charge amount must be positive, got %d", req.AmountCents)
	}

	payload := map[string]any{
		"customer":       req.CustomerRef,
		"payment_method": req.PaymentMethodRef,
		"amount":         req.AmountCents,
		"currency":       req.Currency,
		"off_session":    true,
		"confirm":        true,
		"metadata":       req.Metadata,
	}

	var charge chargeResponse
	if err := g.post(ctx, "/v1/charges", payload, req.IdempotencyKey, &charge); err != nil {
		return nil, err
	}

	g.logger.Infow("off-session charge succeeded",
		"transaction_id", charge.ID,
		"amount_cents", charge.AmountCents,
	)

	return &ChargeResponse{
		TransactionID: charge.ID,
		AmountCents:   charge.AmountCents,
	}, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload any, idempotencyKey string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.config.SecretKey)
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		// A timeout behaves like any other gateway failure: the caller
		// routes it into the retry policy.
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return NewGatewayError(CodeRequestTimeout, "gateway request timed out")
		}
		return NewGatewayError(CodeGatewayUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Code == "" {
			return NewGatewayError(CodeGatewayUnavailable,
				fmt.Sprintf("gateway returned status %d", resp.StatusCode))
		}
		return NewGatewayError(errResp.Error.Code, errResp.Error.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
