package usecases

import (
	"context"
	"fmt"

	"github.com/crateful-io/crateful/internal/application/billing/billinggateway"
	"github.com/crateful-io/crateful/internal/domain/subscription"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

type PreparePaymentMethodCommand struct {
	SubscriptionSID string
	UserID          uint
}

// PreparePaymentMethodResult carries the continuation token the client
// needs to finish collecting the payment method with the gateway.
type PreparePaymentMethodResult struct {
	CustomerRef       string
	ContinuationToken string
}

// PreparePaymentMethodUseCase registers the subscription's user with the
// billing gateway (once) and starts an off-session payment method setup.
// The returned continuation token is handed to the client; the gateway
// calls back with the payment method reference when collection finishes.
type PreparePaymentMethodUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	gateway          billinggateway.BillingGateway
	users            UserDirectory
	logger           logger.Interface
}

func NewPreparePaymentMethodUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	gateway billinggateway.BillingGateway,
	users UserDirectory,
	logger logger.Interface,
) *PreparePaymentMethodUseCase {
	return &PreparePaymentMethodUseCase{
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		users:            users,
		logger:           logger,
	}
}

func (uc *PreparePaymentMethodUseCase) Execute(ctx context.Context, cmd PreparePaymentMethodCommand) (*PreparePaymentMethodResult, error) {
	sub, err := uc.subscriptionRepo.GetBySID(ctx, cmd.SubscriptionSID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return nil, subscription.ErrSubscriptionNotFound
	}
	if sub.UserID() != cmd.UserID {
		return nil, subscription.ErrNotOwner
	}

	email, err := uc.users.EmailByUserID(ctx, sub.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user email: %w", err)
	}

	var existingRef string
	if sub.GatewayCustomerID() != nil {
		existingRef = *sub.GatewayCustomerID()
	}

	resp, err := uc.gateway.PreparePaymentMethod(ctx, billinggateway.PrepareRequest{
		UserID:      sub.UserID(),
		Email:       email,
		CustomerRef: existingRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare payment method: %w", err)
	}

	if existingRef == "" {
		if err := sub.SetGatewayCustomerID(resp.CustomerRef); err != nil {
			return nil, err
		}
		if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to persist gateway customer: %w", err)
		}
	}

	uc.logger.Infow("payment method setup started",
		"subscription_sid", sub.SID(),
		"user_id", sub.UserID(),
	)

	return &PreparePaymentMethodResult{
		CustomerRef:       resp.CustomerRef,
		ContinuationToken: resp.ContinuationToken,
	}, nil
}
