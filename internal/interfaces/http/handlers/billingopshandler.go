package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crateful-io/crateful/internal/application/billing/usecases"
	"github.com/crateful-io/crateful/internal/domain/subscription"
	apperrors "github.com/crateful-io/crateful/internal/shared/errors"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

const defaultBillingEventLimit = 50

// respondError writes an AppError with its mapped status code, or a generic
// 500 for anything unclassified.
func respondError(c *gin.Context, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// BillingOpsHandler exposes the operator surface of the billing engine:
// manual sweep triggers and the billing-event audit trail.
type BillingOpsHandler struct {
	processDueRenewalsUC    *usecases.ProcessDueRenewalsUseCase
	processPaymentRetriesUC *usecases.ProcessPaymentRetriesUseCase
	preparePaymentMethodUC  *usecases.PreparePaymentMethodUseCase
	subscriptionRepo        subscription.SubscriptionRepository
	billingEventRepo        subscription.BillingEventRepository
	logger                  logger.Interface
}

func NewBillingOpsHandler(
	processDueRenewalsUC *usecases.ProcessDueRenewalsUseCase,
	processPaymentRetriesUC *usecases.ProcessPaymentRetriesUseCase,
	preparePaymentMethodUC *usecases.PreparePaymentMethodUseCase,
	subscriptionRepo subscription.SubscriptionRepository,
	billingEventRepo subscription.BillingEventRepository,
	logger logger.Interface,
) *BillingOpsHandler {
	return &BillingOpsHandler{
		processDueRenewalsUC:    processDueRenewalsUC,
		processPaymentRetriesUC: processPaymentRetriesUC,
		preparePaymentMethodUC:  preparePaymentMethodUC,
		subscriptionRepo:        subscriptionRepo,
		billingEventRepo:        billingEventRepo,
		logger:                  logger,
	}
}

// TriggerRenewalSweep runs the renewal sweep synchronously and returns the
// summary. Intended for operators; the scheduler covers the normal path.
func (h *BillingOpsHandler) TriggerRenewalSweep(c *gin.Context) {
	summary, err := h.processDueRenewalsUC.Execute(c.Request.Context())
	if err != nil {
		h.logger.Errorw("manual renewal sweep failed", "error", err)
		respondError(c, apperrors.NewInternalError("renewal sweep failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"selected":  summary.Selected,
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"errors":    summary.Errors,
	})
}

// TriggerRetrySweep runs the payment retry sweep synchronously.
func (h *BillingOpsHandler) TriggerRetrySweep(c *gin.Context) {
	summary, err := h.processPaymentRetriesUC.Execute(c.Request.Context())
	if err != nil {
		h.logger.Errorw("manual retry sweep failed", "error", err)
		respondError(c, apperrors.NewInternalError("retry sweep failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"selected":  summary.Selected,
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"errors":    summary.Errors,
	})
}

type billingEventResponse struct {
	EID          string                     `json:"eid"`
	EventType    string                     `json:"event_type"`
	AmountCents  *int64                     `json:"amount_cents,omitempty"`
	Transaction  *string                    `json:"transaction_id,omitempty"`
	OrderID      *uint                      `json:"order_id,omitempty"`
	SkippedItems []subscription.SkippedItem `json:"skipped_items,omitempty"`
	ErrorCode    *string                    `json:"error_code,omitempty"`
	ErrorMessage *string                    `json:"error_message,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// ListBillingEvents returns the audit trail for one subscription, newest
// first.
func (h *BillingOpsHandler) ListBillingEvents(c *gin.Context) {
	sid := c.Param("sid")

	sub, err := h.subscriptionRepo.GetBySID(c.Request.Context(), sid)
	if err != nil {
		h.logger.Errorw("failed to load subscription for event listing", "sid", sid, "error", err)
		respondError(c, apperrors.NewInternalError("failed to load subscription"))
		return
	}
	if sub == nil {
		respondError(c, apperrors.NewNotFoundError("subscription not found"))
		return
	}

	limit := defaultBillingEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, apperrors.NewValidationError("invalid limit"))
			return
		}
		limit = parsed
	}

	events, err := h.billingEventRepo.ListBySubscriptionID(c.Request.Context(), sub.ID(), limit)
	if err != nil {
		h.logger.Errorw("failed to list billing events", "sid", sid, "error", err)
		respondError(c, apperrors.NewInternalError("failed to list billing events"))
		return
	}

	resp := make([]billingEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, billingEventResponse{
			EID:          ev.EID(),
			EventType:    string(ev.EventType()),
			AmountCents:  ev.AmountCents(),
			Transaction:  ev.TransactionID(),
			OrderID:      ev.OrderID(),
			SkippedItems: ev.SkippedItems(),
			ErrorCode:    ev.ErrorCode(),
			ErrorMessage: ev.ErrorMessage(),
			CreatedAt:    ev.CreatedAt(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_sid": sid,
		"events":           resp,
	})
}

type preparePaymentMethodRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// PreparePaymentMethod starts the gateway setup handshake for a
// subscription and returns the continuation token for the client.
func (h *BillingOpsHandler) PreparePaymentMethod(c *gin.Context) {
	sid := c.Param("sid")

	var req preparePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidationError("user_id is required"))
		return
	}

	result, err := h.preparePaymentMethodUC.Execute(c.Request.Context(), usecases.PreparePaymentMethodCommand{
		SubscriptionSID: sid,
		UserID:          req.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrSubscriptionNotFound):
			respondError(c, apperrors.NewNotFoundError("subscription not found"))
		case errors.Is(err, subscription.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "subscription does not belong to this user"})
		default:
			h.logger.Errorw("failed to prepare payment method", "sid", sid, "error", err)
			respondError(c, apperrors.NewInternalError("failed to prepare payment method"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customer_ref":       result.CustomerRef,
		"continuation_token": result.ContinuationToken,
	})
}
