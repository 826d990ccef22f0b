package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/crateful-io/crateful/internal/application/billing/usecases"
	"github.com/crateful-io/crateful/internal/shared/logger"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// userEmailResolver resolves the recipient address for a user id.
type userEmailResolver interface {
	EmailByUserID(ctx context.Context, userID uint) (string, error)
}

// SMTPDispatcher sends renewal outcome emails over SMTP.
type SMTPDispatcher struct {
	config SMTPConfig
	dialer *gomail.Dialer
	users  userEmailResolver
	logger logger.Interface
}

func NewSMTPDispatcher(config SMTPConfig, users userEmailResolver, logger logger.Interface) *SMTPDispatcher {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &SMTPDispatcher{
		config: config,
		dialer: dialer,
		users:  users,
		logger: logger,
	}
}

func (s *SMTPDispatcher) RenewalSucceeded(ctx context.Context, notice usecases.RenewalSuccessNotice) error {
	to, err := s.users.EmailByUserID(ctx, notice.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	var items strings.Builder
	for _, item := range notice.ChargedItems {
		fmt.Fprintf(&items, "- %s x%d: %s\n", item.Name, item.Quantity, formatCents(item.LineTotalCents()))
	}
	skippedSection := ""
	if len(notice.SkippedItems) > 0 {
		var skipped strings.Builder
		for _, item := range notice.SkippedItems {
			fmt.Fprintf(&skipped, "- product #%d x%d: %s\n", item.ProductID, item.Quantity, item.Reason)
		}
		skippedSection = fmt.Sprintf(`
Some items could not be included this time:
%s
They stay on your subscription and will be included again once available.
`, skipped.String())
	}

	subject := "Your delivery is confirmed"
	plainBody := fmt.Sprintf(`Your recurring delivery has been confirmed.

Order: %s
Charged: %s
%s%s
Next delivery: %s

Thanks for subscribing!
`, notice.OrderOID, formatCents(notice.AmountCents), items.String(), skippedSection, formatDate(notice.NextDeliveryDate))

	return s.sendEmail(to, subject, plainBody)
}

func (s *SMTPDispatcher) RenewalPostponed(ctx context.Context, notice usecases.RenewalPostponedNotice) error {
	to, err := s.users.EmailByUserID(ctx, notice.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	var skipped strings.Builder
	for _, item := range notice.SkippedItems {
		fmt.Fprintf(&skipped, "- product #%d x%d: %s\n", item.ProductID, item.Quantity, item.Reason)
	}

	subject := "Your delivery was postponed"
	plainBody := fmt.Sprintf(`None of the items on your subscription were available this cycle, so we postponed your delivery. You have not been charged.

%s
We'll try again on %s.
`, skipped.String(), formatDate(notice.NextDeliveryDate))

	return s.sendEmail(to, subject, plainBody)
}

func (s *SMTPDispatcher) PaymentFailed(ctx context.Context, notice usecases.PaymentFailedNotice) error {
	to, err := s.users.EmailByUserID(ctx, notice.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	retryLine := "We will not retry automatically."
	if notice.NextRetryDate != nil {
		retryLine = fmt.Sprintf("We'll automatically retry on %s.", formatDate(*notice.NextRetryDate))
	}
	actionLine := "Please check that your card is valid and has sufficient funds."
	if notice.PaymentMethodRequired {
		actionLine = "Your subscription has no usable payment method on file. Please add one for the retry to succeed."
	}

	subject := "We couldn't process your payment"
	plainBody := fmt.Sprintf(`The payment for your recurring delivery failed (attempt %d of 3).

Reason: %s

%s
%s
`, notice.AttemptNumber, notice.ErrorMessage, retryLine, actionLine)

	return s.sendEmail(to, subject, plainBody)
}

func (s *SMTPDispatcher) SubscriptionExpired(ctx context.Context, notice usecases.SubscriptionExpiredNotice) error {
	to, err := s.users.EmailByUserID(ctx, notice.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	subject := "Your subscription has ended"
	plainBody := fmt.Sprintf(`After three failed payment attempts your subscription has expired and no further deliveries are scheduled.

Last error: %s

You can start a new subscription at any time from your account page.
`, notice.ErrorMessage)

	return s.sendEmail(to, subject, plainBody)
}

func (s *SMTPDispatcher) sendEmail(to, subject, plainBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
