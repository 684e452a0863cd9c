package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/ambre/internal/models"
)

// Refund error taxonomy. Each surfaces a distinct, actionable condition to
// the admin operator.
var (
	ErrProviderUnavailable  = errors.New("payment provider unavailable")
	ErrNoPaymentReference   = errors.New("no payment reference on order")
	ErrNoRefundableCapture  = errors.New("no refundable capture found")
	ErrProviderRefundFailed = errors.New("provider rejected the refund")
)

// RefundOutcome describes a completed refund.
type RefundOutcome struct {
	Provider string          `json:"provider"`
	RefundID string          `json:"refund_id,omitempty"`
	Amount   decimal.Decimal `json:"refund_amount"`
	// Manual marks orders with no automated provider (bank transfer);
	// money must be returned by hand.
	Manual bool `json:"manual"`
}

// RefundProvider issues a full refund for an order through one payment
// provider.
type RefundProvider interface {
	Refund(ctx context.Context, order *models.Order) (*RefundOutcome, error)
}

// RefundNotifier sends the best-effort refund notice.
type RefundNotifier interface {
	RefundNotice(order *models.Order, outcome *RefundOutcome) error
}

// RefundService reconciles local order state with the payment provider
// and drives the cancel-and-refund workflow.
type RefundService struct {
	orders    OrderPersistence
	providers map[string]RefundProvider
	mailer    RefundNotifier
	telegram  *TelegramService
}

// NewRefundService constructs RefundService. The providers map is keyed by
// payment method; methods without an entry (bank transfer) take the manual
// reconciliation path.
func NewRefundService(orders OrderPersistence, providers map[string]RefundProvider, mailer RefundNotifier, telegram *TelegramService) *RefundService {
	return &RefundService{
		orders:    orders,
		providers: providers,
		mailer:    mailer,
		telegram:  telegram,
	}
}

// CancelAndRefund cancels an order and returns any captured money. The
// provider call always completes before local state is mutated, so a
// provider failure leaves the order untouched and the operation safe to
// retry. A second call on a refunded order returns an error instead of
// issuing a duplicate refund.
func (s *RefundService) CancelAndRefund(ctx context.Context, orderID uuid.UUID) (*RefundOutcome, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentStatusRefunded {
		return nil, fmt.Errorf("order %s is already refunded: %w", order.OrderNumber, ErrNoRefundableCapture)
	}

	var outcome *RefundOutcome
	provider, automated := s.providers[order.PaymentMethod]

	switch {
	case !automated && order.PaymentStatus == models.PaymentStatusCompleted:
		// Bank transfer and anything else without an API: record the
		// refund locally and flag it for manual reconciliation.
		outcome = &RefundOutcome{
			Provider: order.PaymentMethod,
			Amount:   order.TotalAmount,
			Manual:   true,
		}
	case automated && order.PaymentStatus == models.PaymentStatusCompleted:
		outcome, err = provider.Refund(ctx, order)
		if err != nil {
			// No local transition: money may still be with the
			// provider and a retry must be able to find it.
			return nil, err
		}
	default:
		// No money was captured; cancel without calling the provider.
		outcome = nil
	}

	now := time.Now()
	fields := map[string]any{
		"status": models.OrderStatusCancelled,
	}
	if outcome != nil {
		fields["payment_status"] = models.PaymentStatusRefunded
		fields["notes"] = appendAudit(order.Notes, refundAudit(now, outcome))
	} else {
		fields["notes"] = appendAudit(order.Notes, fmt.Sprintf("[%s] cancelled before payment, no refund issued", now.Format(time.RFC3339)))
	}

	if err := s.orders.MarkRefunded(ctx, orderID, fields); err != nil {
		if errors.Is(err, ErrAlreadyRefunded) {
			return nil, fmt.Errorf("order %s is already refunded: %w", order.OrderNumber, ErrNoRefundableCapture)
		}
		return nil, err
	}

	if outcome != nil {
		detail := outcome.RefundID
		eventType := models.EventRefundIssued
		if outcome.Manual {
			eventType = models.EventManualRefund
			detail = "manual reconciliation required"
		}
		if err := s.orders.RecordEvent(ctx, orderID, eventType, detail); err != nil {
			log.Printf("[Refund] failed to record %s event for order %s: %v", eventType, order.OrderNumber, err)
		}
	}
	if err := s.orders.RecordEvent(ctx, orderID, models.EventCancelled, ""); err != nil {
		log.Printf("[Refund] failed to record cancellation event for order %s: %v", order.OrderNumber, err)
	}

	// Best-effort notifications; failures never undo the refund.
	if s.mailer != nil && order.CustomerEmail != "" {
		if err := s.mailer.RefundNotice(order, outcome); err != nil {
			log.Printf("[Refund] notification email failed for order %s: %v", order.OrderNumber, err)
		}
	}
	if s.telegram != nil && outcome != nil {
		if err := s.telegram.NotifyRefund(order.OrderNumber, outcome.RefundID, outcome.Amount.StringFixed(2), order.Currency); err != nil {
			log.Printf("[Refund] telegram notification failed for order %s: %v", order.OrderNumber, err)
		}
	}

	return outcome, nil
}

func refundAudit(now time.Time, outcome *RefundOutcome) string {
	if outcome.Manual {
		return fmt.Sprintf("[%s] marked refunded (%s), manual reconciliation required", now.Format(time.RFC3339), outcome.Provider)
	}
	return fmt.Sprintf("[%s] refunded %s via %s, refund id %s", now.Format(time.RFC3339), outcome.Amount.StringFixed(2), outcome.Provider, outcome.RefundID)
}

// appendAudit adds a fragment to the notes field without discarding the
// prior trail.
func appendAudit(notes, fragment string) string {
	if notes == "" {
		return fragment
	}
	return notes + "\n" + fragment
}
