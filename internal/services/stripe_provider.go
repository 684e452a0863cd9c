package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/refund"

	"github.com/example/ambre/internal/models"
)

// CardCheckoutSession is the provider-hosted payment page for an order.
type CardCheckoutSession struct {
	ID  string
	URL string
}

// CardProvider is the card payment collaborator: hosted checkout sessions,
// session-status reads for payment reconciliation, and refunds against the
// captured payment.
type CardProvider interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order) (*CardCheckoutSession, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
	RefundProvider
}

// StripeProvider implements CardProvider on the Stripe API. The package
// level stripe.Key is set at boot.
type StripeProvider struct {
	successURL string
	cancelURL  string
}

// NewStripeProvider constructs StripeProvider.
func NewStripeProvider(successURL, cancelURL string) *StripeProvider {
	return &StripeProvider{successURL: successURL, cancelURL: cancelURL}
}

// CreateCheckoutSession opens a hosted checkout session whose amount is
// derived from the order's server-side prices. The local order ID travels
// in the session metadata for reconciliation.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, order *models.Order) (*CardCheckoutSession, error) {
	currency := strings.ToLower(order.Currency)

	var lineItems []*stripe.CheckoutSessionLineItemParams
	if order.DiscountAmount.IsPositive() {
		// A discounted order is charged as one aggregated line so the
		// session amount matches the order total exactly.
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(minorUnits(order.TotalAmount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Order %s", order.OrderNumber)),
				},
			},
			Quantity: stripe.Int64(1),
		})
	} else {
		for _, item := range order.Items {
			name := item.ProductName
			if item.VariantLabel != "" {
				name = fmt.Sprintf("%s (%s)", name, item.VariantLabel)
			}
			lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(minorUnits(item.UnitPrice)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(int64(item.Quantity)),
			})
		}
		if order.ShippingCost.IsPositive() {
			lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(minorUnits(order.ShippingCost)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Shipping"),
					},
				},
				Quantity: stripe.Int64(1),
			})
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
		LineItems:  lineItems,
	}
	if order.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(order.CustomerEmail)
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("order_number", order.OrderNumber)
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}

	return &CardCheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// SessionPaid reports whether the checkout session's payment completed.
// Safe to poll repeatedly.
func (p *StripeProvider) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("retrieve stripe session %s: %v: %w", sessionID, err, ErrProviderUnavailable)
	}
	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// Refund retrieves the order's checkout session, extracts the payment
// reference and issues a full refund against it.
func (p *StripeProvider) Refund(ctx context.Context, order *models.Order) (*RefundOutcome, error) {
	if order.StripeSessionID == "" {
		return nil, fmt.Errorf("order %s has no stripe session: %w", order.OrderNumber, ErrNoPaymentReference)
	}

	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	sess, err := session.Get(order.StripeSessionID, getParams)
	if err != nil {
		return nil, fmt.Errorf("retrieve stripe session %s: %v: %w", order.StripeSessionID, err, ErrProviderUnavailable)
	}

	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return nil, fmt.Errorf("stripe session %s carries no payment intent: %w", order.StripeSessionID, ErrNoPaymentReference)
	}

	refundParams := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	refundParams.Context = ctx

	r, err := refund.New(refundParams)
	if err != nil {
		return nil, fmt.Errorf("stripe refund for payment intent %s: %v: %w", sess.PaymentIntent.ID, err, ErrProviderRefundFailed)
	}

	return &RefundOutcome{
		Provider: models.PaymentMethodCard,
		RefundID: r.ID,
		Amount:   order.TotalAmount,
	}, nil
}

// minorUnits converts a 2dp decimal amount to integer cents.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
