package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
)

// Checkout validation errors.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// CustomerInfo is the contact snapshot captured at checkout.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// AddressInput is a semi-free-form address snapshot.
type AddressInput struct {
	AddressLine string `json:"address_line"`
	Apartment   string `json:"apartment"`
	City        string `json:"city"`
	District    string `json:"district"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

// SubmitOrderInput carries everything checkout needs. It has no price or
// total fields: those are always computed server-side.
type SubmitOrderInput struct {
	UserID           *uuid.UUID
	Items            []CartLine
	Customer         CustomerInfo
	ShippingAddress  AddressInput
	BillingAddress   *AddressInput
	PaymentMethod    string
	CouponCode       string
	ReferralCode     string
	ShippingOptionID *uuid.UUID
	Notes            string
}

// SubmitOrderResult is the checkout response. PaymentURL is set for card
// and wallet payments; BankReference for bank transfers.
type SubmitOrderResult struct {
	Order         *models.Order
	PaymentURL    string
	BankReference string
}

// ConfirmationNotifier sends the best-effort order confirmation.
type ConfirmationNotifier interface {
	OrderConfirmation(order *models.Order) error
}

// CheckoutService drives the end-to-end order submission flow.
type CheckoutService struct {
	catalog  StorefrontLookup
	variants CatalogLookup
	pricing  *PricingService
	orders   OrderPersistence
	card     CardProvider
	wallet   WalletProvider
	mailer   ConfirmationNotifier
	telegram *TelegramService
	currency string
}

// NewCheckoutService constructs CheckoutService.
func NewCheckoutService(catalog StorefrontLookup, variants CatalogLookup, pricing *PricingService, orders OrderPersistence, card CardProvider, wallet WalletProvider, mailer ConfirmationNotifier, telegram *TelegramService, currency string) *CheckoutService {
	return &CheckoutService{
		catalog:  catalog,
		variants: variants,
		pricing:  pricing,
		orders:   orders,
		card:     card,
		wallet:   wallet,
		mailer:   mailer,
		telegram: telegram,
		currency: currency,
	}
}

// SubmitOrder validates the cart, prices it against the catalog, persists
// the order and opens a provider payment session where one is needed.
// Validation failures abort before anything is written; a provider session
// failure after persistence leaves a pending unpaid order for later
// reconciliation.
func (s *CheckoutService) SubmitOrder(ctx context.Context, input SubmitOrderInput) (*SubmitOrderResult, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyCart
	}

	for _, line := range input.Items {
		if line.VariantID == uuid.Nil {
			return nil, &InvalidItemError{VariantID: line.VariantID, Reason: "variant id is required"}
		}
		if line.Quantity < 1 {
			return nil, &InvalidItemError{VariantID: line.VariantID, Reason: "quantity must be at least 1"}
		}

		variant, err := s.variants.GetVariant(ctx, line.VariantID)
		if err != nil {
			if errors.Is(err, ErrVariantNotFound) {
				return nil, &InvalidItemError{VariantID: line.VariantID, Reason: "variant not found"}
			}
			return nil, err
		}
		if !variant.IsActive {
			return nil, &InvalidItemError{VariantID: line.VariantID, Reason: "variant is not available"}
		}
		// Checkout-time check only; concurrent orders do not reserve
		// stock.
		if variant.StockQuantity < line.Quantity {
			return nil, fmt.Errorf("%w for variant %s: %d available, %d requested",
				ErrInsufficientStock, variant.SKU, variant.StockQuantity, line.Quantity)
		}
	}

	switch input.PaymentMethod {
	case models.PaymentMethodCard, models.PaymentMethodPayPal, models.PaymentMethodBank:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, input.PaymentMethod)
	}

	// A bad referral code never fails checkout; it is ignored.
	var partnerID *uuid.UUID
	if input.ReferralCode != "" {
		partner, err := s.catalog.ApprovedPartnerByCode(ctx, input.ReferralCode)
		if err == nil {
			partnerID = &partner.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	snapshots, subtotal, err := s.pricing.ComputeLineSnapshots(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	discount, couponCode, err := s.resolveDiscount(ctx, input.CouponCode, subtotal)
	if err != nil {
		return nil, err
	}

	shipping := decimal.Zero
	if input.ShippingOptionID != nil {
		option, err := s.catalog.ShippingOption(ctx, *input.ShippingOptionID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		} else {
			shipping = option.Price
		}
	}

	discount, shipping, total := TotalsFor(subtotal, discount, shipping)

	number, err := s.orders.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	status := models.OrderStatusPending
	if input.PaymentMethod == models.PaymentMethodBank {
		status = models.OrderStatusPendingPayment
	}

	order := &models.Order{
		OrderNumber:    number,
		UserID:         input.UserID,
		PartnerID:      partnerID,
		Status:         status,
		PaymentStatus:  models.PaymentStatusPending,
		PaymentMethod:  input.PaymentMethod,
		Currency:       s.currency,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingCost:   shipping,
		TotalAmount:    total,
		CouponCode:     couponCode,
		CustomerName:   input.Customer.Name,
		CustomerEmail:  input.Customer.Email,
		CustomerPhone:  input.Customer.Phone,
		Notes:          input.Notes,
		PlacedAt:       time.Now(),
	}
	applyShippingAddress(order, input.ShippingAddress)
	applyBillingAddress(order, input.BillingAddress)

	for _, snap := range snapshots {
		variantID := snap.VariantID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:        snap.ProductID,
			ProductVariantID: &variantID,
			ProductName:      snap.ProductName,
			VariantLabel:     snap.VariantLabel,
			Quantity:         snap.Quantity,
			UnitPrice:        snap.UnitPrice,
			LineTotal:        snap.LineTotal,
		})
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	result := &SubmitOrderResult{Order: order}

	switch input.PaymentMethod {
	case models.PaymentMethodCard:
		sess, err := s.card.CreateCheckoutSession(ctx, order)
		if err != nil {
			// The order row already exists; leave it pending and let
			// session-status reconciliation pick it up later.
			log.Printf("[Checkout] stripe session failed for order %s: %v", order.OrderNumber, err)
			return result, fmt.Errorf("card session for order %s: %v: %w", order.OrderNumber, err, ErrProviderUnavailable)
		}
		if _, err := s.orders.UpdateOrder(ctx, order.ID, map[string]any{"stripe_session_id": sess.ID}); err != nil {
			return result, err
		}
		order.StripeSessionID = sess.ID
		result.PaymentURL = sess.URL
	case models.PaymentMethodPayPal:
		walletOrder, err := s.wallet.CreateOrder(ctx, order)
		if err != nil {
			log.Printf("[Checkout] paypal order failed for order %s: %v", order.OrderNumber, err)
			return result, err
		}
		if _, err := s.orders.UpdateOrder(ctx, order.ID, map[string]any{"paypal_order_id": walletOrder.ID}); err != nil {
			return result, err
		}
		order.PayPalOrderID = walletOrder.ID
		result.PaymentURL = walletOrder.ApprovalURL
	case models.PaymentMethodBank:
		result.BankReference = order.OrderNumber
	}

	s.notifyConfirmation(ctx, order)

	return result, nil
}

// SyncPaymentStatus polls the payment provider for the order's payment
// state and aligns the local record. Idempotent: an order that is already
// completed or refunded is returned unchanged, and repeated polling of an
// unpaid session is harmless.
func (s *CheckoutService) SyncPaymentStatus(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == models.PaymentStatusCompleted || order.PaymentStatus == models.PaymentStatusRefunded {
		return order, nil
	}

	paid := false
	switch order.PaymentMethod {
	case models.PaymentMethodCard:
		if order.StripeSessionID == "" {
			return nil, fmt.Errorf("order %s has no stripe session: %w", order.OrderNumber, ErrNoPaymentReference)
		}
		paid, err = s.card.SessionPaid(ctx, order.StripeSessionID)
		if err != nil {
			return nil, err
		}
	case models.PaymentMethodPayPal:
		if order.PayPalOrderID == "" {
			return nil, fmt.Errorf("order %s has no paypal order reference: %w", order.OrderNumber, ErrNoPaymentReference)
		}
		status, err := s.wallet.OrderStatus(ctx, order.PayPalOrderID)
		if err != nil {
			return nil, err
		}
		switch status {
		case "APPROVED":
			// Buyer approved but money not yet taken; capture now.
			if err := s.wallet.CaptureOrder(ctx, order.PayPalOrderID); err != nil {
				return nil, err
			}
			paid = true
		case "COMPLETED":
			paid = true
		}
	default:
		// Bank transfers have no provider to ask; the operator marks them
		// paid by hand.
		return order, nil
	}

	if !paid {
		return order, nil
	}

	return s.orders.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_status": models.PaymentStatusCompleted,
		"status":         models.OrderStatusProcessing,
	})
}

// resolveDiscount turns a coupon code into a discount amount. Codes are
// normalized to the upper-cased trimmed form they are stored under. Codes
// that do not resolve to a usable coupon contribute no discount;
// client-sent discount figures are never consulted.
func (s *CheckoutService) resolveDiscount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return decimal.Zero, "", nil
	}

	coupon, err := s.catalog.ActiveCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, "", nil
		}
		return decimal.Zero, "", err
	}

	now := time.Now()
	if !coupon.StartsAt.IsZero() && now.Before(coupon.StartsAt) {
		return decimal.Zero, "", nil
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return decimal.Zero, "", nil
	}
	if subtotal.LessThan(coupon.MinSubtotal) {
		return decimal.Zero, "", nil
	}

	// Claim a redemption before granting the discount. The increment is
	// capped, so a spent coupon silently stops discounting.
	claimed, err := s.catalog.RedeemCoupon(ctx, coupon.Code)
	if err != nil {
		return decimal.Zero, "", err
	}
	if !claimed {
		return decimal.Zero, "", nil
	}

	var discount decimal.Decimal
	switch coupon.Type {
	case models.CouponTypePercent:
		discount = subtotal.Mul(coupon.Amount).Div(decimal.NewFromInt(100)).Round(2)
	default:
		discount = coupon.Amount
	}

	return discount, coupon.Code, nil
}

// notifyConfirmation sends the confirmation email and admin notification.
// Both are best-effort and guarded by the event log so retried checkouts
// do not double-send.
func (s *CheckoutService) notifyConfirmation(ctx context.Context, order *models.Order) {
	if s.mailer != nil && order.CustomerEmail != "" {
		sent, err := s.orders.HasEvent(ctx, order.ID, models.EventConfirmationSent)
		if err != nil {
			log.Printf("[Checkout] event lookup failed for order %s: %v", order.OrderNumber, err)
		}
		if err == nil && !sent {
			if err := s.mailer.OrderConfirmation(order); err != nil {
				log.Printf("[Checkout] confirmation email failed for order %s: %v", order.OrderNumber, err)
			} else if err := s.orders.RecordEvent(ctx, order.ID, models.EventConfirmationSent, order.CustomerEmail); err != nil {
				log.Printf("[Checkout] failed to record email event for order %s: %v", order.OrderNumber, err)
			}
		}
	}

	if s.telegram != nil {
		if err := s.telegram.NotifyNewOrder(order); err != nil {
			log.Printf("[Checkout] telegram notification failed for order %s: %v", order.OrderNumber, err)
		}
	}
}

func applyShippingAddress(order *models.Order, addr AddressInput) {
	order.ShippingAddressLine = addr.AddressLine
	order.ShippingApartment = addr.Apartment
	order.ShippingCity = addr.City
	order.ShippingDistrict = addr.District
	order.ShippingPostalCode = addr.PostalCode
	order.ShippingCountry = addr.Country
}

func applyBillingAddress(order *models.Order, addr *AddressInput) {
	if addr == nil {
		return
	}
	order.BillingAddressLine = addr.AddressLine
	order.BillingCity = addr.City
	order.BillingPostalCode = addr.PostalCode
	order.BillingCountry = addr.Country
}
