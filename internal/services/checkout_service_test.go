package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ambre/internal/models"
)

type checkoutFixture struct {
	catalog *fakeCatalog
	orders  *fakeOrderStore
	card    *fakeCardProvider
	wallet  *fakeWalletProvider
	mailer  *fakeMailer
	service *CheckoutService
}

func newCheckoutFixture() *checkoutFixture {
	catalog := newFakeCatalog()
	orders := newFakeOrderStore()
	card := &fakeCardProvider{session: &CardCheckoutSession{ID: "cs_test_1", URL: "https://pay.example/cs_test_1"}}
	wallet := &fakeWalletProvider{order: &WalletOrder{ID: "PP-1", ApprovalURL: "https://paypal.example/approve/PP-1"}}
	mailer := &fakeMailer{}

	pricing := NewPricingService(catalog)
	service := NewCheckoutService(catalog, catalog, pricing, orders, card, wallet, mailer, nil, "EUR")

	return &checkoutFixture{
		catalog: catalog,
		orders:  orders,
		card:    card,
		wallet:  wallet,
		mailer:  mailer,
		service: service,
	}
}

func (f *checkoutFixture) addVariant(price string, stock int) *models.ProductVariant {
	variant := variantFixture(price, stock)
	f.catalog.variants[variant.ID] = variant
	return variant
}

func baseInput(variant *models.ProductVariant, quantity int, method string) SubmitOrderInput {
	return SubmitOrderInput{
		Items:         []CartLine{{VariantID: variant.ID, Quantity: quantity}},
		Customer:      CustomerInfo{Name: "Nora Lang", Email: "nora@example.com"},
		PaymentMethod: method,
		ShippingAddress: AddressInput{
			AddressLine: "12 Rue des Lilas",
			City:        "Lyon",
			Country:     "FR",
		},
	}
}

func TestSubmitOrderEmptyCart(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.service.SubmitOrder(context.Background(), SubmitOrderInput{PaymentMethod: models.PaymentMethodBank})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitOrderUnknownVariant(t *testing.T) {
	f := newCheckoutFixture()

	input := SubmitOrderInput{
		Items:         []CartLine{{VariantID: uuid.New(), Quantity: 1}},
		Customer:      CustomerInfo{Email: "nora@example.com"},
		PaymentMethod: models.PaymentMethodBank,
	}
	_, err := f.service.SubmitOrder(context.Background(), input)

	var invalid *InvalidItemError
	require.True(t, errors.As(err, &invalid))
	assert.Empty(t, f.orders.orders)
}

func TestSubmitOrderInsufficientStock(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 1)

	_, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 3, models.PaymentMethodBank))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, f.orders.orders)
}

func TestSubmitOrderUnknownPaymentMethod(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	_, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, "crypto"))
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
}

func TestSubmitOrderServerSidePricing(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	shippingID := uuid.New()
	f.catalog.shipping[shippingID] = &models.ShippingOption{
		BaseModel: models.BaseModel{ID: shippingID},
		Name:      "Standard",
		Price:     decimal.RequireFromString("4.99"),
		IsActive:  true,
	}

	input := baseInput(variant, 2, models.PaymentMethodBank)
	input.ShippingOptionID = &shippingID

	result, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, "99.98", order.Subtotal.StringFixed(2))
	assert.Equal(t, "4.99", order.ShippingCost.StringFixed(2))
	assert.Equal(t, "104.97", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "EUR", order.Currency)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "49.99", order.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "99.98", order.Items[0].LineTotal.StringFixed(2))
}

func TestSubmitOrderCouponDiscount(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("50.00", 10)

	f.catalog.coupons["WELCOME10"] = &models.Coupon{
		Code:     "WELCOME10",
		Type:     models.CouponTypePercent,
		Amount:   decimal.RequireFromString("10"),
		IsActive: true,
	}

	input := baseInput(variant, 2, models.PaymentMethodBank)
	input.CouponCode = "WELCOME10"

	result, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "100.00", result.Order.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", result.Order.DiscountAmount.StringFixed(2))
	assert.Equal(t, "90.00", result.Order.TotalAmount.StringFixed(2))
	assert.Equal(t, "WELCOME10", result.Order.CouponCode)
}

func TestSubmitOrderExpiredCouponIgnored(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("50.00", 10)

	expired := time.Now().Add(-time.Hour)
	f.catalog.coupons["OLD"] = &models.Coupon{
		Code:      "OLD",
		Type:      models.CouponTypeFixed,
		Amount:    decimal.RequireFromString("5.00"),
		IsActive:  true,
		ExpiresAt: &expired,
	}

	input := baseInput(variant, 1, models.PaymentMethodBank)
	input.CouponCode = "OLD"

	result, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, result.Order.DiscountAmount.IsZero())
	assert.Empty(t, result.Order.CouponCode)
}

func TestSubmitOrderCouponCodeCaseInsensitive(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("50.00", 10)

	f.catalog.coupons["WELCOME10"] = &models.Coupon{
		Code:     "WELCOME10",
		Type:     models.CouponTypePercent,
		Amount:   decimal.RequireFromString("10"),
		IsActive: true,
	}

	// Codes are stored upper-cased; client input is normalized to match.
	input := baseInput(variant, 2, models.PaymentMethodBank)
	input.CouponCode = "  welcome10 "

	result, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "10.00", result.Order.DiscountAmount.StringFixed(2))
	assert.Equal(t, "WELCOME10", result.Order.CouponCode)
}

func TestSubmitOrderCouponRedemptionCap(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("50.00", 10)

	f.catalog.coupons["ONCE"] = &models.Coupon{
		Code:           "ONCE",
		Type:           models.CouponTypeFixed,
		Amount:         decimal.RequireFromString("5.00"),
		IsActive:       true,
		MaxRedemptions: 1,
	}

	input := baseInput(variant, 1, models.PaymentMethodBank)
	input.CouponCode = "ONCE"

	first, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "5.00", first.Order.DiscountAmount.StringFixed(2))
	assert.Equal(t, 1, f.catalog.coupons["ONCE"].TimesRedeemed)

	// The single redemption is spent; the next order pays full price.
	second, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Order.DiscountAmount.IsZero())
	assert.Empty(t, second.Order.CouponCode)
	assert.Equal(t, 1, f.catalog.coupons["ONCE"].TimesRedeemed)
}

func TestSubmitOrderKeepsFrozenPrices(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 2, models.PaymentMethodBank))
	require.NoError(t, err)

	// A later catalog price change must not reach already-placed orders.
	f.catalog.variants[variant.ID].Price = decimal.RequireFromString("99.99")

	stored, err := f.orders.GetOrder(context.Background(), result.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "49.99", stored.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "99.98", stored.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "99.98", stored.Subtotal.StringFixed(2))
}

func TestSubmitOrderBadReferralCodeIgnored(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	input := baseInput(variant, 1, models.PaymentMethodBank)
	input.ReferralCode = "NOPE"

	result, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, result.Order.PartnerID)
}

func TestSubmitOrderApprovedPartnerAttached(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	partner := &models.Partner{
		BaseModel:    models.BaseModel{ID: uuid.New()},
		ReferralCode: "AMIE",
		Status:       models.PartnerStatusApproved,
	}
	f.catalog.partners["AMIE"] = partner

	input := baseInput(variant, 1, models.PaymentMethodBank)
	input.ReferralCode = "AMIE"

	result, err := f.service.SubmitOrder(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, result.Order.PartnerID)
	assert.Equal(t, partner.ID, *result.Order.PartnerID)
}

func TestSubmitOrderCardOpensSession(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodCard))
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/cs_test_1", result.PaymentURL)
	assert.Equal(t, models.OrderStatusPending, result.Order.Status)

	stored, err := f.orders.GetOrder(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", stored.StripeSessionID)
}

func TestSubmitOrderCardSessionFailureKeepsOrder(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)
	f.card.createErr = errors.New("stripe down")

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodCard))
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	// The order row survives for later payment reconciliation.
	require.NotNil(t, result)
	require.NotNil(t, result.Order)
	stored, getErr := f.orders.GetOrder(context.Background(), result.Order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestSubmitOrderPayPalStoresProviderOrder(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodPayPal))
	require.NoError(t, err)

	assert.Equal(t, "https://paypal.example/approve/PP-1", result.PaymentURL)

	stored, err := f.orders.GetOrder(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PP-1", stored.PayPalOrderID)
}

func TestSubmitOrderBankTransfer(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodBank))
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPendingPayment, result.Order.Status)
	assert.Equal(t, result.Order.OrderNumber, result.BankReference)
	assert.Empty(t, result.PaymentURL)
	assert.Zero(t, f.card.createCalls)
	assert.Zero(t, f.wallet.createCalls)
}

func TestSubmitOrderConfirmationEmailFailureDoesNotFail(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)
	f.mailer.err = errors.New("smtp down")

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodBank))
	require.NoError(t, err)
	assert.Equal(t, 1, f.mailer.confirmations)

	// The failed send leaves no event, so a retry may send again.
	assert.Zero(t, f.orders.eventsOf(result.Order.ID, models.EventConfirmationSent))
}

func TestSyncPaymentStatusCardPaid(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)
	f.card.sessionPaid = true

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodCard))
	require.NoError(t, err)

	synced, err := f.service.SyncPaymentStatus(context.Background(), result.Order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, synced.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, synced.Status)
}

func TestSyncPaymentStatusCardUnpaid(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)
	f.card.sessionPaid = false

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodCard))
	require.NoError(t, err)

	synced, err := f.service.SyncPaymentStatus(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, synced.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, synced.Status)
}

func TestSyncPaymentStatusPayPalApprovedCaptures(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)
	f.wallet.orderStatus = "APPROVED"

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodPayPal))
	require.NoError(t, err)

	synced, err := f.service.SyncPaymentStatus(context.Background(), result.Order.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.wallet.captureCalls)
	assert.Equal(t, models.PaymentStatusCompleted, synced.PaymentStatus)
}

func TestSyncPaymentStatusAlreadyCompletedIsNoop(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)
	f.card.sessionPaid = true

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodCard))
	require.NoError(t, err)

	_, err = f.service.SyncPaymentStatus(context.Background(), result.Order.ID)
	require.NoError(t, err)

	// Second poll must not consult the provider again.
	f.card.statusErr = errors.New("stripe down")
	synced, err := f.service.SyncPaymentStatus(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, synced.PaymentStatus)
}

func TestSyncPaymentStatusBankIsManual(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodBank))
	require.NoError(t, err)

	synced, err := f.service.SyncPaymentStatus(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, synced.PaymentStatus)
	assert.Equal(t, models.OrderStatusPendingPayment, synced.Status)
}

func TestSubmitOrderConfirmationRecordedOnce(t *testing.T) {
	f := newCheckoutFixture()
	variant := f.addVariant("49.99", 10)

	result, err := f.service.SubmitOrder(context.Background(), baseInput(variant, 1, models.PaymentMethodBank))
	require.NoError(t, err)

	assert.Equal(t, 1, f.mailer.confirmations)
	assert.Equal(t, 1, f.orders.eventsOf(result.Order.ID, models.EventConfirmationSent))
}
