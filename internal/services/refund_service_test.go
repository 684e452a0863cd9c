package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ambre/internal/models"
)

func refundableOrder(method, paymentStatus string) *models.Order {
	return &models.Order{
		BaseModel:       models.BaseModel{ID: uuid.New()},
		OrderNumber:     "AMB-TEST-00042",
		Status:          models.OrderStatusProcessing,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   method,
		Currency:        "EUR",
		TotalAmount:     decimal.RequireFromString("104.97"),
		CustomerName:    "Nora Lang",
		CustomerEmail:   "nora@example.com",
		StripeSessionID: "cs_test_1",
		PayPalOrderID:   "PP-1",
	}
}

func newRefundFixture(card *fakeCardProvider, wallet *fakeWalletProvider) (*fakeOrderStore, *fakeMailer, *RefundService) {
	orders := newFakeOrderStore()
	mailer := &fakeMailer{}
	service := NewRefundService(orders, map[string]RefundProvider{
		models.PaymentMethodCard:   card,
		models.PaymentMethodPayPal: wallet,
	}, mailer, nil)
	return orders, mailer, service
}

func TestCancelAndRefundCompletedCardPayment(t *testing.T) {
	card := &fakeCardProvider{refundResult: &RefundOutcome{
		Provider: models.PaymentMethodCard,
		RefundID: "re_test_1",
		Amount:   decimal.RequireFromString("104.97"),
	}}
	orders, mailer, service := newRefundFixture(card, &fakeWalletProvider{})

	order := refundableOrder(models.PaymentMethodCard, models.PaymentStatusCompleted)
	require.NoError(t, orders.CreateOrder(context.Background(), order))

	outcome, err := service.CancelAndRefund(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, "re_test_1", outcome.RefundID)
	assert.Equal(t, "104.97", outcome.Amount.StringFixed(2))
	assert.False(t, outcome.Manual)
	assert.Equal(t, 1, card.refundCalls)

	stored, err := orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Contains(t, stored.Notes, "re_test_1")

	assert.Equal(t, 1, orders.eventsOf(order.ID, models.EventRefundIssued))
	assert.Equal(t, 1, orders.eventsOf(order.ID, models.EventCancelled))
	assert.Equal(t, 1, mailer.refundNotices)
}

func TestCancelAndRefundIsIdempotent(t *testing.T) {
	card := &fakeCardProvider{refundResult: &RefundOutcome{
		Provider: models.PaymentMethodCard,
		RefundID: "re_test_1",
		Amount:   decimal.RequireFromString("104.97"),
	}}
	orders, _, service := newRefundFixture(card, &fakeWalletProvider{})

	order := refundableOrder(models.PaymentMethodCard, models.PaymentStatusCompleted)
	require.NoError(t, orders.CreateOrder(context.Background(), order))

	_, err := service.CancelAndRefund(context.Background(), order.ID)
	require.NoError(t, err)

	// Second attempt must not reach the provider again.
	_, err = service.CancelAndRefund(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrNoRefundableCapture)
	assert.Equal(t, 1, card.refundCalls)
}

func TestCancelAndRefundBankNeverPaid(t *testing.T) {
	orders, _, service := newRefundFixture(&fakeCardProvider{}, &fakeWalletProvider{})

	order := refundableOrder(models.PaymentMethodBank, models.PaymentStatusPending)
	order.Status = models.OrderStatusPendingPayment
	require.NoError(t, orders.CreateOrder(context.Background(), order))

	outcome, err := service.CancelAndRefund(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Nil(t, outcome)

	stored, err := orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	// No money was captured, so the payment status stays as it was.
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Zero(t, orders.eventsOf(order.ID, models.EventRefundIssued))
	assert.Equal(t, 1, orders.eventsOf(order.ID, models.EventCancelled))
}

func TestCancelAndRefundBankCompletedIsManual(t *testing.T) {
	orders, _, service := newRefundFixture(&fakeCardProvider{}, &fakeWalletProvider{})

	order := refundableOrder(models.PaymentMethodBank, models.PaymentStatusCompleted)
	require.NoError(t, orders.CreateOrder(context.Background(), order))

	outcome, err := service.CancelAndRefund(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.True(t, outcome.Manual)
	assert.Empty(t, outcome.RefundID)
	assert.Equal(t, "104.97", outcome.Amount.StringFixed(2))

	stored, err := orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, 1, orders.eventsOf(order.ID, models.EventManualRefund))
}

func TestCancelAndRefundProviderFailureLeavesStateUntouched(t *testing.T) {
	wallet := &fakeWalletProvider{refundErr: ErrNoRefundableCapture}
	orders, mailer, service := newRefundFixture(&fakeCardProvider{}, wallet)

	order := refundableOrder(models.PaymentMethodPayPal, models.PaymentStatusCompleted)
	require.NoError(t, orders.CreateOrder(context.Background(), order))

	_, err := service.CancelAndRefund(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrNoRefundableCapture)

	stored, getErr := orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)
	assert.Zero(t, mailer.refundNotices)

	// The failure left the order refundable; a retry succeeds.
	wallet.refundErr = nil
	wallet.refundResult = &RefundOutcome{
		Provider: models.PaymentMethodPayPal,
		RefundID: "PPREF-1",
		Amount:   order.TotalAmount,
	}
	outcome, err := service.CancelAndRefund(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PPREF-1", outcome.RefundID)
}

func TestCancelAndRefundUnknownOrder(t *testing.T) {
	_, _, service := newRefundFixture(&fakeCardProvider{}, &fakeWalletProvider{})

	_, err := service.CancelAndRefund(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelAndRefundMailFailureDoesNotUndoRefund(t *testing.T) {
	card := &fakeCardProvider{refundResult: &RefundOutcome{
		Provider: models.PaymentMethodCard,
		RefundID: "re_test_2",
		Amount:   decimal.RequireFromString("104.97"),
	}}
	orders, mailer, service := newRefundFixture(card, &fakeWalletProvider{})
	mailer.err = errors.New("smtp down")

	order := refundableOrder(models.PaymentMethodCard, models.PaymentStatusCompleted)
	require.NoError(t, orders.CreateOrder(context.Background(), order))

	outcome, err := service.CancelAndRefund(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	stored, err := orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
}
