package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
)

type fakeCatalog struct {
	variants map[uuid.UUID]*models.ProductVariant
	partners map[string]*models.Partner
	coupons  map[string]*models.Coupon
	shipping map[uuid.UUID]*models.ShippingOption
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		variants: map[uuid.UUID]*models.ProductVariant{},
		partners: map[string]*models.Partner{},
		coupons:  map[string]*models.Coupon{},
		shipping: map[uuid.UUID]*models.ShippingOption{},
	}
}

func (f *fakeCatalog) GetVariant(_ context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, ok := f.variants[id]
	if !ok {
		return nil, ErrVariantNotFound
	}
	return variant, nil
}

func (f *fakeCatalog) ApprovedPartnerByCode(_ context.Context, code string) (*models.Partner, error) {
	partner, ok := f.partners[code]
	if !ok || partner.Status != models.PartnerStatusApproved {
		return nil, gorm.ErrRecordNotFound
	}
	return partner, nil
}

func (f *fakeCatalog) ActiveCouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	coupon, ok := f.coupons[code]
	if !ok || !coupon.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return coupon, nil
}

func (f *fakeCatalog) RedeemCoupon(_ context.Context, code string) (bool, error) {
	coupon, ok := f.coupons[code]
	if !ok || !coupon.IsActive {
		return false, nil
	}
	if coupon.MaxRedemptions > 0 && coupon.TimesRedeemed >= coupon.MaxRedemptions {
		return false, nil
	}
	coupon.TimesRedeemed++
	return true, nil
}

func (f *fakeCatalog) ShippingOption(_ context.Context, id uuid.UUID) (*models.ShippingOption, error) {
	option, ok := f.shipping[id]
	if !ok || !option.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return option, nil
}

type fakeOrderStore struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*models.Order
	events  []models.OrderEvent
	nextSeq int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) GetOrderByNumber(_ context.Context, number string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.OrderNumber == number {
			copied := *order
			return &copied, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (f *fakeOrderStore) UpdateOrder(_ context.Context, id uuid.UUID, fields map[string]any) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	applyOrderFields(order, fields)
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) MarkRefunded(_ context.Context, id uuid.UUID, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if order.PaymentStatus == models.PaymentStatusRefunded {
		return ErrAlreadyRefunded
	}
	applyOrderFields(order, fields)
	return nil
}

func (f *fakeOrderStore) DeleteOrder(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderStore) GenerateOrderNumber(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	return fmt.Sprintf("AMB-TEST-%05d", f.nextSeq), nil
}

func (f *fakeOrderStore) RecordEvent(_ context.Context, orderID uuid.UUID, eventType, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, models.OrderEvent{OrderID: orderID, Type: eventType, Detail: detail})
	return nil
}

func (f *fakeOrderStore) HasEvent(_ context.Context, orderID uuid.UUID, eventType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, event := range f.events {
		if event.OrderID == orderID && event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderStore) eventsOf(orderID uuid.UUID, eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, event := range f.events {
		if event.OrderID == orderID && event.Type == eventType {
			count++
		}
	}
	return count
}

func applyOrderFields(order *models.Order, fields map[string]any) {
	for key, value := range fields {
		str, _ := value.(string)
		switch key {
		case "status":
			order.Status = str
		case "payment_status":
			order.PaymentStatus = str
		case "stripe_session_id":
			order.StripeSessionID = str
		case "paypal_order_id":
			order.PayPalOrderID = str
		case "tracking_number":
			order.TrackingNumber = str
		case "notes":
			order.Notes = str
		case "admin_notes":
			order.AdminNotes = str
		}
	}
}

type fakeCardProvider struct {
	session      *CardCheckoutSession
	createErr    error
	createCalls  int
	sessionPaid  bool
	statusErr    error
	refundResult *RefundOutcome
	refundErr    error
	refundCalls  int
}

func (f *fakeCardProvider) CreateCheckoutSession(_ context.Context, _ *models.Order) (*CardCheckoutSession, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakeCardProvider) SessionPaid(_ context.Context, _ string) (bool, error) {
	if f.statusErr != nil {
		return false, f.statusErr
	}
	return f.sessionPaid, nil
}

func (f *fakeCardProvider) Refund(_ context.Context, _ *models.Order) (*RefundOutcome, error) {
	f.refundCalls++
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return f.refundResult, nil
}

type fakeWalletProvider struct {
	order        *WalletOrder
	createErr    error
	createCalls  int
	orderStatus  string
	statusErr    error
	captureErr   error
	captureCalls int
	refundResult *RefundOutcome
	refundErr    error
	refundCalls  int
}

func (f *fakeWalletProvider) CreateOrder(_ context.Context, _ *models.Order) (*WalletOrder, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.order, nil
}

func (f *fakeWalletProvider) OrderStatus(_ context.Context, _ string) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.orderStatus, nil
}

func (f *fakeWalletProvider) CaptureOrder(_ context.Context, _ string) error {
	f.captureCalls++
	return f.captureErr
}

func (f *fakeWalletProvider) Refund(_ context.Context, _ *models.Order) (*RefundOutcome, error) {
	f.refundCalls++
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return f.refundResult, nil
}

type fakeMailer struct {
	confirmations int
	refundNotices int
	err           error
}

func (f *fakeMailer) OrderConfirmation(_ *models.Order) error {
	f.confirmations++
	return f.err
}

func (f *fakeMailer) RefundNotice(_ *models.Order, _ *RefundOutcome) error {
	f.refundNotices++
	return f.err
}
