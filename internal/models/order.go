package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending        = "pending"
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusFailed    = "failed"
)

// Payment methods.
const (
	PaymentMethodCard   = "card"
	PaymentMethodPayPal = "paypal"
	PaymentMethodBank   = "bank"
)

// Order is the financial record of a purchase. Monetary columns are exact
// decimals; customer contact and addresses are snapshots frozen at checkout.
type Order struct {
	BaseModel
	OrderNumber    string          `gorm:"uniqueIndex" json:"order_number"`
	UserID         *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"` // nil for guest checkout
	User           *User           `json:"user,omitempty"`
	PartnerID      *uuid.UUID      `gorm:"type:uuid" json:"partner_id"`
	Status         string          `gorm:"index" json:"status"`
	PaymentStatus  string          `gorm:"index" json:"payment_status"`
	PaymentMethod  string          `json:"payment_method"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2)" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount_amount"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(12,2)" json:"shipping_cost"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_amount"`
	CouponCode     string          `json:"coupon_code"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	ShippingAddressLine string `json:"shipping_address_line"`
	ShippingApartment   string `json:"shipping_apartment"`
	ShippingCity        string `json:"shipping_city"`
	ShippingDistrict    string `json:"shipping_district"`
	ShippingPostalCode  string `json:"shipping_postal_code"`
	ShippingCountry     string `json:"shipping_country"`
	BillingAddressLine  string `json:"billing_address_line"`
	BillingCity         string `json:"billing_city"`
	BillingPostalCode   string `json:"billing_postal_code"`
	BillingCountry      string `json:"billing_country"`

	StripeSessionID string    `json:"stripe_session_id"`
	PayPalOrderID   string    `json:"paypal_order_id"`
	TrackingNumber  string    `json:"tracking_number"`
	Notes           string    `json:"notes"`
	AdminNotes      string    `json:"admin_notes"`
	PlacedAt        time.Time `json:"placed_at"`

	Items  []OrderItem  `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Events []OrderEvent `gorm:"constraint:OnDelete:CASCADE" json:"events,omitempty"`
}

// OrderItem is one frozen line of an order. Unit and line prices are
// snapshots taken at order time and are never recomputed.
type OrderItem struct {
	BaseModel
	OrderID          uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID        *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	ProductVariantID *uuid.UUID      `gorm:"type:uuid" json:"product_variant_id"`
	ProductName      string          `json:"product_name"`
	VariantLabel     string          `json:"variant_label"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	LineTotal        decimal.Decimal `gorm:"type:numeric(12,2)" json:"line_total"`
}

// Order event types. Events replace free-text sentinel markers as the
// idempotency record for side effects.
const (
	EventConfirmationSent = "confirmation_email_sent"
	EventShippingSent     = "shipping_email_sent"
	EventRefundIssued     = "refund_issued"
	EventManualRefund     = "manual_refund_required"
	EventCancelled        = "order_cancelled"
)

// OrderEvent is an append-only side-effect record for an order.
type OrderEvent struct {
	BaseModel
	OrderID    uuid.UUID `gorm:"type:uuid;index:idx_order_events_order_type" json:"order_id"`
	Type       string    `gorm:"index:idx_order_events_order_type" json:"type"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}
