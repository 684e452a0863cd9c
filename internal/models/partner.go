package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Partner statuses.
const (
	PartnerStatusPending   = "pending"
	PartnerStatusApproved  = "approved"
	PartnerStatusSuspended = "suspended"
)

// Partner is a referral participant. Only approved partners are attached
// to orders; unknown or unapproved codes are ignored at checkout.
type Partner struct {
	BaseModel
	Name            string          `json:"name"`
	ContactEmail    string          `json:"contact_email"`
	ReferralCode    string          `gorm:"uniqueIndex" json:"referral_code"`
	Status          string          `gorm:"default:pending" json:"status"`
	CashbackPercent decimal.Decimal `gorm:"type:numeric(5,2)" json:"cashback_percent"`
	Orders          []Order         `json:"orders,omitempty"`
}

// Coupon discount types.
const (
	CouponTypeFixed   = "fixed"
	CouponTypePercent = "percent"
)

// Coupon is an admin-managed discount. Checkout resolves codes against
// this table; a discount amount sent by the client is never trusted.
type Coupon struct {
	BaseModel
	Code           string          `gorm:"uniqueIndex" json:"code"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	MinSubtotal    decimal.Decimal `gorm:"type:numeric(12,2)" json:"min_subtotal"`
	StartsAt       time.Time       `json:"starts_at"`
	ExpiresAt      *time.Time      `json:"expires_at"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	MaxRedemptions int             `json:"max_redemptions"`
	TimesRedeemed  int             `json:"times_redeemed"`
}

// ShippingOption is a priced delivery method offered at checkout.
type ShippingOption struct {
	BaseModel
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	EstimateDays int             `json:"estimate_days"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
}
