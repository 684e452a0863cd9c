package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
)

// ErrVariantNotFound is returned when a variant ID does not resolve.
var ErrVariantNotFound = errors.New("variant not found")

// CatalogLookup resolves variants to their authoritative stored price and
// availability. Read-only.
type CatalogLookup interface {
	GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

// StorefrontLookup bundles the remaining storefront lookups checkout
// needs, plus coupon redemption accounting.
type StorefrontLookup interface {
	ApprovedPartnerByCode(ctx context.Context, code string) (*models.Partner, error)
	ActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	RedeemCoupon(ctx context.Context, code string) (bool, error)
	ShippingOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error)
}

// CatalogService is the GORM-backed read model for checkout.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GetVariant returns the variant row as currently stored. No caching:
// price and stock always reflect the database at read time.
func (s *CatalogService) GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := s.db.WithContext(ctx).Preload("Product").First(&variant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// ApprovedPartnerByCode resolves a referral code to an approved partner.
// Returns gorm.ErrRecordNotFound for unknown or unapproved codes; callers
// ignore that silently.
func (s *CatalogService) ApprovedPartnerByCode(ctx context.Context, code string) (*models.Partner, error) {
	var partner models.Partner
	err := s.db.WithContext(ctx).
		Where("referral_code = ? AND status = ?", code, models.PartnerStatusApproved).
		First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

// ActiveCouponByCode resolves a coupon code to a currently usable coupon.
func (s *CatalogService) ActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// RedeemCoupon consumes one redemption of the coupon. The increment is
// conditional on the cap, so concurrent checkouts cannot spend a coupon
// past its limit; false means no redemption was left to claim.
func (s *CatalogService) RedeemCoupon(ctx context.Context, code string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND is_active = ? AND (max_redemptions = 0 OR times_redeemed < max_redemptions)", code, true).
		UpdateColumn("times_redeemed", gorm.Expr("times_redeemed + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ShippingOption returns an active shipping option by ID.
func (s *CatalogService) ShippingOption(ctx context.Context, id uuid.UUID) (*models.ShippingOption, error) {
	var option models.ShippingOption
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&option).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}
