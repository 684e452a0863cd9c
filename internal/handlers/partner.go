package handlers

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
	"github.com/example/ambre/internal/utils"
)

// PartnerHandler manages referral partners, coupons and shipping options.
type PartnerHandler struct {
	db *gorm.DB
}

// NewPartnerHandler constructs PartnerHandler.
func NewPartnerHandler(db *gorm.DB) *PartnerHandler {
	return &PartnerHandler{db: db}
}

// ListPartners returns all partners with pagination. Admin only.
func (h *PartnerHandler) ListPartners(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Partner{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var partners []models.Partner
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&partners).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    partners,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type partnerRequest struct {
	Name            string `json:"name"`
	ContactEmail    string `json:"contact_email"`
	ReferralCode    string `json:"referral_code"`
	Status          string `json:"status"`
	CashbackPercent string `json:"cashback_percent"`
}

// CreatePartner registers a partner. A missing referral code is generated
// with a collision check against existing codes. Admin only.
func (h *PartnerHandler) CreatePartner(c *fiber.Ctx) error {
	var req partnerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	partner := models.Partner{
		Name:         req.Name,
		ContactEmail: strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		Status:       models.PartnerStatusPending,
	}

	if req.Status != "" {
		if !validPartnerStatus(req.Status) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown partner status")
		}
		partner.Status = req.Status
	}

	if req.CashbackPercent != "" {
		percent, err := decimal.NewFromString(req.CashbackPercent)
		if err != nil || percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
			return fiber.NewError(fiber.StatusBadRequest, "cashback_percent must be between 0 and 100")
		}
		partner.CashbackPercent = percent
	}

	if req.ReferralCode != "" {
		partner.ReferralCode = strings.ToUpper(strings.TrimSpace(req.ReferralCode))
		var count int64
		if err := h.db.Model(&models.Partner{}).Where("referral_code = ?", partner.ReferralCode).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "referral code is already in use")
		}
	} else {
		code, err := h.generateReferralCode()
		if err != nil {
			return err
		}
		partner.ReferralCode = code
	}

	if err := h.db.Create(&partner).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    partner,
	})
}

// UpdatePartner edits a partner's status and terms. Admin only.
func (h *PartnerHandler) UpdatePartner(c *fiber.Ctx) error {
	partnerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid partner id")
	}

	var partner models.Partner
	if err := h.db.First(&partner, "id = ?", partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "partner not found")
		}
		return err
	}

	var req partnerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		partner.Name = req.Name
	}
	if req.ContactEmail != "" {
		partner.ContactEmail = strings.ToLower(strings.TrimSpace(req.ContactEmail))
	}
	if req.Status != "" {
		if !validPartnerStatus(req.Status) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown partner status")
		}
		partner.Status = req.Status
	}
	if req.CashbackPercent != "" {
		percent, err := decimal.NewFromString(req.CashbackPercent)
		if err != nil || percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
			return fiber.NewError(fiber.StatusBadRequest, "cashback_percent must be between 0 and 100")
		}
		partner.CashbackPercent = percent
	}

	if err := h.db.Save(&partner).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    partner,
	})
}

// DeletePartner removes a partner. Orders keep their partner_id snapshot.
func (h *PartnerHandler) DeletePartner(c *fiber.Ctx) error {
	partnerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid partner id")
	}

	res := h.db.Delete(&models.Partner{}, "id = ?", partnerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "partner not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

func validPartnerStatus(status string) bool {
	switch status {
	case models.PartnerStatusPending, models.PartnerStatusApproved, models.PartnerStatusSuspended:
		return true
	}
	return false
}

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (h *PartnerHandler) generateReferralCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, 8)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralAlphabet))))
			if err != nil {
				return "", err
			}
			buf[i] = referralAlphabet[n.Int64()]
		}
		code := string(buf)

		var count int64
		if err := h.db.Model(&models.Partner{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// ListCoupons returns all coupons. Admin only.
func (h *PartnerHandler) ListCoupons(c *fiber.Ctx) error {
	var coupons []models.Coupon
	if err := h.db.Order("created_at desc").Find(&coupons).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": coupons})
}

type couponRequest struct {
	Code           string     `json:"code"`
	Type           string     `json:"type"`
	Amount         string     `json:"amount"`
	MinSubtotal    string     `json:"min_subtotal"`
	StartsAt       *time.Time `json:"starts_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsActive       *bool      `json:"is_active"`
	MaxRedemptions int        `json:"max_redemptions"`
}

// CreateCoupon creates a coupon. Admin only.
func (h *PartnerHandler) CreateCoupon(c *fiber.Ctx) error {
	var req couponRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}
	if req.Type != models.CouponTypeFixed && req.Type != models.CouponTypePercent {
		return fiber.NewError(fiber.StatusBadRequest, "type must be fixed or percent")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be a positive decimal")
	}
	if req.Type == models.CouponTypePercent && amount.GreaterThan(decimal.NewFromInt(100)) {
		return fiber.NewError(fiber.StatusBadRequest, "percent amount cannot exceed 100")
	}

	coupon := models.Coupon{
		Code:           strings.ToUpper(strings.TrimSpace(req.Code)),
		Type:           req.Type,
		Amount:         amount.Round(2),
		IsActive:       true,
		MaxRedemptions: req.MaxRedemptions,
	}
	if req.MinSubtotal != "" {
		minSubtotal, err := decimal.NewFromString(req.MinSubtotal)
		if err != nil || minSubtotal.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "min_subtotal must be a non-negative decimal")
		}
		coupon.MinSubtotal = minSubtotal.Round(2)
	}
	if req.StartsAt != nil {
		coupon.StartsAt = *req.StartsAt
	}
	coupon.ExpiresAt = req.ExpiresAt
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	var count int64
	if err := h.db.Model(&models.Coupon{}).Where("code = ?", coupon.Code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusConflict, "coupon code already exists")
	}

	if err := h.db.Create(&coupon).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    coupon,
	})
}

// UpdateCoupon edits a coupon. Admin only.
func (h *PartnerHandler) UpdateCoupon(c *fiber.Ctx) error {
	couponID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid coupon id")
	}

	var coupon models.Coupon
	if err := h.db.First(&coupon, "id = ?", couponID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "coupon not found")
		}
		return err
	}

	var req couponRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Type != "" {
		if req.Type != models.CouponTypeFixed && req.Type != models.CouponTypePercent {
			return fiber.NewError(fiber.StatusBadRequest, "type must be fixed or percent")
		}
		coupon.Type = req.Type
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be a positive decimal")
		}
		coupon.Amount = amount.Round(2)
	}
	if req.MinSubtotal != "" {
		minSubtotal, err := decimal.NewFromString(req.MinSubtotal)
		if err != nil || minSubtotal.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "min_subtotal must be a non-negative decimal")
		}
		coupon.MinSubtotal = minSubtotal.Round(2)
	}
	if req.StartsAt != nil {
		coupon.StartsAt = *req.StartsAt
	}
	if req.ExpiresAt != nil {
		coupon.ExpiresAt = req.ExpiresAt
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if req.MaxRedemptions > 0 {
		coupon.MaxRedemptions = req.MaxRedemptions
	}

	if err := h.db.Save(&coupon).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    coupon,
	})
}

// DeleteCoupon removes a coupon. Orders keep their coupon_code snapshot.
func (h *PartnerHandler) DeleteCoupon(c *fiber.Ctx) error {
	couponID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid coupon id")
	}

	res := h.db.Delete(&models.Coupon{}, "id = ?", couponID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "coupon not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListShippingOptions returns active shipping options for checkout.
func (h *PartnerHandler) ListShippingOptions(c *fiber.Ctx) error {
	var options []models.ShippingOption
	if err := h.db.Where("is_active = ?", true).Order("price asc").Find(&options).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": options})
}

type shippingOptionRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	EstimateDays int    `json:"estimate_days"`
	IsActive     *bool  `json:"is_active"`
}

// CreateShippingOption creates a shipping option. Admin only.
func (h *PartnerHandler) CreateShippingOption(c *fiber.Ctx) error {
	var req shippingOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return fiber.NewError(fiber.StatusBadRequest, "price must be a non-negative decimal")
	}

	option := models.ShippingOption{
		Name:         req.Name,
		Description:  req.Description,
		Price:        price.Round(2),
		EstimateDays: req.EstimateDays,
		IsActive:     true,
	}
	if req.IsActive != nil {
		option.IsActive = *req.IsActive
	}

	if err := h.db.Create(&option).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    option,
	})
}

// UpdateShippingOption edits a shipping option. Admin only.
func (h *PartnerHandler) UpdateShippingOption(c *fiber.Ctx) error {
	optionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid shipping option id")
	}

	var option models.ShippingOption
	if err := h.db.First(&option, "id = ?", optionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "shipping option not found")
		}
		return err
	}

	var req shippingOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		option.Name = req.Name
	}
	option.Description = req.Description
	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "price must be a non-negative decimal")
		}
		option.Price = price.Round(2)
	}
	if req.EstimateDays > 0 {
		option.EstimateDays = req.EstimateDays
	}
	if req.IsActive != nil {
		option.IsActive = *req.IsActive
	}

	if err := h.db.Save(&option).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    option,
	})
}

// DeleteShippingOption deactivates a shipping option; orders keep their
// shipping cost snapshot.
func (h *PartnerHandler) DeleteShippingOption(c *fiber.Ctx) error {
	optionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid shipping option id")
	}

	res := h.db.Model(&models.ShippingOption{}).
		Where("id = ?", optionID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "shipping option not found")
	}

	return c.JSON(fiber.Map{"success": true})
}
