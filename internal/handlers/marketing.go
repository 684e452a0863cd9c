package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
)

// MarketingHandler manages banners and pickup branches.
type MarketingHandler struct {
	db *gorm.DB
}

// NewMarketingHandler constructs MarketingHandler.
func NewMarketingHandler(db *gorm.DB) *MarketingHandler {
	return &MarketingHandler{db: db}
}

// ListBanners returns active banners for the storefront.
func (h *MarketingHandler) ListBanners(c *fiber.Ctx) error {
	query := h.db.Model(&models.Banner{})
	if c.Query("all") != "true" {
		query = query.Where("is_active = ?", true)
	}

	var banners []models.Banner
	if err := query.Order("created_at desc").Find(&banners).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": banners})
}

type bannerRequest struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	ImageLight string `json:"image_light"`
	ImageDark  string `json:"image_dark"`
	URL        string `json:"url"`
	IsActive   *bool  `json:"is_active"`
}

// CreateBanner creates a banner. Admin only.
func (h *MarketingHandler) CreateBanner(c *fiber.Ctx) error {
	var req bannerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "title is required")
	}

	banner := models.Banner{
		Title:      req.Title,
		Subtitle:   req.Subtitle,
		ImageLight: req.ImageLight,
		ImageDark:  req.ImageDark,
		URL:        req.URL,
		IsActive:   true,
	}
	if req.IsActive != nil {
		banner.IsActive = *req.IsActive
	}

	if err := h.db.Create(&banner).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": banner})
}

// UpdateBanner edits a banner. Admin only.
func (h *MarketingHandler) UpdateBanner(c *fiber.Ctx) error {
	bannerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid banner id")
	}

	var banner models.Banner
	if err := h.db.First(&banner, "id = ?", bannerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "banner not found")
		}
		return err
	}

	var req bannerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title != "" {
		banner.Title = req.Title
	}
	banner.Subtitle = req.Subtitle
	if req.ImageLight != "" {
		banner.ImageLight = req.ImageLight
	}
	if req.ImageDark != "" {
		banner.ImageDark = req.ImageDark
	}
	banner.URL = req.URL
	if req.IsActive != nil {
		banner.IsActive = *req.IsActive
	}

	if err := h.db.Save(&banner).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": banner})
}

// DeleteBanner removes a banner. Admin only.
func (h *MarketingHandler) DeleteBanner(c *fiber.Ctx) error {
	bannerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid banner id")
	}

	res := h.db.Delete(&models.Banner{}, "id = ?", bannerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "banner not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListPickupBranches returns active pickup branches.
func (h *MarketingHandler) ListPickupBranches(c *fiber.Ctx) error {
	query := h.db.Model(&models.PickupBranch{})
	if c.Query("all") != "true" {
		query = query.Where("is_active = ?", true)
	}

	var branches []models.PickupBranch
	if err := query.Order("name asc").Find(&branches).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": branches})
}

type pickupBranchRequest struct {
	Name         string  `json:"name"`
	AddressLine  string  `json:"address_line"`
	City         string  `json:"city"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	WorkingHours string  `json:"working_hours"`
	ContactPhone string  `json:"contact_phone"`
	IsActive     *bool   `json:"is_active"`
}

// CreatePickupBranch creates a pickup branch. Admin only.
func (h *MarketingHandler) CreatePickupBranch(c *fiber.Ctx) error {
	var req pickupBranchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.AddressLine == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and address_line are required")
	}

	branch := models.PickupBranch{
		Name:         req.Name,
		AddressLine:  req.AddressLine,
		City:         req.City,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		WorkingHours: req.WorkingHours,
		ContactPhone: req.ContactPhone,
		IsActive:     true,
	}
	if req.IsActive != nil {
		branch.IsActive = *req.IsActive
	}

	if err := h.db.Create(&branch).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": branch})
}

// UpdatePickupBranch edits a pickup branch. Admin only.
func (h *MarketingHandler) UpdatePickupBranch(c *fiber.Ctx) error {
	branchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid branch id")
	}

	var branch models.PickupBranch
	if err := h.db.First(&branch, "id = ?", branchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "branch not found")
		}
		return err
	}

	var req pickupBranchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		branch.Name = req.Name
	}
	if req.AddressLine != "" {
		branch.AddressLine = req.AddressLine
	}
	if req.City != "" {
		branch.City = req.City
	}
	if req.Latitude != 0 {
		branch.Latitude = req.Latitude
	}
	if req.Longitude != 0 {
		branch.Longitude = req.Longitude
	}
	branch.WorkingHours = req.WorkingHours
	branch.ContactPhone = req.ContactPhone
	if req.IsActive != nil {
		branch.IsActive = *req.IsActive
	}

	if err := h.db.Save(&branch).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": branch})
}

// DeletePickupBranch removes a pickup branch. Admin only.
func (h *MarketingHandler) DeletePickupBranch(c *fiber.Ctx) error {
	branchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid branch id")
	}

	res := h.db.Delete(&models.PickupBranch{}, "id = ?", branchID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "branch not found")
	}

	return c.JSON(fiber.Map{"success": true})
}
