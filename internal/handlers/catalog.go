package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
)

// CatalogHandler manages the taxonomy around products: categories,
// brands, fragrance notes and seasons.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListCategories returns all categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.db.Order("name asc").Find(&categories).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}

type categoryRequest struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	GenderAudience string `json:"gender_audience"`
	Description    string `json:"description"`
	CardImage      string `json:"card_image"`
}

// CreateCategory creates a category. Admin only.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and slug are required")
	}

	category := models.Category{
		Name:           req.Name,
		Slug:           strings.ToLower(req.Slug),
		GenderAudience: req.GenderAudience,
		Description:    req.Description,
		CardImage:      req.CardImage,
	}
	if err := h.db.Create(&category).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": category})
}

// UpdateCategory edits a category. Admin only.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid category id")
	}

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return err
	}

	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		category.Name = req.Name
	}
	if req.Slug != "" {
		category.Slug = strings.ToLower(req.Slug)
	}
	category.GenderAudience = req.GenderAudience
	category.Description = req.Description
	if req.CardImage != "" {
		category.CardImage = req.CardImage
	}

	if err := h.db.Save(&category).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

// DeleteCategory removes a category. Admin only.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid category id")
	}

	res := h.db.Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "category not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListBrands returns all brands.
func (h *CatalogHandler) ListBrands(c *fiber.Ctx) error {
	var brands []models.Brand
	if err := h.db.Preload("Category").Order("name asc").Find(&brands).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": brands})
}

type brandRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Country     string `json:"country"`
	Image       string `json:"image"`
	CategoryID  string `json:"category_id"`
}

// CreateBrand creates a brand. Admin only.
func (h *CatalogHandler) CreateBrand(c *fiber.Ctx) error {
	var req brandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and slug are required")
	}

	brand := models.Brand{
		Name:        req.Name,
		Slug:        strings.ToLower(req.Slug),
		Description: req.Description,
		Country:     req.Country,
		Image:       req.Image,
	}
	if req.CategoryID != "" {
		if id, err := uuid.Parse(req.CategoryID); err == nil {
			brand.CategoryID = &id
		}
	}

	if err := h.db.Create(&brand).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": brand})
}

// UpdateBrand edits a brand. Admin only.
func (h *CatalogHandler) UpdateBrand(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid brand id")
	}

	var brand models.Brand
	if err := h.db.First(&brand, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "brand not found")
		}
		return err
	}

	var req brandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != "" {
		brand.Name = req.Name
	}
	if req.Slug != "" {
		brand.Slug = strings.ToLower(req.Slug)
	}
	brand.Description = req.Description
	brand.Country = req.Country
	if req.Image != "" {
		brand.Image = req.Image
	}
	if req.CategoryID != "" {
		if cid, err := uuid.Parse(req.CategoryID); err == nil {
			brand.CategoryID = &cid
		}
	}

	if err := h.db.Save(&brand).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": brand})
}

// DeleteBrand removes a brand. Admin only.
func (h *CatalogHandler) DeleteBrand(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid brand id")
	}

	res := h.db.Delete(&models.Brand{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "brand not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListFragranceNotes returns all fragrance notes.
func (h *CatalogHandler) ListFragranceNotes(c *fiber.Ctx) error {
	var notes []models.FragranceNote
	if err := h.db.Order("pyramid asc, name asc").Find(&notes).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": notes})
}

type fragranceNoteRequest struct {
	Name        string `json:"name"`
	Pyramid     string `json:"pyramid"`
	Description string `json:"description"`
}

// CreateFragranceNote creates a fragrance note. Admin only.
func (h *CatalogHandler) CreateFragranceNote(c *fiber.Ctx) error {
	var req fragranceNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	switch req.Pyramid {
	case "top", "heart", "base":
	default:
		return fiber.NewError(fiber.StatusBadRequest, "pyramid must be top, heart or base")
	}

	note := models.FragranceNote{
		Name:        req.Name,
		Pyramid:     req.Pyramid,
		Description: req.Description,
	}
	if err := h.db.Create(&note).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": note})
}

// DeleteFragranceNote removes a fragrance note. Admin only.
func (h *CatalogHandler) DeleteFragranceNote(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid note id")
	}

	res := h.db.Delete(&models.FragranceNote{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "note not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListSeasons returns all seasons.
func (h *CatalogHandler) ListSeasons(c *fiber.Ctx) error {
	var seasons []models.Season
	if err := h.db.Order("name asc").Find(&seasons).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": seasons})
}

// CreateSeason creates a season. Admin only.
func (h *CatalogHandler) CreateSeason(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	season := models.Season{Name: req.Name}
	if err := h.db.Create(&season).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": season})
}

// DeleteSeason removes a season. Admin only.
func (h *CatalogHandler) DeleteSeason(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid season id")
	}

	res := h.db.Delete(&models.Season{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "season not found")
	}

	return c.JSON(fiber.Map{"success": true})
}
