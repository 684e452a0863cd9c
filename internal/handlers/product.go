package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/ambre/internal/models"
	"github.com/example/ambre/internal/utils"
)

// ProductHandler manages the public product catalog and its admin CRUD.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ListProducts returns active products with filtering and pagination.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{}).Where("products.is_active = ?", true)

	if categoryID := c.Query("category_id"); categoryID != "" {
		if id, err := uuid.Parse(categoryID); err == nil {
			query = query.Where("products.category_id = ?", id)
		}
	}
	if brandID := c.Query("brand_id"); brandID != "" {
		if id, err := uuid.Parse(brandID); err == nil {
			query = query.Where("products.brand_id = ?", id)
		}
	}
	if gender := c.Query("gender"); gender != "" {
		query = query.Where("products.gender_audience = ?", gender)
	}
	if family := c.Query("family"); family != "" {
		query = query.Where("products.fragrance_family = ?", family)
	}
	if occasion := c.Query("occasion"); occasion != "" {
		query = query.Where("? = ANY(products.occasions)", occasion)
	}
	if season := c.Query("season"); season != "" {
		query = query.
			Joins("JOIN product_seasons ps ON ps.product_id = products.id").
			Joins("JOIN seasons ON seasons.id = ps.season_id").
			Where("seasons.name = ?", season)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where(
			"products.name ILIKE ? OR products.short_description ILIKE ?",
			"%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Distinct("products.id").Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.
		Preload("Brand").Preload("Category").
		Preload("Variants", "is_active = ?", true).
		Preload("FragranceNotes").Preload("Seasons").
		Order("products.created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct returns one product by ID or slug.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	key := c.Params("id")

	query := h.db.
		Preload("Brand").Preload("Category").
		Preload("Variants").
		Preload("FragranceNotes").Preload("Seasons")

	var product models.Product
	var err error
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		err = query.First(&product, "id = ?", id).Error
	} else {
		err = query.First(&product, "slug = ?", key).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    product,
	})
}

type productRequest struct {
	Slug             string   `json:"slug"`
	Name             string   `json:"name"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	GenderAudience   string   `json:"gender_audience"`
	FragranceFamily  string   `json:"fragrance_family"`
	CompositionNotes string   `json:"composition_notes"`
	Occasions        []string `json:"occasions"`
	HeroImage        string   `json:"hero_image"`
	IsActive         *bool    `json:"is_active"`
	BrandID          string   `json:"brand_id"`
	CategoryID       string   `json:"category_id"`
	FragranceNoteIDs []string `json:"fragrance_note_ids"`
	SeasonIDs        []string `json:"season_ids"`
}

// CreateProduct creates a product. Admin only.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and slug are required")
	}

	product := models.Product{
		Slug:             strings.ToLower(req.Slug),
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		LongDescription:  req.LongDescription,
		GenderAudience:   req.GenderAudience,
		FragranceFamily:  req.FragranceFamily,
		CompositionNotes: req.CompositionNotes,
		Occasions:        pq.StringArray(req.Occasions),
		HeroImage:        req.HeroImage,
		IsActive:         true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.BrandID != "" {
		if id, err := uuid.Parse(req.BrandID); err == nil {
			product.BrandID = &id
		}
	}
	if req.CategoryID != "" {
		if id, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &id
		}
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}

	if err := h.replaceAssociations(&product, req.FragranceNoteIDs, req.SeasonIDs); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    product,
	})
}

// UpdateProduct edits a product. Admin only.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Slug != "" {
		product.Slug = strings.ToLower(req.Slug)
	}
	if req.Name != "" {
		product.Name = req.Name
	}
	product.ShortDescription = req.ShortDescription
	product.LongDescription = req.LongDescription
	product.GenderAudience = req.GenderAudience
	product.FragranceFamily = req.FragranceFamily
	product.CompositionNotes = req.CompositionNotes
	if req.Occasions != nil {
		product.Occasions = pq.StringArray(req.Occasions)
	}
	if req.HeroImage != "" {
		product.HeroImage = req.HeroImage
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.BrandID != "" {
		if id, err := uuid.Parse(req.BrandID); err == nil {
			product.BrandID = &id
		}
	}
	if req.CategoryID != "" {
		if id, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &id
		}
	}

	if err := h.db.Save(&product).Error; err != nil {
		return err
	}

	if err := h.replaceAssociations(&product, req.FragranceNoteIDs, req.SeasonIDs); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    product,
	})
}

// DeleteProduct removes a product and its variants. Admin only.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Variant rows survive with a nil product reference so historical
		// orders stay resolvable.
		if err := tx.Model(&models.ProductVariant{}).
			Where("product_id = ?", productID).
			Updates(map[string]any{"product_id": nil, "is_active": false}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Product{}, "id = ?", productID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (h *ProductHandler) replaceAssociations(product *models.Product, noteIDs, seasonIDs []string) error {
	if noteIDs != nil {
		notes := make([]models.FragranceNote, 0, len(noteIDs))
		for _, raw := range noteIDs {
			if id, err := uuid.Parse(raw); err == nil {
				notes = append(notes, models.FragranceNote{BaseModel: models.BaseModel{ID: id}})
			}
		}
		if err := h.db.Model(product).Association("FragranceNotes").Replace(notes); err != nil {
			return err
		}
	}
	if seasonIDs != nil {
		seasons := make([]models.Season, 0, len(seasonIDs))
		for _, raw := range seasonIDs {
			if id, err := uuid.Parse(raw); err == nil {
				seasons = append(seasons, models.Season{BaseModel: models.BaseModel{ID: id}})
			}
		}
		if err := h.db.Model(product).Association("Seasons").Replace(seasons); err != nil {
			return err
		}
	}
	return nil
}

type variantRequest struct {
	SKU           string  `json:"sku"`
	Label         string  `json:"label"`
	VolumeML      int     `json:"volume_ml"`
	Price         string  `json:"price"`
	OriginalPrice *string `json:"original_price"`
	Currency      string  `json:"currency"`
	StockQuantity *int    `json:"stock_quantity"`
	IsActive      *bool   `json:"is_active"`
}

// CreateVariant adds a variant to a product. Admin only.
func (h *ProductHandler) CreateVariant(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var req variantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.SKU == "" {
		return fiber.NewError(fiber.StatusBadRequest, "sku is required")
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return fiber.NewError(fiber.StatusBadRequest, "price must be a non-negative decimal")
	}

	variant := models.ProductVariant{
		ProductID: &productID,
		SKU:       req.SKU,
		Label:     req.Label,
		VolumeML:  req.VolumeML,
		Price:     price.Round(2),
		Currency:  req.Currency,
		IsActive:  true,
	}
	if req.OriginalPrice != nil {
		original, err := decimal.NewFromString(*req.OriginalPrice)
		if err != nil || original.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "original_price must be a non-negative decimal")
		}
		variant.OriginalPrice = decimal.NewNullDecimal(original.Round(2))
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "stock_quantity cannot be negative")
		}
		variant.StockQuantity = *req.StockQuantity
	}
	if req.IsActive != nil {
		variant.IsActive = *req.IsActive
	}

	if err := h.db.Create(&variant).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    variant,
	})
}

// UpdateVariant edits a variant. Admin only.
func (h *ProductHandler) UpdateVariant(c *fiber.Ctx) error {
	variantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid variant id")
	}

	var variant models.ProductVariant
	if err := h.db.First(&variant, "id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "variant not found")
		}
		return err
	}

	var req variantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.SKU != "" {
		variant.SKU = req.SKU
	}
	if req.Label != "" {
		variant.Label = req.Label
	}
	if req.VolumeML > 0 {
		variant.VolumeML = req.VolumeML
	}
	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "price must be a non-negative decimal")
		}
		variant.Price = price.Round(2)
	}
	if req.OriginalPrice != nil {
		if *req.OriginalPrice == "" {
			variant.OriginalPrice = decimal.NullDecimal{}
		} else {
			original, err := decimal.NewFromString(*req.OriginalPrice)
			if err != nil || original.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "original_price must be a non-negative decimal")
			}
			variant.OriginalPrice = decimal.NewNullDecimal(original.Round(2))
		}
	}
	if req.Currency != "" {
		variant.Currency = req.Currency
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "stock_quantity cannot be negative")
		}
		variant.StockQuantity = *req.StockQuantity
	}
	if req.IsActive != nil {
		variant.IsActive = *req.IsActive
	}

	if err := h.db.Save(&variant).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    variant,
	})
}

// DeleteVariant deactivates a variant instead of removing the row, so
// order history keeps its reference.
func (h *ProductHandler) DeleteVariant(c *fiber.Ctx) error {
	variantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid variant id")
	}

	res := h.db.Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "variant not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
