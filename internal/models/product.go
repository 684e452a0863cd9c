package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a sellable fragrance line. Concrete prices and stock live on
// its variants.
type Product struct {
	BaseModel
	Slug             string           `gorm:"uniqueIndex" json:"slug"`
	Name             string           `json:"name"`
	ShortDescription string           `json:"short_description"`
	LongDescription  string           `json:"long_description"`
	GenderAudience   string           `json:"gender_audience"`
	FragranceFamily  string           `json:"fragrance_family"`
	CompositionNotes string           `json:"composition_notes"`
	Occasions        pq.StringArray   `gorm:"type:text[]" json:"occasions"`
	HeroImage        string           `json:"hero_image"`
	IsActive         bool             `gorm:"default:true" json:"is_active"`
	BrandID          *uuid.UUID       `gorm:"type:uuid" json:"brand_id"`
	Brand            *Brand           `json:"brand,omitempty"`
	CategoryID       *uuid.UUID       `gorm:"type:uuid" json:"category_id"`
	Category         *Category        `json:"category,omitempty"`
	Variants         []ProductVariant `json:"variants,omitempty"`
	FragranceNotes   []FragranceNote  `gorm:"many2many:product_fragrance_notes;" json:"fragrance_notes,omitempty"`
	Seasons          []Season         `gorm:"many2many:product_seasons;" json:"seasons,omitempty"`
}

// ProductVariant is a concretely priced, stocked SKU. Prices are stored as
// exact numeric columns; the pricing engine only ever reads the stored
// price, never a client-supplied one. ProductID is nullable: a variant may
// outlive its product row and is still resolvable for historical orders.
type ProductVariant struct {
	BaseModel
	ProductID     *uuid.UUID          `gorm:"type:uuid;index" json:"product_id"`
	Product       *Product            `json:"product,omitempty"`
	SKU           string              `gorm:"uniqueIndex" json:"sku"`
	Label         string              `json:"label"`
	VolumeML      int                 `json:"volume_ml"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2)" json:"price"`
	OriginalPrice decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"original_price"`
	Currency      string              `json:"currency"`
	StockQuantity int                 `json:"stock_quantity"`
	IsActive      bool                `gorm:"default:true" json:"is_active"`
}
