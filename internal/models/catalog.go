package models

import "github.com/google/uuid"

type Category struct {
	BaseModel
	Name           string    `json:"name"`
	Slug           string    `gorm:"uniqueIndex" json:"slug"`
	GenderAudience string    `json:"gender_audience"`
	Description    string    `json:"description"`
	CardImage      string    `json:"card_image"`
	Products       []Product `json:"products,omitempty"`
}

type Brand struct {
	BaseModel
	Name        string     `json:"name"`
	Slug        string     `gorm:"uniqueIndex" json:"slug"`
	Description string     `json:"description"`
	Country     string     `json:"country"`
	Image       string     `json:"image"`
	CategoryID  *uuid.UUID `gorm:"type:uuid" json:"category_id"`
	Category    *Category  `json:"category,omitempty"`
	Products    []Product  `json:"products,omitempty"`
}

type FragranceNote struct {
	BaseModel
	Name        string    `json:"name"`
	Pyramid     string    `json:"pyramid"` // top|heart|base
	Description string    `json:"description"`
	Products    []Product `gorm:"many2many:product_fragrance_notes;" json:"products,omitempty"`
}

type Season struct {
	BaseModel
	Name     string    `json:"name"`
	Products []Product `gorm:"many2many:product_seasons;" json:"products,omitempty"`
}
