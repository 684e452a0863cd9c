package models

type Banner struct {
	BaseModel
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	ImageLight string `json:"image_light"`
	ImageDark  string `json:"image_dark"`
	URL        string `json:"url"`
	IsActive   bool   `gorm:"default:true" json:"is_active"`
}

type PickupBranch struct {
	BaseModel
	Name         string  `json:"name"`
	AddressLine  string  `json:"address_line"`
	City         string  `json:"city"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	WorkingHours string  `json:"working_hours"`
	ContactPhone string  `json:"contact_phone"`
	IsActive     bool    `gorm:"default:true" json:"is_active"`
}
