package models

import "time"

// PositiveReviewThreshold is the rating at or above which a review counts as positive
const PositiveReviewThreshold = 4.0

// CookSpot is a home cook listed on the marketplace
type CookSpot struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	IDSynthesized bool       `json:"id_synthesized,omitempty" gorm:"-"`
	OwnerID       *uint      `json:"owner_id,omitempty" gorm:"index"`
	Name          string     `json:"name" gorm:"not null"`
	Chef          string     `json:"chef"`
	Cuisine       string     `json:"cuisine"`
	Description   string     `json:"description"`
	Rating        float64    `json:"rating" gorm:"default:0"`
	PriceRange    string     `json:"price_range"`
	Latitude      float64    `json:"latitude" gorm:"not null"`
	Longitude     float64    `json:"longitude" gorm:"not null"`
	Reviews       []Review   `json:"reviews" gorm:"foreignKey:CookSpotID"`
	MenuItems     []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:CookSpotID"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Review struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	CookSpotID string    `json:"cook_spot_id" gorm:"index;not null"`
	UserName   string    `json:"user_name" gorm:"not null"`
	Comment    string    `json:"comment"`
	Rating     float64   `json:"rating" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsPositive reports whether the review feeds the "most liked" list
func (r Review) IsPositive() bool {
	return r.Rating >= PositiveReviewThreshold
}

type MenuItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	CookSpotID  string    `json:"cook_spot_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Price       float64   `json:"price" gorm:"not null"`
	IsAvailable bool      `json:"is_available" gorm:"not null"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
