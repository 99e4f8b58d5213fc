package models

import (
	"time"
)

// Promotion is a storefront promo banner managed from the back office.
type Promotion struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Discount    string    `json:"discount"` // display label, e.g. "-20%"
	ImageURL    string    `json:"image_url"`
	ValidUntil  string    `json:"valid_until"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
