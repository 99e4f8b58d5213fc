package models

import (
	"time"
)

// Product represents a catalog product as stored in Postgres and cached in Redis.
// Category is a free-form label matched by exact string equality, not an enum.
type Product struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Price            float64           `json:"price"`
	Category         string            `json:"category"`
	ImageURL         string            `json:"image_url"`
	ShortDescription string            `json:"short_description"`
	FullDescription  string            `json:"full_description"`
	Features         map[string]string `json:"features"`
	InStock          bool              `json:"in_stock"`
	IsNew            bool              `json:"is_new"`
	Discount         int               `json:"discount"` // percent, 0 means no markdown
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// EffectivePrice returns the price after the discount markdown.
// Source behavior: no clamping of discount to [0,100].
func (p Product) EffectivePrice() float64 {
	return p.Price - p.Price*float64(p.Discount)/100
}

// ProductCSV represents a product row as read from a bulk-import CSV file.
type ProductCSV struct {
	Name     string  `csv:"name"`
	Price    float64 `csv:"price"`
	Category string  `csv:"category"`
	Image    string  `csv:"image"`
	InStock  bool    `csv:"in_stock"`
	Discount int     `csv:"discount"`
}
