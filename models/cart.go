package models

import (
	"time"
)

// Cart is a per-device collection of line items tied to a contact phone.
// The id is issued server-side on first use.
type Cart struct {
	ID             int64  `json:"id"`
	UserPhone      string `json:"user_phone"`
	SessionID      string `json:"session_id"`
	Status         string `json:"status"` // active | checkout
	TelegramUserID string `json:"telegram_user_id,omitempty"`
}

// CartItem is one product entry within a cart. Name and price are
// denormalized snapshots taken at add-time; Total is computed
// server-side and trusted by clients.
type CartItem struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
	Quantity     int     `json:"quantity"`
	Total        float64 `json:"total"`
}

// CartItemsResponse is the payload of the cart-items action.
type CartItemsResponse struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// Order is a confirmed purchase recorded by the back office.
type Order struct {
	ID           int64     `json:"id"`
	UserName     string    `json:"user_name"`
	UserPhone    string    `json:"user_phone"`
	UserEmail    string    `json:"user_email"`
	ProductName  string    `json:"product_name"`
	ProductPrice float64   `json:"product_price"`
	Quantity     int       `json:"quantity"`
	TotalPrice   float64   `json:"total_price"`
	Status       string    `json:"status"` // new | completed | ...
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}
