package models

import (
	"encoding/json"
	"time"
)

// ContentBlock is one editable block of a storefront page. Content holds
// either plain text or a JSON structure depending on BlockType.
type ContentBlock struct {
	ID           int64           `json:"id"`
	PageName     string          `json:"page_name"`
	BlockKey     string          `json:"block_key"`
	BlockType    string          `json:"block_type"`
	Content      json.RawMessage `json:"content"`
	IsVisible    bool            `json:"is_visible"`
	DisplayOrder int             `json:"display_order"`
}

// Text returns the block content as a plain string when it is one,
// otherwise the empty string.
func (b ContentBlock) Text() string {
	var s string
	if err := json.Unmarshal(b.Content, &s); err != nil {
		return ""
	}
	return s
}

// SiteText is a single entry of the flat site-wide text store.
type SiteText struct {
	Value       string `json:"value"`
	Section     string `json:"section"`
	Description string `json:"description"`
}

// Notification is an admin back-office notification (new order etc.).
type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}
