package models

// AnalyticsStats aggregates page views and order counters for the
// admin dashboard.
type AnalyticsStats struct {
	Views    ViewStats  `json:"views"`
	TopPages []PageView `json:"top_pages"`
	Orders   OrderStats `json:"orders"`
}

type ViewStats struct {
	Total  int `json:"total"`
	Unique int `json:"unique"`
	Today  int `json:"today"`
	Week   int `json:"week"`
}

type PageView struct {
	Page  string `json:"page"`
	Views int    `json:"views"`
}

type OrderStats struct {
	Total     int     `json:"total"`
	New       int     `json:"new"`
	Completed int     `json:"completed"`
	Revenue   float64 `json:"revenue"`
}
