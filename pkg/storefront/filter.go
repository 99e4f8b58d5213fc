package storefront

import (
	"github.com/Zaharka0/tobacco-store-design/models"
)

// PriceBracket narrows the catalog by price. Brackets share boundary
// values: a product priced exactly 1000 matches both low and mid, and
// one priced 3000 matches both mid and high. That overlap is source
// behavior and is kept.
type PriceBracket string

const (
	BracketAll  PriceBracket = "all"
	BracketLow  PriceBracket = "low"  // price ≤ 1000
	BracketMid  PriceBracket = "mid"  // 1000 ≤ price ≤ 3000
	BracketHigh PriceBracket = "high" // price ≥ 3000
)

// CategoryAll is the sentinel meaning "no category filter".
const CategoryAll = "all"

// FilterSelection is the ephemeral UI filter state: a category (exact
// string match, CategoryAll for none) and a price bracket.
type FilterSelection struct {
	Category string
	Bracket  PriceBracket
}

// Matches reports whether a price falls into the bracket. Unknown
// bracket values behave like BracketAll.
func (b PriceBracket) Matches(price float64) bool {
	switch b {
	case BracketLow:
		return price <= 1000
	case BracketMid:
		return price >= 1000 && price <= 3000
	case BracketHigh:
		return price >= 3000
	default:
		return true
	}
}

// Filter returns the subsequence of products matching the selection,
// preserving the original relative order. It is a pure function: the
// input slice is never modified and an empty result is valid.
func Filter(products []models.Product, sel FilterSelection) []models.Product {
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if sel.Category != "" && sel.Category != CategoryAll && p.Category != sel.Category {
			continue
		}
		if !sel.Bracket.Matches(p.Price) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}
