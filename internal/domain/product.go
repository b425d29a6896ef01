package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Categories lists the menu categories a product may belong to.
var Categories = []string{
	"Espresso",
	"Americano",
	"Latte",
	"Cappuccino",
	"Mocha",
	"Tea",
	"Pastry",
	"Sandwich",
	"Dessert",
	"Other",
}

// NormalizeCategory returns the canonical spelling of a category, or "" when
// the value is not a known category.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return ""
}

type Product struct {
	ID           string          `json:"_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Image        string          `json:"image"`
	Stock        int             `json:"stock"`
	Rating       float64         `json:"rating"`
	NumOfReviews int             `json:"numOfReviews"`
	CreatedAt    time.Time       `json:"createdAt"`
}
