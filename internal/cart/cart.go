// Package cart holds the client-side shopping cart: product snapshots with
// quantities, kept in insertion order until an order is placed.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// DefaultTaxRate is the storefront's flat sales tax.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Line is one product in the cart with the price seen when it was added.
type Line struct {
	ProductID string          `json:"_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"qty"`
}

// Total is the line price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Totals struct {
	Items    decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Store is safe for concurrent use. The zero value is an empty cart.
type Store struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Store {
	return &Store{}
}

// AddOrUpdate puts the product in the cart with the given quantity,
// replacing the quantity (and snapshot) of an existing line for the same
// product.
func (s *Store) AddOrUpdate(p domain.Product, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := Line{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  quantity,
	}
	for i := range s.lines {
		if s.lines[i].ProductID == p.ID {
			s.lines[i] = line
			return
		}
	}
	s.lines = append(s.lines, line)
}

// SetQuantity changes the quantity of an existing line. It reports whether
// the product was in the cart.
func (s *Store) SetQuantity(productID string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

// Remove drops the product's line; unknown ids are ignored.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Lines returns a copy of the cart contents in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotal(s.lines)
}

// Totals computes the order totals. Tax is rounded to cents.
func (s *Store) Totals(taxRate, shipping decimal.Decimal) Totals {
	s.mu.Lock()
	items := subtotal(s.lines)
	s.mu.Unlock()

	tax := items.Mul(taxRate).Round(2)
	return Totals{
		Items:    items,
		Tax:      tax,
		Shipping: shipping,
		Total:    items.Add(tax).Add(shipping),
	}
}

// OrderLines maps the cart to order lines field by field.
func (s *Store) OrderLines() []domain.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OrderLine, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, ToOrderLine(l))
	}
	return out
}

func ToOrderLine(l Line) domain.OrderLine {
	return domain.OrderLine{
		ProductID: l.ProductID,
		Name:      l.Name,
		Quantity:  l.Quantity,
		Price:     l.Price,
		Image:     l.Image,
	}
}

func subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}
