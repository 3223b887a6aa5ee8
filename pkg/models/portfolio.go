package models

import (
	"time"
)

// Holding is a single (symbol, quantity) position within a portfolio.
// Quantity is non-negative; fractional shares are allowed.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price,omitempty"`
}

// Portfolio is a named collection of holdings owned by a user.
type Portfolio struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Holdings []Holding `json:"holdings"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// Symbols returns the holding symbols in declaration order.
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}

// Quantities returns a symbol -> quantity map.
func (p *Portfolio) Quantities() map[string]float64 {
	quantities := make(map[string]float64, len(p.Holdings))
	for _, h := range p.Holdings {
		quantities[h.Symbol] += h.Quantity
	}
	return quantities
}
