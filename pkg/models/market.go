package models

import (
	"time"
)

// Period is the bounded lookback enumeration accepted by market data
// requests.
type Period string

const (
	Period1Month  Period = "1mo"
	Period3Months Period = "3mo"
	Period6Months Period = "6mo"
	Period1Year   Period = "1y"
	Period2Years  Period = "2y"
	Period5Years  Period = "5y"
)

// Valid reports whether p is one of the supported lookback periods.
func (p Period) Valid() bool {
	switch p {
	case Period1Month, Period3Months, Period6Months, Period1Year, Period2Years, Period5Years:
		return true
	}
	return false
}

// TradingDays returns the approximate number of trading days covered by
// the period, using the 252 trading-day convention.
func (p Period) TradingDays() int {
	switch p {
	case Period1Month:
		return 21
	case Period3Months:
		return 63
	case Period6Months:
		return 126
	case Period2Years:
		return 504
	case Period5Years:
		return 1260
	default: // Period1Year
		return 252
	}
}

// PricePoint is a single (date, close) observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Series is an ordered per-symbol price history, oldest first.
type Series struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of observations in the series.
func (s Series) Len() int { return len(s.Points) }

// PricePanel is a date-aligned panel of closing prices. Dates is the
// sorted intersection of valid trading dates across all retained symbols;
// Closes[symbol][i] is the close on Dates[i]. Symbols that failed fetching
// or fell below the observation threshold are listed in Dropped.
type PricePanel struct {
	Symbols []string             `json:"symbols"`
	Dates   []time.Time          `json:"dates"`
	Closes  map[string][]float64 `json:"closes"`
	Dropped map[string]string    `json:"dropped,omitempty"`
}

// Len returns the number of aligned observations in the panel.
func (p *PricePanel) Len() int { return len(p.Dates) }

// LastClose returns the most recent close for symbol, or 0 if the symbol
// is not in the panel.
func (p *PricePanel) LastClose(symbol string) float64 {
	closes, ok := p.Closes[symbol]
	if !ok || len(closes) == 0 {
		return 0
	}
	return closes[len(closes)-1]
}

// MarketSummary is the per-symbol digest returned by the market-data
// operation.
type MarketSummary struct {
	CurrentPrice float64 `json:"current_price"`
	PeriodReturn float64 `json:"period_return"`
	Volatility   float64 `json:"volatility"`
	DataPoints   int     `json:"data_points"`
}
