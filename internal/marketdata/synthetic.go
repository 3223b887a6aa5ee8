package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

// SyntheticProvider generates deterministic price series without any
// network access. Each symbol gets a seeded geometric random walk, so
// repeated calls return identical history. Used in development and tests;
// real providers plug in behind the same Provider interface.
type SyntheticProvider struct {
	anchor     time.Time
	basePrice  float64
	dailyDrift float64
	dailyVol   float64
}

// NewSyntheticProvider creates a synthetic provider whose series end at
// the most recent weekday before now.
func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{
		anchor:     lastWeekday(time.Now().UTC().Truncate(24 * time.Hour)),
		basePrice:  100.0,
		dailyDrift: 0.0003,
		dailyVol:   0.012,
	}
}

// History returns the synthetic series for the symbol. Symbols beginning
// with "_" simulate an unknown instrument and fail, which exercises the
// partial-failure path in callers.
func (p *SyntheticProvider) History(_ context.Context, symbol string, period models.Period) (models.Series, error) {
	if symbol == "" || symbol[0] == '_' {
		return models.Series{}, errors.NotFound("unknown symbol: " + symbol)
	}

	days := period.TradingDays()
	rng := rand.New(rand.NewSource(int64(symbolSeed(symbol))))

	// Walk forward from a per-symbol base price, oldest observation first.
	price := p.basePrice * (1.0 + float64(symbolSeed(symbol)%37)/37.0)
	points := make([]models.PricePoint, 0, days)
	date := p.anchor.AddDate(0, 0, -weekdaySpan(days))

	for len(points) < days {
		if date.Weekday() != time.Saturday && date.Weekday() != time.Sunday {
			step := p.dailyDrift + p.dailyVol*rng.NormFloat64()
			price *= math.Exp(step)
			points = append(points, models.PricePoint{Date: date, Close: price})
		}
		date = date.AddDate(0, 0, 1)
	}

	return models.Series{Symbol: symbol, Points: points}, nil
}

func symbolSeed(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return h.Sum32()
}

// weekdaySpan returns the calendar days needed to cover n weekdays.
func weekdaySpan(n int) int {
	return n + 2*(n/5) + 4
}

func lastWeekday(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
