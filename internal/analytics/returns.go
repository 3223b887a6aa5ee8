package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

// weightTolerance is the floating tolerance within which a weight vector
// must sum to 1.
const weightTolerance = 1e-6

// Returns converts a close series into simple period-over-period
// fractional changes. The first observation has no prior reference and is
// dropped, so the result is one shorter than the input.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}
	return returns
}

// PanelReturns computes the per-symbol return series for every symbol in
// the panel, aligned by date.
func PanelReturns(panel *models.PricePanel) map[string][]float64 {
	out := make(map[string][]float64, len(panel.Symbols))
	for _, symbol := range panel.Symbols {
		out[symbol] = Returns(panel.Closes[symbol])
	}
	return out
}

// CurrentWeights derives market-value weights from holding quantities and
// the last close in the panel. Symbols absent from the panel contribute
// nothing. Fails when the total value is zero or negative.
func CurrentWeights(panel *models.PricePanel, quantities map[string]float64) (map[string]float64, float64, error) {
	values := make(map[string]float64, len(panel.Symbols))
	total := 0.0
	for _, symbol := range panel.Symbols {
		value := quantities[symbol] * panel.LastClose(symbol)
		values[symbol] = value
		total += value
	}

	if total <= 0 {
		return nil, 0, errors.ZeroPortfolioValue("portfolio value is zero or negative")
	}

	weights := make(map[string]float64, len(values))
	for symbol, value := range values {
		weights[symbol] = value / total
	}
	return weights, total, nil
}

// PortfolioReturns collapses per-symbol return series into one weighted
// scalar per date.
func PortfolioReturns(returns map[string][]float64, weights map[string]float64) []float64 {
	length := 0
	for _, series := range returns {
		if len(series) > 0 {
			length = len(series)
			break
		}
	}
	if length == 0 {
		return []float64{}
	}

	portfolio := make([]float64, length)
	for symbol, series := range returns {
		weight := weights[symbol]
		for i, r := range series {
			if i < length {
				portfolio[i] += r * weight
			}
		}
	}
	return portfolio
}

// ReturnsMatrix packs per-symbol returns into a samples-by-assets matrix
// in the given symbol order, for covariance estimation.
func ReturnsMatrix(returns map[string][]float64, symbols []string) *mat.Dense {
	if len(symbols) == 0 {
		return nil
	}
	rows := len(returns[symbols[0]])
	m := mat.NewDense(rows, len(symbols), nil)
	for j, symbol := range symbols {
		series := returns[symbol]
		for i := 0; i < rows && i < len(series); i++ {
			m.Set(i, j, series[i])
		}
	}
	return m
}

// AnnualizedCovariance estimates the annualized covariance matrix of the
// per-symbol daily returns.
func AnnualizedCovariance(returns map[string][]float64, symbols []string, tradingDays int) *mat.SymDense {
	m := ReturnsMatrix(returns, symbols)
	cov := mat.NewSymDense(len(symbols), nil)
	stat.CovarianceMatrix(cov, m, nil)
	for i := 0; i < len(symbols); i++ {
		for j := i; j < len(symbols); j++ {
			cov.SetSym(i, j, cov.At(i, j)*float64(tradingDays))
		}
	}
	return cov
}

// AnnualizedMeans returns the annualized expected return per symbol, in
// symbol order.
func AnnualizedMeans(returns map[string][]float64, symbols []string, tradingDays int) []float64 {
	means := make([]float64, len(symbols))
	for i, symbol := range symbols {
		series := returns[symbol]
		if len(series) > 0 {
			means[i] = stat.Mean(series, nil) * float64(tradingDays)
		}
	}
	return means
}

// Percentile computes the p-th percentile (0..100) of values using linear
// interpolation between order statistics.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// AlignByDate intersects two date-indexed return series and returns the
// paired values on their common dates, oldest first.
func AlignByDate(aDates []time.Time, a []float64, bDates []time.Time, b []float64) ([]float64, []float64) {
	bIndex := make(map[int64]int, len(bDates))
	for i, d := range bDates {
		if i < len(b) {
			bIndex[d.Unix()] = i
		}
	}

	var alignedA, alignedB []float64
	for i, d := range aDates {
		if i >= len(a) {
			break
		}
		if j, ok := bIndex[d.Unix()]; ok {
			alignedA = append(alignedA, a[i])
			alignedB = append(alignedB, b[j])
		}
	}
	return alignedA, alignedB
}
