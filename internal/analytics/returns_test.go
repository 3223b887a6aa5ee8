package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func testPanel() *models.PricePanel {
	return &models.PricePanel{
		Symbols: []string{"AAA", "BBB"},
		Dates:   []time.Time{day(0), day(1), day(2), day(3)},
		Closes: map[string][]float64{
			"AAA": {100, 110, 99, 108.9},
			"BBB": {50, 50, 55, 55},
		},
	}
}

func TestReturns(t *testing.T) {
	returns := Returns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)

	assert.Empty(t, Returns([]float64{100}))
	assert.Empty(t, Returns(nil))
}

func TestReturnsZeroPriorClose(t *testing.T) {
	returns := Returns([]float64{0, 100, 110})
	require.Len(t, returns, 2)
	assert.Zero(t, returns[0])
	assert.InDelta(t, 0.10, returns[1], 1e-12)
}

func TestCurrentWeights(t *testing.T) {
	panel := testPanel()
	weights, total, err := CurrentWeights(panel, map[string]float64{"AAA": 10, "BBB": 20})
	require.NoError(t, err)

	// 10 * 108.9 = 1089, 20 * 55 = 1100
	assert.InDelta(t, 2189.0, total, 1e-9)
	assert.InDelta(t, 1089.0/2189.0, weights["AAA"], 1e-12)
	assert.InDelta(t, 1100.0/2189.0, weights["BBB"], 1e-12)
	assert.InDelta(t, 1.0, weights["AAA"]+weights["BBB"], weightTolerance)
}

func TestCurrentWeightsZeroValue(t *testing.T) {
	panel := testPanel()
	_, _, err := CurrentWeights(panel, map[string]float64{"AAA": 0, "BBB": 0})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindZeroPortfolioValue))
}

func TestPortfolioReturns(t *testing.T) {
	returns := map[string][]float64{
		"AAA": {0.10, -0.10},
		"BBB": {0.00, 0.10},
	}
	weights := map[string]float64{"AAA": 0.5, "BBB": 0.5}

	portfolio := PortfolioReturns(returns, weights)
	require.Len(t, portfolio, 2)
	assert.InDelta(t, 0.05, portfolio[0], 1e-12)
	assert.InDelta(t, 0.00, portfolio[1], 1e-12)
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	assert.InDelta(t, 30, Percentile(values, 50), 1e-12)
	assert.InDelta(t, 10, Percentile(values, 0), 1e-12)
	assert.InDelta(t, 50, Percentile(values, 100), 1e-12)
	// rank 0.05 * 4 = 0.2 between 10 and 20
	assert.InDelta(t, 12, Percentile(values, 5), 1e-12)

	assert.Zero(t, Percentile(nil, 50))
}

func TestAnnualizedMeans(t *testing.T) {
	returns := map[string][]float64{"AAA": {0.01, 0.03}}
	means := AnnualizedMeans(returns, []string{"AAA"}, 252)
	require.Len(t, means, 1)
	assert.InDelta(t, 0.02*252, means[0], 1e-9)
}

func TestAlignByDate(t *testing.T) {
	aDates := []time.Time{day(0), day(1), day(2)}
	bDates := []time.Time{day(1), day(2), day(3)}

	a, b := AlignByDate(aDates, []float64{1, 2, 3}, bDates, []float64{20, 30, 40})
	assert.Equal(t, []float64{2, 3}, a)
	assert.Equal(t, []float64{20, 30}, b)
}
