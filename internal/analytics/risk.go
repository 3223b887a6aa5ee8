package analytics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// RiskConfig carries the tunable parameters of risk measurement.
type RiskConfig struct {
	RiskFreeRate       float64
	VaRConfidenceLevel float64
	TradingDays        int
	BetaMinOverlap     int
	LowVolThreshold    float64
	MediumVolThreshold float64
}

// RiskCalculator computes portfolio-level risk metrics from an aligned
// price panel.
type RiskCalculator struct {
	cfg RiskConfig
	log *logger.Logger
}

// NewRiskCalculator creates a calculator with the given parameters,
// applying defaults for unset values.
func NewRiskCalculator(cfg RiskConfig) *RiskCalculator {
	if cfg.TradingDays <= 0 {
		cfg.TradingDays = 252
	}
	if cfg.VaRConfidenceLevel <= 0 || cfg.VaRConfidenceLevel >= 1 {
		cfg.VaRConfidenceLevel = 0.95
	}
	if cfg.BetaMinOverlap <= 0 {
		cfg.BetaMinOverlap = 10
	}
	if cfg.LowVolThreshold <= 0 {
		cfg.LowVolThreshold = 0.10
	}
	if cfg.MediumVolThreshold <= 0 {
		cfg.MediumVolThreshold = 0.20
	}
	return &RiskCalculator{cfg: cfg, log: logger.GetLogger("analytics.risk")}
}

// BenchmarkSeries is the benchmark return series with its own date axis,
// which may differ from the portfolio's.
type BenchmarkSeries struct {
	Dates   []time.Time
	Returns []float64
}

// Metrics computes the full risk profile of the weighted portfolio.
// benchmark may be nil, in which case beta falls back to neutral.
func (c *RiskCalculator) Metrics(panel *models.PricePanel, quantities map[string]float64, benchmark *BenchmarkSeries) (*models.RiskMetrics, error) {
	weights, totalValue, err := CurrentWeights(panel, quantities)
	if err != nil {
		return nil, err
	}

	perSymbol := PanelReturns(panel)
	portfolio := PortfolioReturns(perSymbol, weights)

	annualFactor := float64(c.cfg.TradingDays)
	meanDaily := stat.Mean(portfolio, nil)
	stdDaily := stdDev(portfolio)

	annualReturn := meanDaily * annualFactor
	annualVol := stdDaily * math.Sqrt(annualFactor)

	sharpe := 0.0
	if annualVol > 0 {
		sharpe = (annualReturn - c.cfg.RiskFreeRate) / annualVol
	}

	dailyVaR := c.ValueAtRisk(portfolio, totalValue)
	annualVaR := dailyVaR * math.Sqrt(annualFactor)

	metrics := &models.RiskMetrics{
		TotalValue:           totalValue,
		AnnualReturn:         annualReturn,
		AnnualizedVolatility: annualVol,
		SharpeRatio:          sharpe,
		DailyVaR:             dailyVaR,
		AnnualVaR:            annualVaR,
		MaxDrawdown:          MaxDrawdown(portfolio),
		Beta:                 c.Beta(panel.Dates, portfolio, benchmark),
		RiskLevel:            c.Classify(annualVol),
		Weights:              weights,
		NumAssets:            len(panel.Symbols),
		RiskFreeRate:         c.cfg.RiskFreeRate,
		Timestamp:            time.Now().UTC(),
	}

	for symbol, reason := range panel.Dropped {
		metrics.Warnings = append(metrics.Warnings,
			fmt.Sprintf("%s excluded: %s", symbol, reason))
	}

	return metrics, nil
}

// ValueAtRisk estimates the one-day historical VaR of the portfolio at
// the configured confidence level, expressed as a positive currency
// amount. A tail percentile that happens to be a gain yields zero risk.
func (c *RiskCalculator) ValueAtRisk(returns []float64, totalValue float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	tail := (1 - c.cfg.VaRConfidenceLevel) * 100
	loss := math.Min(Percentile(returns, tail), 0)
	return math.Abs(loss) * totalValue
}

// MaxDrawdown returns the worst peak-to-trough decline of the cumulative
// return path as a fraction in [-1, 0].
func MaxDrawdown(returns []float64) float64 {
	cumulative := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := cumulative/peak - 1
		if drawdown < worst {
			worst = drawdown
		}
	}
	return math.Max(worst, -1)
}

// Beta measures the portfolio's sensitivity to the benchmark. When fewer
// overlapping dates exist than the configured minimum, or either series
// is degenerate, the result is a tagged neutral 1.0 rather than a noisy
// estimate.
func (c *RiskCalculator) Beta(portfolioDates []time.Time, portfolio []float64, benchmark *BenchmarkSeries) models.Beta {
	neutral := models.Beta{Value: 1.0, Source: models.BetaDefaultNeutral}
	if benchmark == nil {
		return neutral
	}

	// Return series start one observation after the price series.
	dates := portfolioDates
	if len(dates) == len(portfolio)+1 {
		dates = dates[1:]
	}
	benchDates := benchmark.Dates
	if len(benchDates) == len(benchmark.Returns)+1 {
		benchDates = benchDates[1:]
	}

	p, b := AlignByDate(dates, portfolio, benchDates, benchmark.Returns)
	if len(p) < c.cfg.BetaMinOverlap {
		c.log.Debugf("Beta fallback: %d overlapping dates, need %d", len(p), c.cfg.BetaMinOverlap)
		return neutral
	}

	stdP := stdDev(p)
	stdB := stdDev(b)
	if stdP == 0 || stdB == 0 {
		return neutral
	}

	corr := stat.Correlation(p, b, nil)
	if math.IsNaN(corr) {
		return neutral
	}

	return models.Beta{Value: corr * (stdP / stdB), Source: models.BetaComputed}
}

// Classify maps annualized volatility onto the coarse risk level scale.
func (c *RiskCalculator) Classify(annualVol float64) models.RiskLevel {
	switch {
	case annualVol < c.cfg.LowVolThreshold:
		return models.RiskLevelLow
	case annualVol < c.cfg.MediumVolThreshold:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelHigh
	}
}

// stdDev is the sample standard deviation, zero for degenerate input.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd := stat.StdDev(values, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}
