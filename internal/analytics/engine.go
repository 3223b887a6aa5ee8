package analytics

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/portfolio-engine/internal/marketdata"
	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// EngineConfig wires the analytics components together.
type EngineConfig struct {
	Risk            RiskConfig
	Optimizer       OptimizerConfig
	Simulator       SimulatorConfig
	BenchmarkSymbol string
	TradingDays     int
}

// Engine is the facade over market data retrieval and the analytics
// calculators. All public operations accept raw holdings and do their
// own panel assembly, so callers never touch price data directly.
type Engine struct {
	panels    *marketdata.Service
	risk      *RiskCalculator
	optimizer *Optimizer
	simulator *Simulator
	benchmark string
	days      int
	log       *logger.Logger
}

// NewEngine creates an engine over the given panel service.
func NewEngine(panels *marketdata.Service, cfg EngineConfig) *Engine {
	if cfg.TradingDays <= 0 {
		cfg.TradingDays = 252
	}
	if cfg.BenchmarkSymbol == "" {
		cfg.BenchmarkSymbol = "SPY"
	}
	cfg.Simulator.TradingDays = cfg.TradingDays
	return &Engine{
		panels:    panels,
		risk:      NewRiskCalculator(cfg.Risk),
		optimizer: NewOptimizer(cfg.Optimizer),
		simulator: NewSimulator(cfg.Simulator),
		benchmark: cfg.BenchmarkSymbol,
		days:      cfg.TradingDays,
		log:       logger.GetLogger("analytics.engine"),
	}
}

// AnalyzeRisk computes the portfolio's full risk profile over the
// lookback period.
func (e *Engine) AnalyzeRisk(ctx context.Context, holdings []models.Holding, period models.Period) (*models.RiskMetrics, error) {
	quantities, err := validateHoldings(holdings)
	if err != nil {
		return nil, err
	}

	panel, err := e.panels.GetPanel(ctx, symbolsOf(holdings), period)
	if err != nil {
		return nil, err
	}

	return e.risk.Metrics(panel, quantities, e.benchmarkReturns(ctx, period))
}

// Optimize solves for the weight allocation maximizing the requested
// objective, with per-asset caps derived from the risk tolerance.
func (e *Engine) Optimize(ctx context.Context, holdings []models.Holding, period models.Period, objective string, riskTolerance float64) (*models.OptimizationResult, error) {
	quantities, err := validateHoldings(holdings)
	if err != nil {
		return nil, err
	}

	panel, err := e.panels.GetPanel(ctx, symbolsOf(holdings), period)
	if err != nil {
		return nil, err
	}
	if len(panel.Symbols) < 2 {
		return nil, errors.InsufficientAssets("optimization requires at least two assets with usable history")
	}

	weights, totalValue, err := CurrentWeights(panel, quantities)
	if err != nil {
		return nil, err
	}

	returns := PanelReturns(panel)
	lastClose := make(map[string]float64, len(panel.Symbols))
	for _, symbol := range panel.Symbols {
		lastClose[symbol] = panel.LastClose(symbol)
	}

	result, err := e.optimizer.Optimize(OptimizeInput{
		Symbols:        panel.Symbols,
		ExpectedReturn: AnnualizedMeans(returns, panel.Symbols, e.days),
		Covariance:     AnnualizedCovariance(returns, panel.Symbols, e.days),
		CurrentWeights: weights,
		TotalValue:     totalValue,
		LastClose:      lastClose,
		Objective:      objective,
		RiskTolerance:  riskTolerance,
	})
	if err != nil {
		return nil, err
	}

	for symbol, reason := range panel.Dropped {
		result.Notes = append(result.Notes, fmt.Sprintf("%s excluded: %s", symbol, reason))
	}
	return result, nil
}

// Simulate projects the portfolio's value distribution over the horizon
// using statistics estimated from the lookback period. A non-positive
// initial investment defaults to the portfolio's current market value.
func (e *Engine) Simulate(ctx context.Context, holdings []models.Holding, period models.Period, horizonYears float64, simulations int, initialInvestment float64) (*models.SimulationResult, error) {
	quantities, err := validateHoldings(holdings)
	if err != nil {
		return nil, err
	}

	panel, err := e.panels.GetPanel(ctx, symbolsOf(holdings), period)
	if err != nil {
		return nil, err
	}

	weights, totalValue, err := CurrentWeights(panel, quantities)
	if err != nil {
		return nil, err
	}
	if initialInvestment <= 0 {
		initialInvestment = totalValue
	}

	portfolio := PortfolioReturns(PanelReturns(panel), weights)

	return e.simulator.Project(ctx, ProjectionInput{
		DailyMean:         stat.Mean(portfolio, nil),
		DailyStdDev:       stdDev(portfolio),
		HorizonYears:      horizonYears,
		Simulations:       simulations,
		InitialInvestment: initialInvestment,
	})
}

// MarketSummaries returns per-symbol descriptive statistics over the
// period for display purposes.
func (e *Engine) MarketSummaries(ctx context.Context, symbols []string, period models.Period) (map[string]models.MarketSummary, error) {
	panel, err := e.panels.GetPanel(ctx, symbols, period)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.MarketSummary, len(panel.Symbols))
	for _, symbol := range panel.Symbols {
		closes := panel.Closes[symbol]
		returns := Returns(closes)

		periodReturn := 0.0
		if closes[0] != 0 {
			periodReturn = closes[len(closes)-1]/closes[0] - 1
		}

		out[symbol] = models.MarketSummary{
			CurrentPrice: closes[len(closes)-1],
			PeriodReturn: periodReturn,
			Volatility:   stdDev(returns) * math.Sqrt(float64(e.days)),
			DataPoints:   len(closes),
		}
	}
	return out, nil
}

func validateHoldings(holdings []models.Holding) (map[string]float64, error) {
	if len(holdings) == 0 {
		return nil, errors.InvalidArgument("at least one holding is required")
	}

	quantities := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		if h.Symbol == "" {
			return nil, errors.InvalidArgument("holding symbol must not be empty")
		}
		if h.Quantity < 0 {
			return nil, errors.InvalidArgument("holding quantity must not be negative: " + h.Symbol)
		}
		quantities[h.Symbol] += h.Quantity
	}
	return quantities, nil
}

func symbolsOf(holdings []models.Holding) []string {
	seen := make(map[string]bool, len(holdings))
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			symbols = append(symbols, h.Symbol)
		}
	}
	return symbols
}

// benchmarkReturns fetches the benchmark's return series for beta. Any
// failure degrades to a nil series, which the calculator reports as a
// tagged neutral beta instead of an error.
func (e *Engine) benchmarkReturns(ctx context.Context, period models.Period) *BenchmarkSeries {
	panel, err := e.panels.GetPanel(ctx, []string{e.benchmark}, period)
	if err != nil {
		e.log.Warnf("Benchmark %s unavailable, beta will use neutral fallback: %v", e.benchmark, err)
		return nil
	}
	return &BenchmarkSeries{
		Dates:   panel.Dates,
		Returns: Returns(panel.Closes[e.benchmark]),
	}
}
