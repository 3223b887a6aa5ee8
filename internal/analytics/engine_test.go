package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-engine/internal/marketdata"
	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	panels := marketdata.NewService(marketdata.NewSyntheticProvider(), marketdata.ServiceConfig{
		MinObservations:  10,
		FetchConcurrency: 4,
	})
	return NewEngine(panels, EngineConfig{
		Risk:            RiskConfig{RiskFreeRate: 0.02},
		Optimizer:       OptimizerConfig{},
		Simulator:       SimulatorConfig{DefaultRuns: 1000},
		BenchmarkSymbol: "SPY",
	})
}

func testHoldings() []models.Holding {
	return []models.Holding{
		{Symbol: "AAPL", Quantity: 10},
		{Symbol: "MSFT", Quantity: 5},
		{Symbol: "GOOG", Quantity: 8},
	}
}

func TestEngineAnalyzeRisk(t *testing.T) {
	engine := newTestEngine(t)

	metrics, err := engine.AnalyzeRisk(context.Background(), testHoldings(), models.Period1Year)
	require.NoError(t, err)

	assert.Greater(t, metrics.TotalValue, 0.0)
	assert.Equal(t, 3, metrics.NumAssets)
	assert.InDelta(t, 1.0, weightSum(metrics.Weights), weightTolerance)
	assert.GreaterOrEqual(t, metrics.MaxDrawdown, -1.0)
	assert.LessOrEqual(t, metrics.MaxDrawdown, 0.0)
	assert.GreaterOrEqual(t, metrics.DailyVaR, 0.0)
	assert.Equal(t, models.BetaComputed, metrics.Beta.Source)
	assert.NotEmpty(t, metrics.RiskLevel)
}

func TestEngineAnalyzeRiskPartialFailure(t *testing.T) {
	engine := newTestEngine(t)

	holdings := append(testHoldings(), models.Holding{Symbol: "_BAD", Quantity: 3})
	metrics, err := engine.AnalyzeRisk(context.Background(), holdings, models.Period1Year)
	require.NoError(t, err)

	assert.Equal(t, 3, metrics.NumAssets)
	require.NotEmpty(t, metrics.Warnings)
	assert.Contains(t, metrics.Warnings[0], "_BAD")
}

func TestEngineAnalyzeRiskNoData(t *testing.T) {
	engine := newTestEngine(t)

	holdings := []models.Holding{{Symbol: "_ONE", Quantity: 1}, {Symbol: "_TWO", Quantity: 2}}
	_, err := engine.AnalyzeRisk(context.Background(), holdings, models.Period1Year)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNoMarketData))
}

func TestEngineAnalyzeRiskValidation(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.AnalyzeRisk(context.Background(), nil, models.Period1Year)
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))

	_, err = engine.AnalyzeRisk(context.Background(), testHoldings(), models.Period("7d"))
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))

	bad := []models.Holding{{Symbol: "AAPL", Quantity: -1}}
	_, err = engine.AnalyzeRisk(context.Background(), bad, models.Period1Year)
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestEngineOptimize(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Optimize(context.Background(), testHoldings(), models.Period1Year, ObjectiveMaxSharpe, 0.5)
	require.NoError(t, err)

	assert.Equal(t, ObjectiveMaxSharpe, result.Objective)
	assert.InDelta(t, 1.0, weightSum(result.OptimizedWeights), weightTolerance)
	assert.Len(t, result.Allocations, 3)
	assert.GreaterOrEqual(t, result.ExpectedVolatility, 0.0)
}

func TestEngineOptimizeSingleAsset(t *testing.T) {
	engine := newTestEngine(t)

	holdings := []models.Holding{{Symbol: "AAPL", Quantity: 10}}
	_, err := engine.Optimize(context.Background(), holdings, models.Period1Year, ObjectiveMaxSharpe, 0.5)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInsufficientAssets))
}

func TestEngineOptimizeDropsToSingleAsset(t *testing.T) {
	engine := newTestEngine(t)

	holdings := []models.Holding{
		{Symbol: "AAPL", Quantity: 10},
		{Symbol: "_BAD", Quantity: 5},
	}
	_, err := engine.Optimize(context.Background(), holdings, models.Period1Year, ObjectiveMaxSharpe, 0.5)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInsufficientAssets))
}

func TestEngineSimulate(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Simulate(context.Background(), testHoldings(), models.Period1Year, 5, 1000, 10000)
	require.NoError(t, err)

	assert.Equal(t, 10000.0, result.InitialInvestment)
	assert.Equal(t, 1000, result.Simulations)
	assert.LessOrEqual(t, result.Percentiles.P5, result.Percentiles.P95)
	assert.GreaterOrEqual(t, result.ProbabilityOfLoss, 0.0)
	assert.LessOrEqual(t, result.ProbabilityOfLoss, 1.0)
}

func TestEngineSimulateDefaultsToPortfolioValue(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Simulate(context.Background(), testHoldings(), models.Period1Year, 1, 500, 0)
	require.NoError(t, err)
	assert.Greater(t, result.InitialInvestment, 0.0)
}

func TestEngineMarketSummaries(t *testing.T) {
	engine := newTestEngine(t)

	summaries, err := engine.MarketSummaries(context.Background(), []string{"AAPL", "MSFT"}, models.Period6Months)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	for symbol, s := range summaries {
		assert.Greater(t, s.CurrentPrice, 0.0, symbol)
		assert.Greater(t, s.DataPoints, 10, symbol)
		assert.GreaterOrEqual(t, s.Volatility, 0.0, symbol)
	}
}
