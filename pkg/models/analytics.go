package models

import (
	"time"
)

// RiskLevel is the coarse volatility classification of a portfolio.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// BetaSource tags how a beta value was obtained, so callers can tell a
// real measurement apart from the neutral fallback.
type BetaSource string

const (
	// BetaComputed means beta was measured against the benchmark.
	BetaComputed BetaSource = "computed"
	// BetaDefaultNeutral means too few overlapping benchmark observations
	// existed and the neutral value 1.0 was substituted.
	BetaDefaultNeutral BetaSource = "default_neutral"
)

// Beta is the portfolio's sensitivity to the benchmark, tagged with its
// provenance.
type Beta struct {
	Value  float64    `json:"value"`
	Source BetaSource `json:"source"`
}

// RiskMetrics is the summary risk/performance record for one portfolio,
// computed fresh per request.
type RiskMetrics struct {
	TotalValue           float64            `json:"total_value"`
	AnnualReturn         float64            `json:"annual_return"`
	AnnualizedVolatility float64            `json:"annualized_volatility"`
	SharpeRatio          float64            `json:"sharpe_ratio"`
	DailyVaR             float64            `json:"daily_var"`
	AnnualVaR            float64            `json:"annual_var"`
	MaxDrawdown          float64            `json:"max_drawdown"`
	Beta                 Beta               `json:"beta"`
	RiskLevel            RiskLevel          `json:"risk_level"`
	Weights              map[string]float64 `json:"weights"`
	NumAssets            int                `json:"num_assets"`
	RiskFreeRate         float64            `json:"risk_free_rate"`
	Warnings             []string           `json:"warnings,omitempty"`
	Timestamp            time.Time          `json:"timestamp"`
}

// RebalanceAction is the recommended trade direction for one asset.
type RebalanceAction string

const (
	ActionBuy  RebalanceAction = "buy"
	ActionSell RebalanceAction = "sell"
	ActionHold RebalanceAction = "hold"
)

// AssetAllocation compares the current and optimized weight of one asset
// and carries the trade recommendation derived from the delta.
type AssetAllocation struct {
	Symbol            string          `json:"symbol"`
	CurrentWeight     float64         `json:"current_weight"`
	OptimizedWeight   float64         `json:"optimized_weight"`
	WeightDelta       float64         `json:"weight_delta"`
	RecommendedAction RebalanceAction `json:"recommended_action"`
	TradeValue        float64         `json:"trade_value"`
	SharesToTrade     float64         `json:"shares_to_trade"`
}

// ImprovementMetrics quantifies what the optimized allocation gains over
// the current one.
type ImprovementMetrics struct {
	ReturnImprovement     float64 `json:"return_improvement"`
	VolatilityReduction   float64 `json:"volatility_reduction"`
	SharpeRatioGain       float64 `json:"sharpe_ratio_gain"`
	CurrentSharpeRatio    float64 `json:"current_sharpe_ratio"`
	CurrentVolatility     float64 `json:"current_volatility"`
	CurrentExpectedReturn float64 `json:"current_expected_return"`
}

// OptimizationResult is the output of a mean-variance optimization run.
type OptimizationResult struct {
	Objective          string             `json:"objective"`
	CurrentWeights     map[string]float64 `json:"current_weights"`
	OptimizedWeights   map[string]float64 `json:"optimized_weights"`
	Allocations        []AssetAllocation  `json:"allocations"`
	ExpectedReturn     float64            `json:"expected_return"`
	ExpectedVolatility float64            `json:"expected_volatility"`
	SharpeRatio        float64            `json:"sharpe_ratio"`
	Improvement        ImprovementMetrics `json:"improvement"`
	RebalancingCost    float64            `json:"rebalancing_cost_estimate"`
	Notes              []string           `json:"notes,omitempty"`
	Timestamp          time.Time          `json:"timestamp"`
}

// PercentileOutcomes holds terminal portfolio values at fixed percentile
// ranks. Values are monotone non-decreasing with rank.
type PercentileOutcomes struct {
	P5  float64 `json:"5th"`
	P25 float64 `json:"25th"`
	P50 float64 `json:"50th"`
	P75 float64 `json:"75th"`
	P95 float64 `json:"95th"`
}

// SimulationResult is the output of a Monte Carlo projection. The model
// assumes i.i.d. Gaussian daily returns; it is a projection of that model,
// not a forecast guarantee.
type SimulationResult struct {
	InitialInvestment  float64            `json:"initial_investment"`
	HorizonYears       float64            `json:"time_horizon_years"`
	Simulations        int                `json:"simulations"`
	Percentiles        PercentileOutcomes `json:"percentile_outcomes"`
	ProbabilityOfLoss  float64            `json:"probability_of_loss"`
	ExpectedFinalValue float64            `json:"expected_final_value"`
	WorstCase          float64            `json:"worst_case"`
	BestCase           float64            `json:"best_case"`
	SampleTrajectories [][]float64        `json:"sample_trajectories,omitempty"`
	Timestamp          time.Time          `json:"timestamp"`
}

// RiskSnapshot is the streamed record published after each background
// risk computation.
type RiskSnapshot struct {
	PortfolioID string      `json:"portfolio_id"`
	UserID      string      `json:"user_id"`
	Metrics     RiskMetrics `json:"metrics"`
}
