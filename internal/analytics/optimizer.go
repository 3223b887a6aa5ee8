package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// Optimization objectives. Unknown values fall back to ObjectiveMaxSharpe.
const (
	ObjectiveMaxSharpe     = "max_sharpe"
	ObjectiveMinVolatility = "min_volatility"
	ObjectiveMaxReturn     = "max_return"
)

// sumPenalty scales the quadratic penalty that holds the weight vector on
// the fully-invested simplex.
const sumPenalty = 1e4

// varianceFloor keeps the Sharpe objective and its gradient finite when a
// candidate allocation has near-zero variance.
const varianceFloor = 1e-10

// OptimizerConfig carries the tunable parameters of portfolio
// optimization.
type OptimizerConfig struct {
	RiskFreeRate        float64
	RebalanceThreshold  float64
	TransactionCostRate float64
}

// Optimizer computes constrained mean-variance weight allocations via a
// penalty-method formulation solved with gradient descent and a
// derivative-free fallback.
type Optimizer struct {
	cfg OptimizerConfig
	log *logger.Logger
}

// NewOptimizer creates an optimizer, applying defaults for unset values.
func NewOptimizer(cfg OptimizerConfig) *Optimizer {
	if cfg.RebalanceThreshold <= 0 {
		cfg.RebalanceThreshold = 0.01
	}
	if cfg.TransactionCostRate <= 0 {
		cfg.TransactionCostRate = 0.001
	}
	return &Optimizer{cfg: cfg, log: logger.GetLogger("analytics.optimizer")}
}

// OptimizeInput is a fully-prepared optimization problem: annualized
// statistics over a fixed symbol order plus the portfolio's present
// state for rebalancing advice.
type OptimizeInput struct {
	Symbols        []string
	ExpectedReturn []float64
	Covariance     *mat.SymDense
	CurrentWeights map[string]float64
	TotalValue     float64
	LastClose      map[string]float64
	Objective      string
	RiskTolerance  float64
}

// Optimize solves for the weight vector maximizing the requested
// objective subject to full investment and per-asset bounds derived from
// the risk tolerance.
func (o *Optimizer) Optimize(in OptimizeInput) (*models.OptimizationResult, error) {
	n := len(in.Symbols)
	if n < 2 {
		return nil, errors.InsufficientAssets("optimization requires at least two assets with usable history")
	}

	objective := in.Objective
	notes := []string(nil)
	switch objective {
	case ObjectiveMaxSharpe, ObjectiveMinVolatility, ObjectiveMaxReturn:
	default:
		if objective != "" {
			notes = append(notes, "unknown objective "+objective+", using "+ObjectiveMaxSharpe)
		}
		objective = ObjectiveMaxSharpe
	}

	lower, upper := o.bounds(n, in.RiskTolerance)

	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			return o.objectiveValue(objective, in, projectToBounds(w, lower, upper))
		},
		Grad: func(grad, w []float64) {
			o.objectiveGradient(objective, in, projectToBounds(w, lower, upper), grad)
		},
	}

	// Uniform initial allocation sits inside the bounds whenever the
	// constraint set is feasible at all.
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}
	initial = projectToBounds(initial, lower, upper)

	weights, err := o.solve(problem, initial)
	if err != nil {
		return nil, err
	}

	weights = projectToBounds(weights, lower, upper)
	normalizeWithin(weights, lower, upper)

	expReturn := dot(in.ExpectedReturn, weights)
	expVol := portfolioVolatility(in.Covariance, weights)
	sharpe := 0.0
	if expVol > 0 {
		sharpe = (expReturn - o.cfg.RiskFreeRate) / expVol
	}

	current := make([]float64, n)
	for i, symbol := range in.Symbols {
		current[i] = in.CurrentWeights[symbol]
	}
	curReturn := dot(in.ExpectedReturn, current)
	curVol := portfolioVolatility(in.Covariance, current)
	curSharpe := 0.0
	if curVol > 0 {
		curSharpe = (curReturn - o.cfg.RiskFreeRate) / curVol
	}

	allocations, cost := o.allocations(in, weights)

	optimized := make(map[string]float64, n)
	for i, symbol := range in.Symbols {
		optimized[symbol] = weights[i]
	}

	return &models.OptimizationResult{
		Objective:          objective,
		CurrentWeights:     in.CurrentWeights,
		OptimizedWeights:   optimized,
		Allocations:        allocations,
		ExpectedReturn:     expReturn,
		ExpectedVolatility: expVol,
		SharpeRatio:        sharpe,
		Improvement: models.ImprovementMetrics{
			ReturnImprovement:     expReturn - curReturn,
			VolatilityReduction:   curVol - expVol,
			SharpeRatioGain:       sharpe - curSharpe,
			CurrentSharpeRatio:    curSharpe,
			CurrentVolatility:     curVol,
			CurrentExpectedReturn: curReturn,
		},
		RebalancingCost: cost,
		Notes:           notes,
		Timestamp:       time.Now().UTC(),
	}, nil
}

// bounds maps the caller's risk tolerance onto per-asset weight caps.
// Conservative callers, including the zero default, get tight
// concentration limits, aggressive ones a looser cap, and the middle
// band is unconstrained above zero.
func (o *Optimizer) bounds(n int, tolerance float64) ([]float64, []float64) {
	maxWeight := 1.0
	switch {
	case tolerance < 0.3:
		maxWeight = 0.20
	case tolerance > 0.7:
		maxWeight = 0.40
	}

	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range upper {
		upper[i] = maxWeight
	}
	return lower, upper
}

// objectiveValue evaluates the penalized objective at the given weights.
// Minimizers run on this, so maximization objectives are negated.
func (o *Optimizer) objectiveValue(objective string, in OptimizeInput, w []float64) float64 {
	sum := 0.0
	for _, x := range w {
		sum += x
	}
	penalty := sumPenalty * (sum - 1) * (sum - 1)

	switch objective {
	case ObjectiveMinVolatility:
		return portfolioVariance(in.Covariance, w) + penalty
	case ObjectiveMaxReturn:
		return -dot(in.ExpectedReturn, w) + penalty
	default:
		vol := math.Sqrt(math.Max(portfolioVariance(in.Covariance, w), varianceFloor))
		return -(dot(in.ExpectedReturn, w)-o.cfg.RiskFreeRate)/vol + penalty
	}
}

// objectiveGradient writes the analytic gradient of the penalized
// objective at w into grad. It must stay consistent with objectiveValue;
// the gradient check in the tests pins the two together.
func (o *Optimizer) objectiveGradient(objective string, in OptimizeInput, w, grad []float64) {
	sum := 0.0
	for _, x := range w {
		sum += x
	}

	// d(w'Σw)/dw_i = 2 Σ_j cov_ij w_j
	dVar := make([]float64, len(w))
	for i := range w {
		for j := range w {
			dVar[i] += 2 * in.Covariance.At(i, j) * w[j]
		}
	}

	switch objective {
	case ObjectiveMinVolatility:
		copy(grad, dVar)
	case ObjectiveMaxReturn:
		for i := range grad {
			grad[i] = -in.ExpectedReturn[i]
		}
	default:
		excess := dot(in.ExpectedReturn, w) - o.cfg.RiskFreeRate
		vol := math.Sqrt(math.Max(portfolioVariance(in.Covariance, w), varianceFloor))
		for i := range grad {
			grad[i] = -in.ExpectedReturn[i]/vol + excess*dVar[i]/(2*vol*vol*vol)
		}
	}

	for i := range grad {
		grad[i] += 2 * sumPenalty * (sum - 1)
	}
}

// solve runs BFGS first and falls back to Nelder-Mead when the gradient
// method fails to converge.
func (o *Optimizer) solve(problem optimize.Problem, initial []float64) ([]float64, error) {
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 100,
		},
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err == nil && converged(result.Status) {
		return result.X, nil
	}
	if err != nil {
		o.log.Debugf("BFGS failed, retrying with Nelder-Mead: %v", err)
	}

	result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, errors.OptimizationFailed("optimization did not converge", err)
	}
	if !converged(result.Status) {
		return nil, errors.OptimizationFailed("optimization did not converge: "+result.Status.String(), nil)
	}
	return result.X, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence:
		return true
	default:
		return false
	}
}

// allocations translates the weight shift into per-asset trade advice
// and estimates the proportional transaction cost of executing it.
func (o *Optimizer) allocations(in OptimizeInput, weights []float64) ([]models.AssetAllocation, float64) {
	allocations := make([]models.AssetAllocation, 0, len(in.Symbols))
	grossTraded := 0.0

	for i, symbol := range in.Symbols {
		delta := weights[i] - in.CurrentWeights[symbol]
		alloc := models.AssetAllocation{
			Symbol:            symbol,
			CurrentWeight:     in.CurrentWeights[symbol],
			OptimizedWeight:   weights[i],
			WeightDelta:       delta,
			RecommendedAction: models.ActionHold,
		}

		if math.Abs(delta) > o.cfg.RebalanceThreshold {
			if delta > 0 {
				alloc.RecommendedAction = models.ActionBuy
			} else {
				alloc.RecommendedAction = models.ActionSell
			}
			alloc.TradeValue = math.Abs(delta) * in.TotalValue
			if price := in.LastClose[symbol]; price > 0 {
				alloc.SharesToTrade = alloc.TradeValue / price
			}
			grossTraded += alloc.TradeValue
		}

		allocations = append(allocations, alloc)
	}

	return allocations, grossTraded * o.cfg.TransactionCostRate
}

// projectToBounds clamps each weight into its box constraint.
func projectToBounds(w, lower, upper []float64) []float64 {
	out := make([]float64, len(w))
	for i, x := range w {
		out[i] = math.Min(math.Max(x, lower[i]), upper[i])
	}
	return out
}

// normalizeWithin rescales weights to sum to 1 without breaching the box
// constraints, redistributing any excess from capped assets to the rest.
// When the caps make full investment infeasible the weights are left at
// their maximum feasible sum.
func normalizeWithin(w, lower, upper []float64) {
	for iter := 0; iter < len(w)+1; iter++ {
		sum := 0.0
		for _, x := range w {
			sum += x
		}
		if sum <= 0 || math.Abs(sum-1) < weightTolerance {
			return
		}

		// Scale the headroom of uncapped assets toward the deficit.
		free := 0.0
		for i, x := range w {
			if x < upper[i]-weightTolerance {
				free += x
			}
		}
		if free == 0 {
			return
		}

		deficit := 1 - sum
		scale := (free + deficit) / free
		for i := range w {
			if w[i] < upper[i]-weightTolerance {
				w[i] = math.Min(math.Max(w[i]*scale, lower[i]), upper[i])
			}
		}
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func portfolioVariance(cov *mat.SymDense, w []float64) float64 {
	wVec := mat.NewVecDense(len(w), w)
	var tmp mat.VecDense
	tmp.MulVec(cov, wVec)
	return mat.Dot(wVec, &tmp)
}

func portfolioVolatility(cov *mat.SymDense, w []float64) float64 {
	v := portfolioVariance(cov, w)
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
