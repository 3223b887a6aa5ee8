package analytics

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// projectionSeed anchors every simulation run. Batches derive their own
// sub-seed from it, so identical inputs produce identical outputs no
// matter how many workers execute the batches.
const projectionSeed int64 = 42

// trajectoryStride thins stored sample paths to roughly monthly points
// so responses stay bounded on long horizons.
const trajectoryStride = 21

// SimulatorConfig carries the tunable parameters of Monte Carlo
// projection.
type SimulatorConfig struct {
	DefaultRuns   int
	MaxRuns       int
	TrajectoryCap int
	BatchSize     int
	WorkerCount   int
	TradingDays   int
}

// Simulator projects portfolio value distributions by compounding
// normally distributed daily returns.
type Simulator struct {
	cfg SimulatorConfig
	log *logger.Logger
}

// NewSimulator creates a simulator, applying defaults for unset values.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.DefaultRuns <= 0 {
		cfg.DefaultRuns = 10000
	}
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = 100000
	}
	if cfg.TrajectoryCap <= 0 {
		cfg.TrajectoryCap = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 250
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.TradingDays <= 0 {
		cfg.TradingDays = 252
	}
	return &Simulator{cfg: cfg, log: logger.GetLogger("analytics.montecarlo")}
}

// ProjectionInput describes one simulation request. DailyMean and
// DailyStdDev are estimated from the portfolio's historical returns.
type ProjectionInput struct {
	DailyMean         float64
	DailyStdDev       float64
	HorizonYears      float64
	Simulations       int
	InitialInvestment float64
}

// Project runs the simulation and summarizes the final value
// distribution. Cancellation is honored between batches.
func (s *Simulator) Project(ctx context.Context, in ProjectionInput) (*models.SimulationResult, error) {
	if in.InitialInvestment <= 0 {
		return nil, errors.InvalidArgument("initial investment must be positive")
	}
	if in.HorizonYears <= 0 {
		return nil, errors.InvalidArgument("horizon must be positive")
	}
	if in.DailyStdDev < 0 {
		return nil, errors.InvalidArgument("daily standard deviation must be non-negative")
	}

	runs := in.Simulations
	if runs <= 0 {
		runs = s.cfg.DefaultRuns
	}
	if runs > s.cfg.MaxRuns {
		s.log.Warnf("Clamping simulation count from %d to %d", runs, s.cfg.MaxRuns)
		runs = s.cfg.MaxRuns
	}

	steps := int(math.Round(float64(s.cfg.TradingDays) * in.HorizonYears))
	if steps < 1 {
		steps = 1
	}

	finals := make([]float64, runs)
	sampleCap := s.cfg.TrajectoryCap
	if runs < sampleCap {
		sampleCap = runs
	}
	trajectories := make([][]float64, sampleCap)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerCount)

	for start := 0; start < runs; start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch := start / s.cfg.BatchSize
		end := start + s.cfg.BatchSize
		if end > runs {
			end = runs
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(projectionSeed + int64(batch)))
			for i := start; i < end; i++ {
				record := i < sampleCap
				var path []float64
				if record {
					path = make([]float64, 0, steps/trajectoryStride+2)
					path = append(path, in.InitialInvestment)
				}

				value := in.InitialInvestment
				for step := 1; step <= steps; step++ {
					r := in.DailyMean + in.DailyStdDev*rng.NormFloat64()
					value *= 1 + r
					if value < 0 {
						value = 0
					}
					if record && (step%trajectoryStride == 0 || step == steps) {
						path = append(path, value)
					}
				}

				finals[i] = value
				if record {
					trajectories[i] = path
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sorted := make([]float64, len(finals))
	copy(sorted, finals)
	sort.Float64s(sorted)

	losses := 0
	for _, v := range finals {
		if v < in.InitialInvestment {
			losses++
		}
	}

	return &models.SimulationResult{
		InitialInvestment: in.InitialInvestment,
		HorizonYears:      in.HorizonYears,
		Simulations:       runs,
		Percentiles: models.PercentileOutcomes{
			P5:  Percentile(sorted, 5),
			P25: Percentile(sorted, 25),
			P50: Percentile(sorted, 50),
			P75: Percentile(sorted, 75),
			P95: Percentile(sorted, 95),
		},
		ProbabilityOfLoss:  float64(losses) / float64(runs),
		ExpectedFinalValue: stat.Mean(finals, nil),
		WorstCase:          sorted[0],
		BestCase:           sorted[len(sorted)-1],
		SampleTrajectories: trajectories,
		Timestamp:          time.Now().UTC(),
	}, nil
}
