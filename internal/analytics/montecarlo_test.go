package analytics

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

func TestProjectDeterministic(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{WorkerCount: 8})
	in := ProjectionInput{
		DailyMean:         0.0004,
		DailyStdDev:       0.012,
		HorizonYears:      1,
		Simulations:       2000,
		InitialInvestment: 10000,
	}

	first, err := sim.Project(context.Background(), in)
	require.NoError(t, err)
	second, err := sim.Project(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.Percentiles, second.Percentiles)
	assert.Equal(t, first.ExpectedFinalValue, second.ExpectedFinalValue)
	assert.Equal(t, first.ProbabilityOfLoss, second.ProbabilityOfLoss)
	assert.Equal(t, first.WorstCase, second.WorstCase)
	assert.Equal(t, first.BestCase, second.BestCase)
}

func TestProjectPercentilesMonotone(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{})
	result, err := sim.Project(context.Background(), ProjectionInput{
		DailyMean:         0.0003,
		DailyStdDev:       0.015,
		HorizonYears:      2,
		Simulations:       3000,
		InitialInvestment: 5000,
	})
	require.NoError(t, err)

	p := result.Percentiles
	assert.LessOrEqual(t, p.P5, p.P25)
	assert.LessOrEqual(t, p.P25, p.P50)
	assert.LessOrEqual(t, p.P50, p.P75)
	assert.LessOrEqual(t, p.P75, p.P95)
	assert.LessOrEqual(t, result.WorstCase, p.P5)
	assert.LessOrEqual(t, p.P95, result.BestCase)
}

func TestProjectZeroVolatility(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{})
	result, err := sim.Project(context.Background(), ProjectionInput{
		DailyMean:         0.001,
		DailyStdDev:       0,
		HorizonYears:      1,
		Simulations:       500,
		InitialInvestment: 1000,
	})
	require.NoError(t, err)

	expected := 1000 * math.Pow(1.001, 252)
	assert.InDelta(t, expected, result.Percentiles.P5, 1e-6)
	assert.InDelta(t, expected, result.Percentiles.P95, 1e-6)
	assert.InDelta(t, expected, result.ExpectedFinalValue, 1e-6)
	assert.Zero(t, result.ProbabilityOfLoss)
}

func TestProjectTrajectoriesBounded(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{TrajectoryCap: 50})
	result, err := sim.Project(context.Background(), ProjectionInput{
		DailyMean:         0.0003,
		DailyStdDev:       0.01,
		HorizonYears:      1,
		Simulations:       600,
		InitialInvestment: 1000,
	})
	require.NoError(t, err)

	assert.Len(t, result.SampleTrajectories, 50)
	for _, path := range result.SampleTrajectories {
		require.NotEmpty(t, path)
		assert.Equal(t, 1000.0, path[0])
	}
}

func TestProjectClampsSimulationCount(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{MaxRuns: 1000})
	result, err := sim.Project(context.Background(), ProjectionInput{
		DailyMean:         0.0003,
		DailyStdDev:       0.01,
		HorizonYears:      0.5,
		Simulations:       50000,
		InitialInvestment: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, result.Simulations)
}

func TestProjectDefaultsSimulationCount(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{DefaultRuns: 800})
	result, err := sim.Project(context.Background(), ProjectionInput{
		DailyMean:         0.0003,
		DailyStdDev:       0.01,
		HorizonYears:      0.25,
		InitialInvestment: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 800, result.Simulations)
}

func TestProjectInvalidInput(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{})

	_, err := sim.Project(context.Background(), ProjectionInput{HorizonYears: 1, InitialInvestment: 0})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))

	_, err = sim.Project(context.Background(), ProjectionInput{HorizonYears: 0, InitialInvestment: 100})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))

	_, err = sim.Project(context.Background(), ProjectionInput{HorizonYears: 1, InitialInvestment: 100, DailyStdDev: -0.1})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestProjectHonorsCancellation(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Project(ctx, ProjectionInput{
		DailyMean:         0.0003,
		DailyStdDev:       0.01,
		HorizonYears:      1,
		Simulations:       10000,
		InitialInvestment: 1000,
	})
	assert.Error(t, err)
}
