package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNoMarketData, KindOf(NoMarketData("nothing usable")))
	assert.Equal(t, KindUnknown, KindOf(stderrors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestWrapPreservesKind(t *testing.T) {
	inner := InsufficientAssets("only one symbol")
	wrapped := Wrap(inner, "optimization aborted")

	assert.True(t, IsKind(wrapped, KindInsufficientAssets))
	assert.Contains(t, wrapped.Error(), "optimization aborted")
	assert.True(t, stderrors.Is(wrapped, inner))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "no-op"))
}

func TestKindSurvivesForeignWrapping(t *testing.T) {
	err := fmt.Errorf("request failed: %w", ZeroPortfolioValue("empty holdings"))
	assert.True(t, IsKind(err, KindZeroPortfolioValue))

	var appErr *AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, "empty holdings", appErr.Message)
}

func TestOptimizationFailedCarriesCause(t *testing.T) {
	cause := stderrors.New("line search failed")
	err := OptimizationFailed("solver did not converge", cause)

	assert.True(t, IsKind(err, KindOptimizationFailed))
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "line search failed")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "no_market_data", KindNoMarketData.String())
	assert.Equal(t, "unknown", Kind(999).String())
}
