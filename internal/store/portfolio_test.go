package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

func samplePortfolio(id, user string) *models.Portfolio {
	return &models.Portfolio{
		ID:     id,
		UserID: user,
		Name:   "growth",
		Holdings: []models.Holding{
			{Symbol: "AAPL", Quantity: 10},
			{Symbol: "MSFT", Quantity: 5},
		},
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := NewPortfolioStore()
	require.NoError(t, s.Upsert(samplePortfolio("p1", "u1")))

	got, err := s.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Len(t, got.Holdings, 2)
	assert.False(t, got.Created.IsZero())
}

func TestUpsertPreservesCreated(t *testing.T) {
	s := NewPortfolioStore()
	require.NoError(t, s.Upsert(samplePortfolio("p1", "u1")))
	first, err := s.Get("p1")
	require.NoError(t, err)

	updated := samplePortfolio("p1", "u1")
	updated.Name = "renamed"
	require.NoError(t, s.Upsert(updated))

	second, err := s.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, first.Created, second.Created)
	assert.Equal(t, "renamed", second.Name)
}

func TestUpsertRequiresID(t *testing.T) {
	s := NewPortfolioStore()
	err := s.Upsert(&models.Portfolio{UserID: "u1"})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestGetNotFound(t *testing.T) {
	s := NewPortfolioStore()
	_, err := s.Get("missing")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewPortfolioStore()
	require.NoError(t, s.Upsert(samplePortfolio("p1", "u1")))

	got, err := s.Get("p1")
	require.NoError(t, err)
	got.Holdings[0].Quantity = 999

	again, err := s.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, again.Holdings[0].Quantity)
}

func TestGetHoldings(t *testing.T) {
	s := NewPortfolioStore()
	require.NoError(t, s.Upsert(samplePortfolio("p1", "u1")))

	holdings, err := s.GetHoldings("u1", "p1")
	require.NoError(t, err)
	assert.Len(t, holdings, 2)

	_, err = s.GetHoldings("u2", "p1")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	_, err = s.GetHoldings("u1", "missing")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestListByUser(t *testing.T) {
	s := NewPortfolioStore()
	require.NoError(t, s.Upsert(samplePortfolio("p1", "u1")))
	require.NoError(t, s.Upsert(samplePortfolio("p2", "u1")))
	require.NoError(t, s.Upsert(samplePortfolio("p3", "u2")))

	assert.Len(t, s.ListByUser("u1"), 2)
	assert.Len(t, s.ListByUser("u2"), 1)
	assert.Empty(t, s.ListByUser("u3"))
}

func TestDelete(t *testing.T) {
	s := NewPortfolioStore()
	require.NoError(t, s.Upsert(samplePortfolio("p1", "u1")))
	require.NoError(t, s.Delete("p1"))

	_, err := s.Get("p1")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.Empty(t, s.ListByUser("u1"))

	assert.True(t, errors.IsKind(s.Delete("p1"), errors.KindNotFound))
}

func TestAll(t *testing.T) {
	s := NewPortfolioStore()
	require.NoError(t, s.Upsert(samplePortfolio("p1", "u1")))
	require.NoError(t, s.Upsert(samplePortfolio("p2", "u2")))
	assert.Len(t, s.All(), 2)
}
