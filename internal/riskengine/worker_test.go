package riskengine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-engine/internal/analytics"
	"github.com/quantfolio/portfolio-engine/internal/marketdata"
	"github.com/quantfolio/portfolio-engine/internal/store"
	"github.com/quantfolio/portfolio-engine/pkg/models"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedRecord
}

type publishedRecord struct {
	key   string
	value interface{}
}

func (f *fakePublisher) Publish(_ context.Context, key string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedRecord{key, value})
	return nil
}

func (f *fakePublisher) records() []publishedRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedRecord(nil), f.published...)
}

func newTestWorker(publisher Publisher) (*Worker, *store.PortfolioStore) {
	panels := marketdata.NewService(marketdata.NewSyntheticProvider(), marketdata.ServiceConfig{
		MinObservations:  10,
		FetchConcurrency: 4,
		CacheTTL:         time.Minute,
	})
	engine := analytics.NewEngine(panels, analytics.EngineConfig{
		Risk:            analytics.RiskConfig{RiskFreeRate: 0.02},
		BenchmarkSymbol: "SPY",
	})
	portfolios := store.NewPortfolioStore()
	worker := NewWorker(portfolios, engine, publisher, nil, nil, Config{
		SnapshotInterval: time.Hour,
		Period:           models.Period1Year,
	})
	return worker, portfolios
}

func TestSnapshotAllPublishes(t *testing.T) {
	publisher := &fakePublisher{}
	worker, portfolios := newTestWorker(publisher)

	require.NoError(t, portfolios.Upsert(&models.Portfolio{
		ID:     "p1",
		UserID: "u1",
		Holdings: []models.Holding{
			{Symbol: "AAPL", Quantity: 10},
			{Symbol: "MSFT", Quantity: 5},
		},
	}))

	worker.SnapshotAll(context.Background())

	records := publisher.records()
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].key)

	snapshot, ok := records[0].value.(*models.RiskSnapshot)
	require.True(t, ok)
	assert.Equal(t, "u1", snapshot.UserID)
	assert.Greater(t, snapshot.Metrics.TotalValue, 0.0)
}

func TestSnapshotSkipsFailingPortfolio(t *testing.T) {
	publisher := &fakePublisher{}
	worker, portfolios := newTestWorker(publisher)

	require.NoError(t, portfolios.Upsert(&models.Portfolio{
		ID:       "bad",
		UserID:   "u1",
		Holdings: []models.Holding{{Symbol: "_NONE", Quantity: 1}},
	}))
	require.NoError(t, portfolios.Upsert(&models.Portfolio{
		ID:       "good",
		UserID:   "u1",
		Holdings: []models.Holding{{Symbol: "AAPL", Quantity: 10}},
	}))

	worker.SnapshotAll(context.Background())

	records := publisher.records()
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].key)
}

func TestHandlePortfolioUpdate(t *testing.T) {
	publisher := &fakePublisher{}
	worker, portfolios := newTestWorker(publisher)

	p := models.Portfolio{
		ID:       "p2",
		UserID:   "u2",
		Holdings: []models.Holding{{Symbol: "AAPL", Quantity: 3}},
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	require.NoError(t, worker.HandlePortfolioUpdate(context.Background(), []byte("p2"), data))

	stored, err := portfolios.Get("p2")
	require.NoError(t, err)
	assert.Equal(t, "u2", stored.UserID)

	require.Len(t, publisher.records(), 1, "update triggers an immediate snapshot")
}

func TestHandlePortfolioUpdateBadPayload(t *testing.T) {
	worker, _ := newTestWorker(&fakePublisher{})
	err := worker.HandlePortfolioUpdate(context.Background(), nil, []byte("{broken"))
	assert.Error(t, err)
}
