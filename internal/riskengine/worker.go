package riskengine

import (
	"context"
	"time"

	"github.com/quantfolio/portfolio-engine/internal/analytics"
	"github.com/quantfolio/portfolio-engine/internal/store"
	"github.com/quantfolio/portfolio-engine/internal/stream"
	"github.com/quantfolio/portfolio-engine/internal/ws"
	"github.com/quantfolio/portfolio-engine/pkg/metrics"
	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// Publisher is the outbound side of the worker. *stream.Producer
// satisfies it; tests substitute a recording fake.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Config holds the worker's schedule and analysis parameters.
type Config struct {
	SnapshotInterval time.Duration
	Period           models.Period
}

// Worker maintains the portfolio universe from the update stream and
// periodically recomputes risk snapshots, publishing each one to the
// snapshot topic and the websocket hub.
type Worker struct {
	portfolios *store.PortfolioStore
	engine     *analytics.Engine
	publisher  Publisher
	hub        *ws.Hub
	recorder   *metrics.Recorder
	cfg        Config
	log        *logger.Logger
}

// NewWorker creates a worker, applying defaults for unset values.
func NewWorker(portfolios *store.PortfolioStore, engine *analytics.Engine, publisher Publisher, hub *ws.Hub, recorder *metrics.Recorder, cfg Config) *Worker {
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = 5 * time.Minute
	}
	if !cfg.Period.Valid() {
		cfg.Period = models.Period1Year
	}
	return &Worker{
		portfolios: portfolios,
		engine:     engine,
		publisher:  publisher,
		hub:        hub,
		recorder:   recorder,
		cfg:        cfg,
		log:        logger.GetLogger("riskengine.worker"),
	}
}

// Run recomputes snapshots on the configured interval until the context
// is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.SnapshotInterval)
	defer ticker.Stop()

	w.log.Infof("Starting risk worker, snapshot interval %v", w.cfg.SnapshotInterval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Risk worker shutting down")
			return
		case <-ticker.C:
			w.SnapshotAll(ctx)
		}
	}
}

// SnapshotAll recomputes and publishes a risk snapshot for every stored
// portfolio. Per-portfolio failures are logged and skipped.
func (w *Worker) SnapshotAll(ctx context.Context) {
	for _, p := range w.portfolios.All() {
		if ctx.Err() != nil {
			return
		}
		if err := w.snapshot(ctx, p); err != nil {
			w.log.Warnf("Snapshot failed for portfolio %s: %v", p.ID, err)
		}
	}
}

// HandlePortfolioUpdate is the stream.Handler for the portfolio update
// topic. Each record replaces the stored portfolio and triggers an
// immediate snapshot.
func (w *Worker) HandlePortfolioUpdate(ctx context.Context, _ []byte, value []byte) error {
	var p models.Portfolio
	if err := stream.DecodeJSON(value, &p); err != nil {
		return err
	}

	if err := w.portfolios.Upsert(&p); err != nil {
		return err
	}
	w.log.Infof("Portfolio %s updated, %d holdings", p.ID, len(p.Holdings))

	return w.snapshot(ctx, &p)
}

func (w *Worker) snapshot(ctx context.Context, p *models.Portfolio) error {
	riskMetrics, err := w.engine.AnalyzeRisk(ctx, p.Holdings, w.cfg.Period)
	if err != nil {
		return err
	}

	snapshot := &models.RiskSnapshot{
		PortfolioID: p.ID,
		UserID:      p.UserID,
		Metrics:     *riskMetrics,
	}

	if w.recorder != nil {
		w.recorder.RecordRiskMetrics(p.ID, riskMetrics.DailyVaR,
			riskMetrics.AnnualizedVolatility, riskMetrics.SharpeRatio)
	}
	if w.hub != nil {
		w.hub.BroadcastSnapshot(snapshot)
	}

	if w.publisher == nil {
		return nil
	}
	err = w.publisher.Publish(ctx, p.ID, snapshot)
	if w.recorder != nil {
		w.recorder.RecordKafkaPublish("risk.snapshots", err)
	}
	return err
}
