package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantfolio/portfolio-engine/config"
	"github.com/quantfolio/portfolio-engine/internal/analytics"
	"github.com/quantfolio/portfolio-engine/internal/marketdata"
	"github.com/quantfolio/portfolio-engine/internal/store"
	"github.com/quantfolio/portfolio-engine/internal/ws"
	"github.com/quantfolio/portfolio-engine/pkg/api"
	"github.com/quantfolio/portfolio-engine/pkg/metrics"
	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("api.main")
	log.Infof("Starting %s API service", cfg.App.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics recorder
	recorder := metrics.NewRecorder()

	// Market data layer. The synthetic provider is deterministic and
	// network-free; swap in a real provider behind the same interface.
	panels := marketdata.NewService(marketdata.NewSyntheticProvider(), marketdata.ServiceConfig{
		MinObservations:  cfg.MarketData.MinObservations,
		FetchConcurrency: cfg.MarketData.FetchConcurrency,
		CacheTTL:         cfg.MarketData.CacheTTL,
		Metrics:          recorder,
	})

	engine := analytics.NewEngine(panels, analytics.EngineConfig{
		Risk: analytics.RiskConfig{
			RiskFreeRate:       cfg.Analytics.RiskFreeRate,
			VaRConfidenceLevel: cfg.Analytics.VaRConfidenceLevel,
			TradingDays:        cfg.Analytics.TradingDays,
			BetaMinOverlap:     cfg.Analytics.BetaMinOverlap,
			LowVolThreshold:    cfg.Analytics.LowVolThreshold,
			MediumVolThreshold: cfg.Analytics.MediumVolThreshold,
		},
		Optimizer: analytics.OptimizerConfig{
			RiskFreeRate:        cfg.Analytics.RiskFreeRate,
			RebalanceThreshold:  cfg.Analytics.RebalanceThreshold,
			TransactionCostRate: cfg.Analytics.TransactionCostRate,
		},
		Simulator: analytics.SimulatorConfig{
			DefaultRuns:   cfg.Simulation.DefaultRuns,
			MaxRuns:       cfg.Simulation.MaxRuns,
			TrajectoryCap: cfg.Simulation.TrajectoryCap,
			BatchSize:     cfg.Simulation.BatchSize,
			WorkerCount:   cfg.Analytics.WorkerCount,
		},
		BenchmarkSymbol: cfg.Analytics.BenchmarkSymbol,
		TradingDays:     cfg.Analytics.TradingDays,
	})

	portfolioStore := store.NewPortfolioStore()

	// Sample portfolio so the service is explorable out of the box.
	if err := portfolioStore.Upsert(&models.Portfolio{
		ID:     "sample-portfolio-1",
		UserID: "sample-user",
		Name:   "Sample Diversified Portfolio",
		Holdings: []models.Holding{
			{Symbol: "AAPL", Quantity: 100},
			{Symbol: "MSFT", Quantity: 150},
			{Symbol: "SPY", Quantity: 200},
		},
	}); err != nil {
		log.Warnf("Failed to seed sample portfolio: %v", err)
	}

	hub := ws.NewHub(recorder.RecordWebsocketClients)
	go hub.Run(ctx)

	server := api.NewServer(api.Config{
		Host:         cfg.API.Host,
		Port:         cfg.API.Port,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		Environment:  cfg.App.Environment,
		RateLimit:    cfg.API.RateLimit,
		RateBurst:    cfg.API.RateBurst,
	}, engine, analytics.DefaultAnalyzers(), portfolioStore, hub, recorder)

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("API server stopped: %v", err)
			cancel()
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("Received signal %v, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Errorf("Graceful shutdown failed: %v", err)
	}
	cancel()

	log.Info("API service stopped")
}
