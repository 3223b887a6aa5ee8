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
	"github.com/quantfolio/portfolio-engine/internal/riskengine"
	"github.com/quantfolio/portfolio-engine/internal/store"
	"github.com/quantfolio/portfolio-engine/internal/stream"
	"github.com/quantfolio/portfolio-engine/internal/ws"
	"github.com/quantfolio/portfolio-engine/pkg/metrics"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("riskengine.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("riskengine.main")
	log.Infof("Starting %s risk engine", cfg.App.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.NewRecorder()

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
		BenchmarkSymbol: cfg.Analytics.BenchmarkSymbol,
		TradingDays:     cfg.Analytics.TradingDays,
	})

	portfolios := store.NewPortfolioStore()

	producer := stream.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.RiskSnapshotTopic)
	defer producer.Close()

	hub := ws.NewHub(recorder.RecordWebsocketClients)
	go hub.Run(ctx)

	worker := riskengine.NewWorker(portfolios, engine, producer, hub, recorder, riskengine.Config{
		SnapshotInterval: cfg.Kafka.SnapshotInterval,
	})
	go worker.Run(ctx)

	consumer := stream.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.PortfolioTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx, func(ctx context.Context, key, value []byte) error {
			err := worker.HandlePortfolioUpdate(ctx, key, value)
			recorder.RecordKafkaConsume(cfg.Kafka.PortfolioTopic, err)
			return err
		}); err != nil {
			log.Errorf("Consumer stopped: %v", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("Received signal %v, shutting down", sig)
	case <-ctx.Done():
	}
	cancel()

	log.Info("Risk engine stopped")
}
