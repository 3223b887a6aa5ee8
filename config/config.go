package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App        AppConfig
	API        APIConfig
	Analytics  AnalyticsConfig
	MarketData MarketDataConfig
	Simulation SimulationConfig
	Kafka      KafkaConfig
	Metrics    MetricsConfig
}

// General application configuration
type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
}

// Configuration for the API server
type APIConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	RateBurst       int
}

// Configuration for risk and optimization calculations
type AnalyticsConfig struct {
	RiskFreeRate        float64
	VaRConfidenceLevel  float64
	TradingDays         int
	BenchmarkSymbol     string
	BetaMinOverlap      int
	RebalanceThreshold  float64
	TransactionCostRate float64
	LowVolThreshold     float64
	MediumVolThreshold  float64
	WorkerCount         int
}

// Configuration for the market data layer
type MarketDataConfig struct {
	MinObservations  int
	FetchConcurrency int
	CacheTTL         time.Duration
}

// Configuration for Monte Carlo projections
type SimulationConfig struct {
	DefaultRuns   int
	MaxRuns       int
	TrajectoryCap int
	BatchSize     int
}

// Configuration for Kafka streaming
type KafkaConfig struct {
	Brokers           []string
	GroupID           string
	PortfolioTopic    string
	RiskSnapshotTopic string
	SnapshotInterval  time.Duration
}

// Configuration for Prometheus metrics
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// Load reads the configuration from config/config.yaml plus PFE_*
// environment overrides.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("PFE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "portfolio-engine")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.log_level", "info")

	// API defaults
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.read_timeout", "10s")
	viper.SetDefault("api.write_timeout", "30s")
	viper.SetDefault("api.shutdown_timeout", "30s")
	viper.SetDefault("api.rate_limit", 50)
	viper.SetDefault("api.rate_burst", 100)

	// Analytics defaults
	viper.SetDefault("analytics.risk_free_rate", 0.02)
	viper.SetDefault("analytics.var_confidence_level", 0.95)
	viper.SetDefault("analytics.trading_days", 252)
	viper.SetDefault("analytics.benchmark_symbol", "SPY")
	viper.SetDefault("analytics.beta_min_overlap", 10)
	viper.SetDefault("analytics.rebalance_threshold", 0.01)
	viper.SetDefault("analytics.transaction_cost_rate", 0.001)
	viper.SetDefault("analytics.low_vol_threshold", 0.10)
	viper.SetDefault("analytics.medium_vol_threshold", 0.20)
	viper.SetDefault("analytics.worker_count", 4)

	// Market data defaults
	viper.SetDefault("marketdata.min_observations", 10)
	viper.SetDefault("marketdata.fetch_concurrency", 8)
	viper.SetDefault("marketdata.cache_ttl", "5m")

	// Simulation defaults
	viper.SetDefault("simulation.default_runs", 10000)
	viper.SetDefault("simulation.max_runs", 100000)
	viper.SetDefault("simulation.trajectory_cap", 1000)
	viper.SetDefault("simulation.batch_size", 250)

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "portfolio-engine")
	viper.SetDefault("kafka.portfolio_topic", "portfolio.updates")
	viper.SetDefault("kafka.risk_snapshot_topic", "risk.snapshots")
	viper.SetDefault("kafka.snapshot_interval", "5m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
}
