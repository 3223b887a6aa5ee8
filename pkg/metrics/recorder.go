package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Analysis metrics
	analysisCounter *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec
	varGauge        *prometheus.GaugeVec
	volatilityGauge *prometheus.GaugeVec
	sharpeGauge     *prometheus.GaugeVec

	// Market data metrics
	fetchCounter    *prometheus.CounterVec
	panelSizeGauge  *prometheus.GaugeVec
	simulationRuns  prometheus.Counter
	simulationPaths prometheus.Counter

	// Streaming metrics
	wsClientsGauge     prometheus.Gauge
	kafkaPublishedCntr *prometheus.CounterVec
	kafkaConsumedCntr  *prometheus.CounterVec
}

// NewRecorder creates a new metrics recorder
func NewRecorder() *Recorder {
	return &Recorder{
		apiRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pfe_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pfe_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		analysisCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pfe_analyses_total",
				Help: "The total number of portfolio analyses",
			},
			[]string{"operation", "outcome"},
		),
		analysisLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pfe_analysis_latency_seconds",
				Help:    "Portfolio analysis latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // From 10ms to ~40s
			},
			[]string{"operation"},
		),
		varGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pfe_var_value",
				Help: "Latest daily Value at Risk (VaR) per portfolio",
			},
			[]string{"portfolio_id"},
		),
		volatilityGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pfe_annualized_volatility",
				Help: "Latest annualized volatility per portfolio",
			},
			[]string{"portfolio_id"},
		),
		sharpeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pfe_sharpe_ratio",
				Help: "Latest Sharpe ratio per portfolio",
			},
			[]string{"portfolio_id"},
		),

		fetchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pfe_market_data_fetches_total",
				Help: "The total number of per-symbol market data fetches",
			},
			[]string{"outcome"},
		),
		panelSizeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pfe_panel_observations",
				Help: "Aligned observations in the most recent panel per period",
			},
			[]string{"period"},
		),
		simulationRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pfe_simulation_requests_total",
				Help: "The total number of Monte Carlo projection requests",
			},
		),
		simulationPaths: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pfe_simulation_paths_total",
				Help: "The total number of simulated paths",
			},
		),

		wsClientsGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pfe_websocket_clients",
				Help: "Number of connected websocket clients",
			},
		),
		kafkaPublishedCntr: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pfe_kafka_messages_published_total",
				Help: "The total number of messages published to Kafka",
			},
			[]string{"topic", "status"},
		),
		kafkaConsumedCntr: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pfe_kafka_messages_consumed_total",
				Help: "The total number of messages consumed from Kafka",
			},
			[]string{"topic", "status"},
		),
	}
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordAnalysis records one analysis operation and its latency
func (r *Recorder) RecordAnalysis(operation string, err error, latency time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.analysisCounter.WithLabelValues(operation, outcome).Inc()
	r.analysisLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordRiskMetrics exposes the headline risk figures of a portfolio
func (r *Recorder) RecordRiskMetrics(portfolioID string, dailyVaR, annualVol, sharpe float64) {
	r.varGauge.WithLabelValues(portfolioID).Set(dailyVaR)
	r.volatilityGauge.WithLabelValues(portfolioID).Set(annualVol)
	r.sharpeGauge.WithLabelValues(portfolioID).Set(sharpe)
}

// RecordFetch records the outcome of one per-symbol market data fetch
func (r *Recorder) RecordFetch(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.fetchCounter.WithLabelValues(outcome).Inc()
}

// RecordPanel records the size of an assembled panel
func (r *Recorder) RecordPanel(period string, observations int) {
	r.panelSizeGauge.WithLabelValues(period).Set(float64(observations))
}

// RecordSimulation records one projection request and its path count
func (r *Recorder) RecordSimulation(paths int) {
	r.simulationRuns.Inc()
	r.simulationPaths.Add(float64(paths))
}

// RecordWebsocketClients records the current websocket client count
func (r *Recorder) RecordWebsocketClients(count int) {
	r.wsClientsGauge.Set(float64(count))
}

// RecordKafkaPublish records one Kafka publish attempt
func (r *Recorder) RecordKafkaPublish(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.kafkaPublishedCntr.WithLabelValues(topic, status).Inc()
}

// RecordKafkaConsume records one Kafka message consumption
func (r *Recorder) RecordKafkaConsume(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.kafkaConsumedCntr.WithLabelValues(topic, status).Inc()
}
