package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// MetricsRecorder is the subset of the metrics recorder the panel
// service reports to. A nil recorder disables reporting.
type MetricsRecorder interface {
	RecordFetch(success bool)
	RecordPanel(period string, observations int)
}

// Service assembles date-aligned price panels from a provider, applying
// the minimum-observation retention policy and a TTL cache keyed by the
// immutable request inputs.
type Service struct {
	fetcher         *Fetcher
	cache           *panelCache
	minObservations int
	metrics         MetricsRecorder
	log             *logger.Logger
}

// ServiceConfig holds the panel assembly policy.
type ServiceConfig struct {
	MinObservations  int
	FetchConcurrency int
	CacheTTL         time.Duration
	Metrics          MetricsRecorder
}

// NewService creates a panel service over the given provider.
func NewService(provider Provider, cfg ServiceConfig) *Service {
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = 10
	}
	return &Service{
		fetcher:         NewFetcher(provider, cfg.FetchConcurrency),
		cache:           newPanelCache(cfg.CacheTTL),
		minObservations: cfg.MinObservations,
		metrics:         cfg.Metrics,
		log:             logger.GetLogger("marketdata.panel"),
	}
}

// GetPanel returns the aligned price panel for the symbol set over the
// lookback period. Symbols that fail retrieval or fall below the
// observation threshold are dropped with a recorded reason; the call
// fails with a no-market-data error only when nothing survives.
func (s *Service) GetPanel(ctx context.Context, symbols []string, period models.Period) (*models.PricePanel, error) {
	if len(symbols) == 0 {
		return nil, errors.InvalidArgument("at least one symbol is required")
	}
	if !period.Valid() {
		return nil, errors.InvalidArgument(fmt.Sprintf("unsupported period %q", period))
	}

	if panel, ok := s.cache.get(symbols, period); ok {
		return panel, nil
	}

	fetched, err := s.fetcher.Fetch(ctx, symbols, period)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		for range fetched.Series {
			s.metrics.RecordFetch(true)
		}
		for range fetched.Failures {
			s.metrics.RecordFetch(false)
		}
	}

	panel, err := s.buildPanel(fetched)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordPanel(string(period), panel.Len())
	}

	s.cache.put(symbols, period, panel)
	return panel, nil
}

// buildPanel aligns the fetched series on their common trading dates.
func (s *Service) buildPanel(fetched *FetchResult) (*models.PricePanel, error) {
	dropped := make(map[string]string)
	for symbol, err := range fetched.Failures {
		dropped[symbol] = fmt.Sprintf("fetch failed: %v", err)
	}

	retained := make(map[string]models.Series)
	for symbol, series := range fetched.Series {
		if series.Len() <= s.minObservations {
			s.log.Warnf("Dropping %s: %d observations, need more than %d",
				symbol, series.Len(), s.minObservations)
			dropped[symbol] = fmt.Sprintf("insufficient history: %d observations", series.Len())
			continue
		}
		retained[symbol] = series
	}

	if len(retained) == 0 {
		return nil, errors.NoMarketData("no symbol yielded usable price history")
	}

	// Intersect trading dates across all retained symbols.
	dateCounts := make(map[int64]int)
	for _, series := range retained {
		for _, pt := range series.Points {
			dateCounts[pt.Date.Unix()]++
		}
	}

	common := make([]int64, 0, len(dateCounts))
	for ts, count := range dateCounts {
		if count == len(retained) {
			common = append(common, ts)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	if len(common) < 2 {
		return nil, errors.NoMarketData("no common trading dates across requested symbols")
	}

	index := make(map[int64]int, len(common))
	dates := make([]time.Time, len(common))
	for i, ts := range common {
		index[ts] = i
		dates[i] = time.Unix(ts, 0).UTC()
	}

	closes := make(map[string][]float64, len(retained))
	symbolsOut := make([]string, 0, len(retained))
	for symbol, series := range retained {
		aligned := make([]float64, len(common))
		for _, pt := range series.Points {
			if i, ok := index[pt.Date.Unix()]; ok {
				aligned[i] = pt.Close
			}
		}
		closes[symbol] = aligned
		symbolsOut = append(symbolsOut, symbol)
	}
	sort.Strings(symbolsOut)

	return &models.PricePanel{
		Symbols: symbolsOut,
		Dates:   dates,
		Closes:  closes,
		Dropped: dropped,
	}, nil
}
