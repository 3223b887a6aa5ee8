package marketdata

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// Provider retrieves historical price series for a single symbol. The
// engine never calls the network itself; implementations own all I/O,
// timeouts and retries.
type Provider interface {
	History(ctx context.Context, symbol string, period models.Period) (models.Series, error)
}

// FetchResult carries the outcome of a multi-symbol fetch. Failures are
// reported per symbol; one bad symbol never aborts the batch.
type FetchResult struct {
	Series   map[string]models.Series
	Failures map[string]error
}

// Fetcher fans a multi-symbol request out to the provider with bounded
// concurrency.
type Fetcher struct {
	provider    Provider
	concurrency int
	log         *logger.Logger
}

// NewFetcher creates a fetcher over the given provider. Concurrency
// values below 1 fall back to 1.
func NewFetcher(provider Provider, concurrency int) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		provider:    provider,
		concurrency: concurrency,
		log:         logger.GetLogger("marketdata.fetcher"),
	}
}

// Fetch retrieves price history for all symbols. Per-symbol failures are
// collected into the result rather than returned; the error return is
// reserved for context cancellation.
func (f *Fetcher) Fetch(ctx context.Context, symbols []string, period models.Period) (*FetchResult, error) {
	result := &FetchResult{
		Series:   make(map[string]models.Series, len(symbols)),
		Failures: make(map[string]error),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, symbol := range symbols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			series, err := f.provider.History(ctx, symbol, period)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.log.Warnf("Failed to fetch history for %s: %v", symbol, err)
				result.Failures[symbol] = err
				return nil
			}
			result.Series[symbol] = series
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}
