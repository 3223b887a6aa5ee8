package marketdata

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quantfolio/portfolio-engine/pkg/models"
)

// panelCache is a TTL cache of assembled panels keyed by the immutable
// request inputs (sorted symbol set + period). Prices are time-varying,
// so entries expire rather than invalidate explicitly.
type panelCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	panel   *models.PricePanel
	expires time.Time
}

func newPanelCache(ttl time.Duration) *panelCache {
	return &panelCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func cacheKey(symbols []string, period models.Period) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return strings.Join(sorted, ",") + "|" + string(period)
}

func (c *panelCache) get(symbols []string, period models.Period) (*models.PricePanel, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[cacheKey(symbols, period)]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.panel, true
}

func (c *panelCache) put(symbols []string, period models.Period, panel *models.PricePanel) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic sweep keeps the map from accumulating dead entries.
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}

	c.entries[cacheKey(symbols, period)] = cacheEntry{
		panel:   panel,
		expires: now.Add(c.ttl),
	}
}
