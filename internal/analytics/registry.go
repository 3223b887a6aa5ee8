package analytics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

// Capability classifies what a registered analyzer exposes.
type Capability string

const (
	// CapabilityTools marks analyzers that perform computations on demand.
	CapabilityTools Capability = "tools"
	// CapabilityResources marks analyzers that serve retrievable data.
	CapabilityResources Capability = "resources"
)

// Analyzer describes one analysis capability exposed by the service.
// Analyzers are registered explicitly at startup; there is no scanning
// or reflective discovery, so the exposed set is exactly what main wires
// in.
type Analyzer interface {
	Name() string
	Description() string
	Capabilities() []Capability
}

// AnalyzerInfo is the serializable description of a registered analyzer.
type AnalyzerInfo struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Capabilities []Capability `json:"capabilities"`
}

// Registry holds the registered analyzers keyed by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Analyzer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Analyzer)}
}

// Register adds an analyzer. Duplicate names are rejected.
func (r *Registry) Register(a Analyzer) error {
	if a == nil || a.Name() == "" {
		return errors.InvalidArgument("analyzer must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[a.Name()]; exists {
		return errors.InvalidArgument(fmt.Sprintf("analyzer %q already registered", a.Name()))
	}
	r.byName[a.Name()] = a
	return nil
}

// Get returns the analyzer registered under name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("analyzer %q not registered", name))
	}
	return a, nil
}

// List returns descriptions of all registered analyzers, sorted by name.
func (r *Registry) List() []AnalyzerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]AnalyzerInfo, 0, len(r.byName))
	for _, a := range r.byName {
		infos = append(infos, AnalyzerInfo{
			Name:         a.Name(),
			Description:  a.Description(),
			Capabilities: a.Capabilities(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// StaticAnalyzer is a plain metadata record for analyses that are
// implemented directly by the engine.
type StaticAnalyzer struct {
	AnalyzerName string
	Summary      string
	Caps         []Capability
}

func (s StaticAnalyzer) Name() string               { return s.AnalyzerName }
func (s StaticAnalyzer) Description() string        { return s.Summary }
func (s StaticAnalyzer) Capabilities() []Capability { return s.Caps }

// DefaultAnalyzers returns the registry describing the engine's built-in
// analyses.
func DefaultAnalyzers() *Registry {
	r := NewRegistry()
	for _, a := range []StaticAnalyzer{
		{"risk", "Portfolio risk metrics: volatility, Sharpe ratio, VaR, drawdown and beta", []Capability{CapabilityTools}},
		{"optimization", "Mean-variance weight optimization with rebalancing advice", []Capability{CapabilityTools}},
		{"monte_carlo", "Monte Carlo projection of future portfolio value", []Capability{CapabilityTools}},
		{"market_data", "Per-symbol price and volatility summaries", []Capability{CapabilityTools, CapabilityResources}},
	} {
		// Names are unique by construction.
		_ = r.Register(a)
	}
	return r
}
