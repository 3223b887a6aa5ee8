package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/errors"
)

// PortfolioStore is an in-memory portfolio repository keyed by portfolio
// ID, safe for concurrent use. Persistence is out of scope; the store
// exists so the background risk engine has a portfolio universe to walk.
type PortfolioStore struct {
	mu         sync.RWMutex
	portfolios map[string]*models.Portfolio
	byUser     map[string][]string
}

// NewPortfolioStore creates an empty store.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		portfolios: make(map[string]*models.Portfolio),
		byUser:     make(map[string][]string),
	}
}

// Upsert inserts or replaces a portfolio. The Updated timestamp is set
// here; Created is preserved on replacement.
func (s *PortfolioStore) Upsert(p *models.Portfolio) error {
	if p == nil || p.ID == "" {
		return errors.InvalidArgument("portfolio must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *p
	stored.Updated = now

	if existing, ok := s.portfolios[p.ID]; ok {
		stored.Created = existing.Created
		if existing.UserID != p.UserID {
			s.removeUserIndex(existing.UserID, p.ID)
			s.byUser[p.UserID] = append(s.byUser[p.UserID], p.ID)
		}
	} else {
		stored.Created = now
		s.byUser[p.UserID] = append(s.byUser[p.UserID], p.ID)
	}

	s.portfolios[p.ID] = &stored
	return nil
}

// Get returns a copy of the portfolio with the given ID.
func (s *PortfolioStore) Get(id string) (*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("portfolio %q not found", id))
	}
	out := *p
	out.Holdings = append([]models.Holding(nil), p.Holdings...)
	return &out, nil
}

// GetHoldings returns the holdings of the user's portfolio. Fails with a
// not-found error when the portfolio does not exist or belongs to a
// different user.
func (s *PortfolioStore) GetHoldings(userID, portfolioID string) ([]models.Holding, error) {
	p, err := s.Get(portfolioID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, errors.NotFound(fmt.Sprintf("portfolio %q not found for user %q", portfolioID, userID))
	}
	return p.Holdings, nil
}

// ListByUser returns copies of all portfolios owned by the user, in
// insertion order.
func (s *PortfolioStore) ListByUser(userID string) []*models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := make([]*models.Portfolio, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.portfolios[id]; ok {
			cp := *p
			cp.Holdings = append([]models.Holding(nil), p.Holdings...)
			out = append(out, &cp)
		}
	}
	return out
}

// All returns copies of every stored portfolio.
func (s *PortfolioStore) All() []*models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		cp := *p
		cp.Holdings = append([]models.Holding(nil), p.Holdings...)
		out = append(out, &cp)
	}
	return out
}

// Delete removes a portfolio.
func (s *PortfolioStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		return errors.NotFound(fmt.Sprintf("portfolio %q not found", id))
	}
	delete(s.portfolios, id)
	s.removeUserIndex(p.UserID, id)
	return nil
}

func (s *PortfolioStore) removeUserIndex(userID, id string) {
	ids := s.byUser[userID]
	for i, existing := range ids {
		if existing == id {
			s.byUser[userID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
