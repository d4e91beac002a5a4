package models

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when an entity is not found in the data store
var ErrNotFound = errors.New("entity not found")

// Store provides load/save access to the deployment domain. Saves persist the full entity;
// there are no transactions across saves.
type Store interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetMembership(ctx context.Context, accountID, userID string) (*Membership, error)
	GetCampaign(ctx context.Context, id string) (*Campaign, error)

	GetPlacement(ctx context.Context, id string) (*Placement, error)
	SavePlacement(ctx context.Context, p *Placement) error

	GetComponent(ctx context.Context, id string) (*Component, error)
	SaveComponent(ctx context.Context, c *Component) error

	GetCombination(ctx context.Context, id string) (*Combination, error)
	SaveCombination(ctx context.Context, c *Combination) error
	// ListDeployedCombinations returns every combination that has a live ad reference.
	ListDeployedCombinations(ctx context.Context) ([]Combination, error)
}

// InMemoryStore implements Store with copy-in/copy-out semantics so callers never share
// mutable state with the store. It backs tests and local runs without Postgres.
type InMemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	memberships  map[string]Membership // accountID + "/" + userID
	campaigns    map[string]Campaign
	placements   map[string]Placement
	components   map[string]Component
	combinations map[string]Combination
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts:     make(map[string]Account),
		memberships:  make(map[string]Membership),
		campaigns:    make(map[string]Campaign),
		placements:   make(map[string]Placement),
		components:   make(map[string]Component),
		combinations: make(map[string]Combination),
	}
}

func membershipKey(accountID, userID string) string {
	return accountID + "/" + userID
}

// PutAccount inserts or replaces an account.
func (s *InMemoryStore) PutAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

// PutMembership inserts or replaces a membership.
func (s *InMemoryStore) PutMembership(m Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[membershipKey(m.AccountID, m.UserID)] = m
}

// PutCampaign inserts or replaces a campaign.
func (s *InMemoryStore) PutCampaign(c Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

func (s *InMemoryStore) GetAccount(_ context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryStore) GetMembership(_ context.Context, accountID, userID string) (*Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[membershipKey(accountID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *InMemoryStore) GetCampaign(_ context.Context, id string) (*Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) GetPlacement(_ context.Context, id string) (*Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.placements[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (s *InMemoryStore) SavePlacement(_ context.Context, p *Placement) error {
	if p == nil || p.ID == "" {
		return errors.New("placement id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placements[p.ID] = p.Clone()
	return nil
}

func (s *InMemoryStore) GetComponent(_ context.Context, id string) (*Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.components[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c.Clone()
	return &out, nil
}

func (s *InMemoryStore) SaveComponent(_ context.Context, c *Component) error {
	if c == nil || c.ID == "" {
		return errors.New("component id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components[c.ID] = c.Clone()
	return nil
}

func (s *InMemoryStore) GetCombination(_ context.Context, id string) (*Combination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.combinations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) SaveCombination(_ context.Context, c *Combination) error {
	if c == nil || c.ID == "" {
		return errors.New("combination id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combinations[c.ID] = *c
	return nil
}

func (s *InMemoryStore) ListDeployedCombinations(_ context.Context) ([]Combination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Combination
	for _, c := range s.combinations {
		if c.Deployed && c.ExternalAdRef != "" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
