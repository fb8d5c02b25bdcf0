package store

import (
	"context"
	"sync"

	"github.com/storelink/affbridge/internal/models"
)

type MemoryAttributionStore struct {
	mu   sync.RWMutex
	recs map[string]models.AttributionRecord
}

func NewMemoryAttributionStore() *MemoryAttributionStore {
	return &MemoryAttributionStore{recs: make(map[string]models.AttributionRecord)}
}

func (s *MemoryAttributionStore) Put(_ context.Context, email string, rec models.AttributionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[email] = rec
	return nil
}

func (s *MemoryAttributionStore) Get(_ context.Context, email string) (models.AttributionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[email]
	return rec, ok, nil
}

type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string
	order  []string // insertion order, so List (and "first tenant") is stable
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]string)}
}

func (s *MemoryTokenStore) Set(_ context.Context, storeID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[storeID]; !ok {
		s.order = append(s.order, storeID)
	}
	s.tokens[storeID] = token
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, storeID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[storeID]
	return tok, ok, nil
}

func (s *MemoryTokenStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}
