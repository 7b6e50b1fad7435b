package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vblancom/tullave-services/internal/cardsvc/models"
)

// MemoryStore is an in-memory card repository. It backs the unit tests and
// serves as a fallback backend when no database is configured. The active
// card is tracked as a single reference, not recomputed by scanning.
type MemoryStore struct {
	mu     sync.RWMutex
	cards  map[string]models.Card
	active string // serial of the active card, "" when none
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cards: make(map[string]models.Card)}
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]models.Card, 0, len(s.cards))
	for _, c := range s.cards {
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].RegisteredDate.After(cards[j].RegisteredDate)
	})
	return cards, nil
}

func (s *MemoryStore) GetActive(ctx context.Context) (models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == "" {
		return models.Card{}, ErrNotFound
	}
	return s.cards[s.active], nil
}

func (s *MemoryStore) Get(ctx context.Context, serial string) (models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[serial]
	if !ok {
		return models.Card{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) Insert(ctx context.Context, card models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[card.Serial]; ok {
		return ErrDuplicate
	}

	if card.IsActive {
		s.deactivateLocked()
		s.active = card.Serial
	}
	s.cards[card.Serial] = card
	return nil
}

func (s *MemoryStore) SetActive(ctx context.Context, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.cards[serial]
	if !ok {
		return ErrNotFound
	}

	s.deactivateLocked()
	target.IsActive = true
	s.cards[serial] = target
	s.active = serial
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[serial]; !ok {
		return ErrNotFound
	}

	delete(s.cards, serial)
	if s.active == serial {
		s.active = ""
	}
	return nil
}

func (s *MemoryStore) deactivateLocked() {
	if s.active == "" {
		return
	}
	if prev, ok := s.cards[s.active]; ok {
		prev.IsActive = false
		s.cards[s.active] = prev
	}
	s.active = ""
}
