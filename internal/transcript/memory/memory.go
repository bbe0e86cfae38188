package memory

import (
	"context"
	"sync"

	"askmynotes/internal/domain"
)

// Store keeps transcripts in process memory.
type Store struct {
	mu    sync.RWMutex
	turns map[string][]domain.ConversationTurn
}

func NewStore() *Store {
	return &Store{turns: make(map[string][]domain.ConversationTurn)}
}

// Recent returns at most n of the newest turns, oldest first.
func (s *Store) Recent(_ context.Context, tenantID string, n int) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.turns[tenantID]
	if n <= 0 {
		return []domain.ConversationTurn{}, nil
	}
	if n > len(all) {
		n = len(all)
	}
	return clone(all[len(all)-n:]), nil
}

func (s *Store) Append(_ context.Context, tenantID string, turns ...domain.ConversationTurn) error {
	if tenantID == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	s.turns[tenantID] = append(s.turns[tenantID], turns...)
	s.mu.Unlock()
	return nil
}

func (s *Store) History(_ context.Context, tenantID string) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.turns[tenantID]), nil
}

func (s *Store) Clear(_ context.Context, tenantID string) error {
	s.mu.Lock()
	delete(s.turns, tenantID)
	s.mu.Unlock()
	return nil
}

func clone(turns []domain.ConversationTurn) []domain.ConversationTurn {
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}
