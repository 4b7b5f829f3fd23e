// Package memory provides an in-memory record store, used by tests and
// by dry runs that must not touch the database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is a map-backed record store. Safe for concurrent use.
type RecordStore struct {
	mu    sync.RWMutex
	games map[string]domain.Game
}

// NewRecordStore creates an empty in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{games: make(map[string]domain.Game)}
}

// Save inserts or updates a game. A game with an empty ID gets one
// assigned.
func (s *RecordStore) Save(ctx context.Context, game domain.Game) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if game.UpdatedAt.IsZero() {
		game.UpdatedAt = time.Now().UTC()
	}
	s.games[game.ID] = game
	return game, nil
}

// Get returns a game by ID, or domain.ErrNotFound.
func (s *RecordStore) Get(ctx context.Context, id string) (*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, ok := s.games[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &game, nil
}

// List returns all stored games, ordered by title.
func (s *RecordStore) List(ctx context.Context) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]domain.Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].Title < games[j].Title
	})
	return games, nil
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}
