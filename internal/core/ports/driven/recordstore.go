package driven

import (
	"context"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
)

// RecordStore persists reconciled games. The importer core only reads
// the full set (to recognise known games during bulk import) and saves
// individual games; everything else about storage is the caller's
// business.
type RecordStore interface {
	// Save inserts or updates a game. A game with an empty ID gets one
	// assigned; the stored game is returned.
	Save(ctx context.Context, game domain.Game) (domain.Game, error)

	// Get returns a game by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Game, error)

	// List returns all stored games.
	List(ctx context.Context) ([]domain.Game, error)

	// Close releases resources.
	Close() error
}
