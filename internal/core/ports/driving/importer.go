package driving

import (
	"context"
	"time"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
)

// Importer is the single-game reconciliation entry point.
type Importer interface {
	// Import runs a transitive import from the seed URLs: each seed is
	// dispatched to its scraper, links discovered inside accepted
	// records are followed while a registered scraper claims them, and
	// all accepted partial records are merged into one. The error map
	// is keyed by URL and collects per-URL failures; they are never
	// fatal to the import itself. The returned error only reports
	// context cancellation.
	Import(ctx context.Context, seeds ...string) (domain.MergedRecord, map[string]string, error)

	// ImportAuthor fetches a personality page through the first
	// scraper that claims it.
	ImportAuthor(ctx context.Context, url string) domain.AuthorBio

	// IsFamiliarURL reports whether any registered scraper understands
	// the URL under the given link category. It bounds the transitive
	// traversal to a closed set of known sites.
	IsFamiliarURL(url, category string) bool

	// URLCandidates gathers bulk-discovery URLs from every scraper.
	URLCandidates(ctx context.Context) ([]string, error)

	// DirtyURLs gathers recently-changed URLs from every scraper.
	DirtyURLs(ctx context.Context, age time.Duration) ([]string, error)
}

// BulkReport summarises one bulk import run.
type BulkReport struct {
	// Candidates is how many discovery URLs were considered.
	Candidates int

	// NewGames is how many previously unknown games were stored.
	NewGames int

	// UpdatedGames is how many known games were re-imported.
	UpdatedGames int

	// MergedGames is how many candidates merged into existing games.
	MergedGames int

	// Conflicts counts titles too dissimilar to merge despite shared
	// URLs; these are logged and kept separate.
	Conflicts int

	// Errors counts candidates that failed to fetch.
	Errors int
}

// BulkImporter discovers new games across every registered scraper and
// reconciles them against the stored catalogue.
type BulkImporter interface {
	Run(ctx context.Context) (BulkReport, error)

	// Reimport re-fetches and re-stores every robot-imported game,
	// picking up scraper and enrichment rule changes.
	Reimport(ctx context.Context) error
}
