package driven

import (
	"context"
	"time"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
)

// Scraper fetches and parses one external site's pages into the common
// record schema. Each site (ifwiki, plut, instead-games, ...)
// implements this interface and registers with the import service;
// registration order is the dispatch priority.
//
// Failure semantics are part of the contract: Import and ImportAuthor
// never return a Go error. Any fetch or parse failure is folded into
// the returned record's Err field, local to that one URL.
type Scraper interface {
	// Name returns the scraper's identifier, used for logging and for
	// disabling scrapers via configuration.
	Name() string

	// Match reports whether this scraper understands the URL at all.
	// Cheap: a regexp or host test, no I/O.
	Match(url string) bool

	// MatchWithCategory is the stricter test used when deciding
	// whether to follow a link discovered inside a record: the
	// category plus URL shape must indicate a page this scraper
	// actually parses (e.g. only game_page-categorised wiki URLs).
	MatchWithCategory(url, category string) bool

	// MatchAuthor reports whether this scraper can produce an author
	// bio for the URL.
	MatchAuthor(url string) bool

	// Import fetches and parses a game page.
	Import(ctx context.Context, url string) domain.PartialRecord

	// ImportAuthor fetches and parses a personality page.
	ImportAuthor(ctx context.Context, url string) domain.AuthorBio

	// URLCandidates performs bulk discovery (a category listing, a
	// site index crawl). Used by the bulk import job only, never by
	// single-record reconciliation.
	URLCandidates(ctx context.Context) ([]string, error)

	// DirtyURLs returns pages changed within the given age, for
	// incremental recrawls. Scrapers without a change feed return nil.
	DirtyURLs(ctx context.Context, age time.Duration) ([]string, error)
}
