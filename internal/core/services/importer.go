package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driving"
	"github.com/ifhub-labs/ifimport/internal/enrich"
	"github.com/ifhub-labs/ifimport/internal/logger"
	"github.com/ifhub-labs/ifimport/internal/similarity"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// Ensure ImportService implements the interface.
var _ driving.Importer = (*ImportService)(nil)

// ImportService routes URLs to registered scrapers and reconciles the
// partial records they produce into one merged record per game.
//
// The scraper list is an ordered priority list, not a set: the first
// scraper whose Match accepts a URL handles it, so more specific
// scrapers must be registered first.
type ImportService struct {
	scrapers []driven.Scraper
	enricher *enrich.Enricher
}

// NewImportService creates an import service over the given scrapers,
// in dispatch order. The enricher runs over every scraper record
// before it is merged; pass enrich.Default() for production rules.
func NewImportService(enricher *enrich.Enricher, scrapers ...driven.Scraper) *ImportService {
	return &ImportService{scrapers: scrapers, enricher: enricher}
}

// Scrapers returns the registered scrapers in dispatch order.
func (s *ImportService) Scrapers() []driven.Scraper {
	return s.scrapers
}

// DispatchImport routes the URL to the first scraper that matches it.
// A URL no scraper understands yields an unknown-resource error record;
// like every scraper failure it is local to this one URL.
func (s *ImportService) DispatchImport(ctx context.Context, url string) domain.PartialRecord {
	for _, sc := range s.scrapers {
		if sc.Match(url) {
			logger.Debug("Dispatching %s to %s", url, sc.Name())
			return sc.Import(ctx, url)
		}
	}
	return domain.ErrorRecord(domain.MsgUnknownResource)
}

// IsFamiliarURL reports whether any registered scraper claims the URL
// under the given link category. This is the traversal boundary: links
// that are not familiar are kept in the record but never fetched.
func (s *ImportService) IsFamiliarURL(url, category string) bool {
	for _, sc := range s.scrapers {
		if sc.MatchWithCategory(url, category) {
			return true
		}
	}
	return false
}

// ImportAuthor routes a personality URL to the first scraper that can
// produce a bio for it.
func (s *ImportService) ImportAuthor(ctx context.Context, url string) domain.AuthorBio {
	for _, sc := range s.scrapers {
		if sc.MatchAuthor(url) {
			return sc.ImportAuthor(ctx, url)
		}
	}
	return domain.AuthorErrorBio(domain.MsgUnknownResource)
}

// URLCandidates gathers bulk-discovery URLs from every scraper.
// One failing scraper does not stop the others; the joined error is
// returned alongside whatever was collected.
func (s *ImportService) URLCandidates(ctx context.Context) ([]string, error) {
	var urls []string
	var errs []error
	for _, sc := range s.scrapers {
		found, err := sc.URLCandidates(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s candidates: %w", sc.Name(), err))
			continue
		}
		logger.Debug("%s: %d candidate urls", sc.Name(), len(found))
		urls = append(urls, found...)
	}
	return urls, errors.Join(errs...)
}

// DirtyURLs gathers recently-changed URLs from every scraper.
func (s *ImportService) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	var urls []string
	var errs []error
	for _, sc := range s.scrapers {
		found, err := sc.DirtyURLs(ctx, age)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s dirty urls: %w", sc.Name(), err))
			continue
		}
		urls = append(urls, found...)
	}
	return urls, errors.Join(errs...)
}

// Import reconciles one game from the seed URLs.
//
// The traversal keeps a visited set keyed by hashized URL and a FIFO
// worklist seeded with the seeds. Every fetched record that carries a
// title is tested against the canonical title (the first one seen;
// seeds overwrite it unconditionally): below the low-confidence
// threshold the record is rejected wholesale and none of its links are
// followed. Accepted records contribute their familiar links back to
// the worklist, so the traversal reaches a fixed point rather than a
// fixed hop count; the visited set breaks cycles.
func (s *ImportService) Import(ctx context.Context, seeds ...string) (domain.MergedRecord, map[string]string, error) {
	visited := make(map[string]struct{})
	seedSet := make(map[string]struct{}, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, u := range seeds {
		seedSet[urlkit.HashizeURL(u)] = struct{}{}
		frontier = append(frontier, u)
	}

	var partials []domain.PartialRecord
	urlErrors := make(map[string]string)
	canonical := ""
	haveCanonical := false

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return domain.MergedRecord{}, urlErrors, err
		}

		url := frontier[0]
		frontier = frontier[1:]

		hash := urlkit.HashizeURL(url)
		if _, ok := visited[hash]; ok {
			continue
		}
		visited[hash] = struct{}{}

		rec := s.DispatchImport(ctx, url)
		s.enricher.EnrichPartial(&rec)
		if rec.HasError() {
			urlErrors[url] = rec.Err
		}

		accept := false
		switch {
		case rec.Title != "":
			_, isSeed := seedSet[hash]
			if haveCanonical && !isSeed {
				sim := similarity.Jaccard(
					similarity.BagOfWords(canonical),
					similarity.BagOfWords(rec.Title))
				accept = sim > similarity.LowConfidence
				switch {
				case !accept:
					logger.Warn("Rejecting %s: title %q too dissimilar to %q (%.2f)",
						url, rec.Title, canonical, sim)
				case sim < similarity.HighConfidence:
					logger.Warn("Ambiguous merge of %s: %q vs %q (%.2f)",
						url, rec.Title, canonical, sim)
				}
			} else {
				canonical = rec.Title
				haveCanonical = true
				accept = true
			}
		case !haveCanonical:
			// No title anywhere yet: keep exploring.
			accept = true
		}

		if !accept {
			continue
		}
		partials = append(partials, rec)
		for _, u := range rec.URLs {
			if s.IsFamiliarURL(u.URL, u.CatSlug) {
				frontier = append(frontier, u.URL)
			}
		}
	}

	// Higher-priority sources win scalar tie-breaks; the sort is
	// stable so equal priorities keep discovery order.
	sort.SliceStable(partials, func(i, j int) bool {
		return partials[i].Priority > partials[j].Priority
	})

	var merged domain.MergedRecord
	state := newMergeState()
	for _, p := range partials {
		state.fold(&merged, p)
	}

	// A title means we got something usable; per-URL failures stay in
	// the error map but do not taint the record itself.
	if merged.Title != "" {
		merged.Err = ""
	}

	return merged, urlErrors, nil
}
