// Package rilarhiv imports games from the rilarhiv.ru archive. The
// archive has no per-game pages, only per-platform index pages in
// windows-1251, so URLCandidates parses the whole archive into an
// in-memory index and Import serves records out of it.
package rilarhiv

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ifhub-labs/ifimport/internal/classify"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
)

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

// MsgNotInitialised is returned when Import runs before URLCandidates
// has built the index.
const MsgNotInitialised = "Не проинициализирован импортер рилархива"

// platformPage maps an archive index page to the platform tag its
// games get. Pages with an empty tag list games outside any platform.
type platformPage struct {
	tag  string
	page string
}

var platformPages = []platformPage{
	{"Rinform", "rinform"},
	{"RTADS", "rtads"},
	{"URQ", "urq"},
	{"QSP", "qsp"},
	{"AeroQSP", "aeroqsp"},
	{"INSTEAD", "instead"},
	{"ADRIFT", "adrift"},
	{"Милена", "milena"},
	{"6 days", "6days"},
	{"ЯРИЛ", "yaril"},
	{"Twine", "tweebox"},
	{"TGE", "tge2"},
	{"ТКР-2", "tkr"},
	{"ZX Spectrum", "spectrum"},
	{"", "vneplatform"},
}

var (
	entryRE   = regexp.MustCompile(`<P><b><a href="([^"]+)">"([^<"]+)"([^<]*)</a></b>(?:[^<]*(?:<b>\[([^\]]+)]</b>))?`)
	parenthRE = regexp.MustCompile(`\s*(?:\([^)]+\)|/\S+/)\s*`)
	authorSep = regexp.MustCompile(`, | и `)
)

// Scraper imports rilarhiv.ru games.
type Scraper struct {
	fetcher driven.Fetcher

	mu    sync.RWMutex
	games map[string]domain.PartialRecord
}

// New creates a rilarhiv.ru scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "rilarhiv" }

// Match reports whether the URL is one of the indexed downloads.
// Before the index is built nothing matches.
func (s *Scraper) Match(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.games[url]
	return ok
}

// MatchWithCategory implements driven.Scraper.
func (s *Scraper) MatchWithCategory(url, category string) bool {
	return category == "download_direct" && s.Match(url)
}

// MatchAuthor implements driven.Scraper.
func (s *Scraper) MatchAuthor(url string) bool { return false }

// ImportAuthor implements driven.Scraper.
func (s *Scraper) ImportAuthor(ctx context.Context, url string) domain.AuthorBio {
	return domain.AuthorErrorBio(domain.MsgNotAuthorURL)
}

// DirtyURLs implements driven.Scraper. The archive has no change feed.
func (s *Scraper) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	return nil, nil
}

// Import serves a record from the index.
func (s *Scraper) Import(ctx context.Context, url string) domain.PartialRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.games == nil {
		return domain.ErrorRecord(MsgNotInitialised)
	}
	if rec, ok := s.games[url]; ok {
		return rec
	}
	return domain.ErrorRecord(domain.MsgUnknownResource)
}

// URLCandidates crawls every platform index page, rebuilds the
// in-memory index and returns the download URLs it found.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	games := make(map[string]domain.PartialRecord)
	var candidates []string

	for _, p := range platformPages {
		body, err := s.fetcher.Fetch(ctx,
			fmt.Sprintf("http://rilarhiv.ru/%s.htm", p.page),
			driven.FetchOptions{NoCache: true, Encoding: "cp1251"})
		if err != nil {
			return nil, fmt.Errorf("fetch %s index: %w", p.page, err)
		}

		for _, m := range entryRE.FindAllStringSubmatch(body, -1) {
			ref := classify.URL(m[1], "", "", "http://rilarhiv.ru/")
			rec := domain.PartialRecord{
				Title:    strings.TrimSpace(html.UnescapeString(m[2])),
				Priority: domain.UnsetPriority,
				URLs:     []domain.URLRef{ref},
			}

			// The byline carries author names, with parenthesised
			// asides mixed in.
			info := parenthRE.ReplaceAllString(m[3], " ")
			for _, a := range authorSep.Split(info, -1) {
				name := strings.TrimSpace(html.UnescapeString(a))
				if name == "" {
					continue
				}
				rec.Authors = append(rec.Authors, domain.AuthorRef{
					RoleSlug: "author",
					Name:     name,
				})
			}

			if p.tag != "" {
				rec.Tags = append(rec.Tags, domain.TagRef{CatSlug: "platform", Tag: p.tag})
			}
			for _, extra := range strings.Split(m[4], ", ") {
				plat := strings.TrimSpace(html.UnescapeString(extra))
				if plat == "" {
					continue
				}
				rec.Tags = append(rec.Tags, domain.TagRef{CatSlug: "platform", Tag: plat})
			}

			games[ref.URL] = rec
			candidates = append(candidates, ref.URL)
		}
	}

	s.mu.Lock()
	s.games = games
	s.mu.Unlock()
	return candidates, nil
}
