// Package ifwiki imports games and personalities from ifwiki.ru, the
// Russian interactive fiction wiki. Pages are fetched as raw wikitext
// through index.php?action=raw and parsed with the markdown renderer
// in wikitext.go; bulk discovery goes through the MediaWiki API.
package ifwiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ifhub-labs/ifimport/internal/classify"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/logger"
	"github.com/ifhub-labs/ifimport/internal/scrapers/scrape"
)

// Priority of ifwiki.ru records during merge. The wiki is the
// hand-curated catalogue, it outranks every other source.
const Priority = 100

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

const (
	apiBase = "http://ifwiki.ru/api.php"

	// gamesCategory is "Категория:Игры" in the wiki's own URL encoding.
	gamesCategory = "%D0%9A%D0%B0%D1%82%D0%B5%D0%B3%D0%BE%D1%80%D0%B8%D1%8F:%D0%98%D0%B3%D1%80%D1%8B"

	// categoryMarker identifies category pages among candidate URLs;
	// they are listings, not games.
	categoryMarker = "ifwiki.ru/%D0%9A%D0%B0%D1%82%D0%B5%D0%B3%D0%BE%D1%80%D0%B8%D1%8F:"

	// apiBatchSize is how many page ids one info query may carry.
	apiBatchSize = 40

	// maxRedirects bounds #REDIRECT chains.
	maxRedirects = 3
)

var (
	pageURL    = regexp.MustCompile(`^(https?://ifwiki\.ru)/([^/?#]+)`)
	redirectRE = regexp.MustCompile(`(?i)^#(?:REDIRECT|перенаправление)\s*\[\[([^\]|#]+)`)
)

// Scraper imports ifwiki.ru pages.
type Scraper struct {
	fetcher driven.Fetcher
}

// New creates an ifwiki.ru scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "ifwiki" }

// Match implements driven.Scraper. Any wiki page with a non-empty
// path matches; the bare host does not.
func (s *Scraper) Match(url string) bool {
	return pageURL.MatchString(url)
}

// MatchWithCategory implements driven.Scraper.
func (s *Scraper) MatchWithCategory(url, category string) bool {
	return category == "game_page" && s.Match(url)
}

// MatchAuthor implements driven.Scraper. Personality pages are
// ordinary wiki pages, so any matching URL may be an author.
func (s *Scraper) MatchAuthor(url string) bool {
	return s.Match(url)
}

// Import fetches and parses one game page.
func (s *Scraper) Import(ctx context.Context, url string) domain.PartialRecord {
	return s.importPage(ctx, url, 0)
}

func (s *Scraper) importPage(ctx context.Context, url string, depth int) domain.PartialRecord {
	m := pageURL.FindStringSubmatch(url)
	if m == nil {
		return domain.ErrorRecord(domain.MsgUnknownResource)
	}

	raw, err := s.fetchRaw(ctx, m[1], m[2])
	if err != nil {
		logger.Error("importing %s from ifwiki: %v", url, err)
		return domain.ErrorRecord(domain.MsgFetchFailed)
	}

	if rm := redirectRE.FindStringSubmatch(raw); rm != nil {
		if depth >= maxRedirects {
			return domain.ErrorRecord(domain.MsgNoGameFound)
		}
		return s.importPage(ctx, m[1]+"/"+wikiQuote(rm[1]), depth+1)
	}

	c := newParseContext(pageTitle(m[2]), url, classify.URL)
	md, err := c.parse(raw)
	if err != nil {
		logger.Error("parsing %s: %v", url, err)
		return domain.ErrorRecord(domain.MsgParseFailed)
	}

	return domain.PartialRecord{
		Title:       c.title,
		Desc:        strings.TrimSpace(md) + scrape.SourceNote("ifwiki.ru"),
		ReleaseDate: c.releaseDate,
		Priority:    Priority,
		Authors:     c.authors,
		Tags:        c.tags,
		URLs:        c.urls,
	}
}

// ImportAuthor fetches and parses one personality page.
func (s *Scraper) ImportAuthor(ctx context.Context, url string) domain.AuthorBio {
	m := pageURL.FindStringSubmatch(url)
	if m == nil {
		return domain.AuthorErrorBio(domain.MsgNotAuthorURL)
	}

	raw, err := s.fetchRaw(ctx, m[1], m[2])
	if err != nil {
		logger.Error("importing author %s from ifwiki: %v", url, err)
		return domain.AuthorErrorBio(domain.MsgFetchFailed)
	}

	c := newParseContext(pageTitle(m[2]), url, classify.AuthorURL)
	md, err := c.parse(raw)
	if err != nil {
		logger.Error("parsing %s: %v", url, err)
		return domain.AuthorErrorBio(domain.MsgParseFailed)
	}

	return domain.AuthorBio{
		Name: strings.TrimPrefix(c.title, "Автор:"),
		Bio:  strings.TrimSpace(md) + scrape.SourceNote("ifwiki.ru"),
		URLs: c.urls,
	}
}

// fetchRaw downloads a page's wikitext source.
func (s *Scraper) fetchRaw(ctx context.Context, base, page string) (string, error) {
	return s.fetcher.Fetch(ctx,
		fmt.Sprintf("%s/index.php?title=%s&action=raw", base, page),
		driven.FetchOptions{})
}

// pageTitle recovers the human title from the URL path component.
func pageTitle(page string) string {
	if unescaped, err := url.PathUnescape(page); err == nil {
		page = unescaped
	}
	return strings.ReplaceAll(page, "_", " ")
}

// apiResponse covers the slices of the MediaWiki API the importer
// reads; everything else in the payload is ignored.
type apiResponse struct {
	Query struct {
		CategoryMembers []struct {
			PageID  int    `json:"pageid"`
			SortKey string `json:"sortkey"`
		} `json:"categorymembers"`
		RecentChanges []struct {
			PageID int `json:"pageid"`
		} `json:"recentchanges"`
		Pages map[string]struct {
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
}

func (s *Scraper) apiQuery(ctx context.Context, query string) (apiResponse, error) {
	var res apiResponse
	body, err := s.fetcher.Fetch(ctx, apiBase+"?"+query, driven.FetchOptions{NoCache: true})
	if err != nil {
		return res, fmt.Errorf("fetch api: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return res, fmt.Errorf("decode api response: %w", err)
	}
	return res, nil
}

// URLCandidates lists every page in the games category.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	ids := make(map[int]bool)
	keystart := ""

	for {
		res, err := s.apiQuery(ctx,
			"action=query&list=categorymembers&cmtitle="+gamesCategory+
				"&rawcontinue=1&cmlimit=2000&format=json&cmsort=sortkey&"+
				"cmprop=ids|title|sortkey&cmstarthexsortkey="+keystart)
		if err != nil {
			return nil, err
		}

		members := res.Query.CategoryMembers
		for _, m := range members {
			ids[m.PageID] = true
		}

		// A short page means the category is exhausted; anything
		// longer continues from the last sort key.
		if len(members) <= 300 {
			break
		}
		keystart = members[len(members)-1].SortKey
	}

	return s.resolvePageURLs(ctx, ids, true)
}

// DirtyURLs lists pages changed within the given age, via the wiki's
// recent changes feed.
func (s *Scraper) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	res, err := s.apiQuery(ctx, fmt.Sprintf(
		"action=query&list=recentchanges&rclimit=500&format=json&rcend=%d",
		time.Now().Add(-age).Unix()))
	if err != nil {
		return nil, err
	}

	ids := make(map[int]bool)
	for _, rc := range res.Query.RecentChanges {
		ids[rc.PageID] = true
	}
	return s.resolvePageURLs(ctx, ids, false)
}

// resolvePageURLs turns page ids into full page URLs, batched the way
// the API caps its pageids parameter.
func (s *Scraper) resolvePageURLs(ctx context.Context, ids map[int]bool, skipCategories bool) ([]string, error) {
	sorted := make([]int, 0, len(ids))
	for id := range ids {
		if id != 0 {
			sorted = append(sorted, id)
		}
	}
	sort.Ints(sorted)

	var urls []string
	for start := 0; start < len(sorted); start += apiBatchSize {
		end := start + apiBatchSize
		if end > len(sorted) {
			end = len(sorted)
		}

		parts := make([]string, 0, end-start)
		for _, id := range sorted[start:end] {
			parts = append(parts, fmt.Sprintf("%d", id))
		}

		res, err := s.apiQuery(ctx,
			"action=query&prop=info&format=json&inprop=url&pageids="+
				strings.Join(parts, "|"))
		if err != nil {
			return nil, err
		}

		for _, page := range res.Query.Pages {
			if page.FullURL == "" {
				continue
			}
			if skipCategories && strings.Contains(page.FullURL, categoryMarker) {
				continue
			}
			urls = append(urls, page.FullURL)
		}
	}

	sort.Strings(urls)
	return urls, nil
}
