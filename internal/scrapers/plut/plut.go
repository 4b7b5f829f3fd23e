// Package plut imports games from the URQ catalogue at urq.plut.info.
package plut

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/ifhub-labs/ifimport/internal/classify"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/scrapers/scrape"
)

// Priority of urq.plut.info records during merge.
const Priority = 50

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

var (
	gameURL      = regexp.MustCompile(`^https?://urq\.plut\.info/(?:node/\d+|[^/]+)`)
	listingTitle = regexp.MustCompile(`<td class="views-field views-field-title" >\s*<a href="([^"]+)"`)
	titleRE      = regexp.MustCompile(`<h1 class="title">(.*?)</h1>`)
	descRE       = regexp.MustCompile(`(?s)<div class="field field-name-body field-type-text-with-summary field-label-hidden"><div class="field-items">(.*?)</div>`)
	releaseRE    = regexp.MustCompile(`(?s)<div id="block-system-main".*?<span property="dc:date dc:created" content="(\d\d\d\d-\d\d-\d\d)`)
	fieldRE      = regexp.MustCompile(`(?s)<div class="field-label">([^<:]+).*?</div>.*?</div>`)
	fieldItemRE  = regexp.MustCompile(`<a [^>]+>([^<]+)</a>`)
	downloadRE   = regexp.MustCompile(`<td><span class="file"><img class="file-icon" [^>]+> <a href="([^"]+)"[^>]*>([^<]*)</a>`)
	mdLinkRE     = regexp.MustCompile(`\[([^\]]*)\]\((.*?[^\\])\)|<([^> ]+)>`)
	mdEscapeRE   = regexp.MustCompile(`\\([\\\]\[()])`)
)

// statusTags maps the catalogue's status field to tag slugs. The
// misspelt "ббета" is how the site actually writes it.
var statusTags = map[string]string{
	"ббета":        "beta",
	"готовая":      "released",
	"демо":         "demo",
	"в разработке": "in_dev",
}

// Scraper imports urq.plut.info games.
type Scraper struct {
	fetcher driven.Fetcher
}

// New creates a urq.plut.info scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "plut" }

// Match implements driven.Scraper.
func (s *Scraper) Match(url string) bool {
	return gameURL.MatchString(url)
}

// MatchWithCategory implements driven.Scraper.
func (s *Scraper) MatchWithCategory(url, category string) bool {
	return category == "game_page" && s.Match(url)
}

// MatchAuthor implements driven.Scraper.
func (s *Scraper) MatchAuthor(url string) bool { return false }

// ImportAuthor implements driven.Scraper.
func (s *Scraper) ImportAuthor(ctx context.Context, url string) domain.AuthorBio {
	return domain.AuthorErrorBio(domain.MsgNotAuthorURL)
}

// DirtyURLs implements driven.Scraper. The site has no change feed.
func (s *Scraper) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	return nil, nil
}

// URLCandidates pages through the catalogue listing until a page comes
// back empty.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	var res []string
	for page := 0; ; page++ {
		body, err := s.fetcher.Fetch(ctx,
			fmt.Sprintf("https://urq.plut.info/games?page=%d", page),
			driven.FetchOptions{NoCache: true})
		if err != nil {
			return nil, fmt.Errorf("fetch listing page %d: %w", page, err)
		}

		found := false
		for _, m := range listingTitle.FindAllStringSubmatch(body, -1) {
			res = append(res, "https://urq.plut.info"+html.UnescapeString(m[1]))
			found = true
		}
		if !found {
			return res, nil
		}
	}
}

// Import parses one game page.
func (s *Scraper) Import(ctx context.Context, url string) domain.PartialRecord {
	page, err := s.fetcher.Fetch(ctx, url, driven.FetchOptions{})
	if err != nil {
		return domain.ErrorRecord(domain.MsgFetchFailed)
	}

	m := titleRE.FindStringSubmatch(page)
	if m == nil {
		return domain.ErrorRecord(domain.MsgNoGameFound)
	}

	rec := domain.PartialRecord{
		Title:    html.UnescapeString(m[1]),
		Priority: Priority,
		URLs:     []domain.URLRef{classify.URL(url, "", "", "")},
	}

	if m := descRE.FindStringSubmatch(page); m != nil {
		rec.Desc = scrape.DescWithNote(m[1], "urq.plut.info")
	}

	if m := releaseRE.FindStringSubmatch(page); m != nil {
		if d, err := domain.ParseDate("2006-01-02", m[1]); err == nil {
			rec.ReleaseDate = &d
		}
	}

	for _, m := range downloadRE.FindAllStringSubmatch(page, -1) {
		rec.URLs = append(rec.URLs, classify.URL(m[1], html.UnescapeString(m[2]), "", ""))
	}

	for _, f := range parseFields(page) {
		switch f.label {
		case "Статус":
			if slug, ok := statusTags[f.value]; ok {
				rec.Tags = append(rec.Tags, domain.TagRef{TagSlug: slug})
			}
		case "Платформа":
			rec.Tags = append(rec.Tags, domain.TagRef{CatSlug: "platform", Tag: f.value})
		case "Страна":
			rec.Tags = append(rec.Tags, domain.TagRef{CatSlug: "country", Tag: capitalize(f.value)})
		case "Жанр":
			rec.Tags = append(rec.Tags, domain.TagRef{CatSlug: "tag", Tag: strings.ToLower(f.value)})
		case "Авторы":
			rec.Authors = append(rec.Authors, domain.AuthorRef{RoleSlug: "author", Name: f.value})
		}
	}

	// Links inside the markdown description also count.
	for _, m := range mdLinkRE.FindAllStringSubmatch(rec.Desc, -1) {
		if m[3] != "" {
			rec.URLs = append(rec.URLs, classify.URL(m[3], "", "", ""))
		} else if m[2] != "" {
			rec.URLs = append(rec.URLs, classify.URL(mdUnescape(m[2]), mdUnescape(m[1]), "", ""))
		}
	}

	return rec
}

// field is one labelled metadata row from the game page.
type field struct {
	label string
	value string
}

func parseFields(page string) []field {
	var res []field
	for _, m := range fieldRE.FindAllStringSubmatch(page, -1) {
		label := html.UnescapeString(m[1])
		for _, item := range fieldItemRE.FindAllStringSubmatch(m[0], -1) {
			res = append(res, field{label: label, value: html.UnescapeString(item[1])})
		}
	}
	return res
}

func mdUnescape(s string) string {
	return mdEscapeRE.ReplaceAllString(s, "$1")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
