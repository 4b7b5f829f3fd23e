// Package ifiction imports games from the forum.ifiction.ru game
// topics. The forum serves windows-1251 and hides file links behind a
// meta-refresh redirector.
package ifiction

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
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// Priority of forum.ifiction.ru records during merge.
const Priority = 45

// rootURL is the forum section listing the game topics.
const rootURL = "http://forum.ifiction.ru/viewforum.php?id=36"

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

var (
	gameURL = regexp.MustCompile(`^https?://forum\.ifiction\.ru/viewtopic\.php\?id=\d+`)
	topicRE = regexp.MustCompile(`<a href="(\./viewtopic\.php\?id=\d+)">`)

	titleRE = regexp.MustCompile(`<h1[^>]*>(?:<a [^>]+>)?<b><span[^>]*>([^<]+)</span></b>(?:</a>)?</h1>`)
	descRE  = regexp.MustCompile(`(?s)<div align="justify" style="font-size:1.2em; margin-top:10px;">(.*?)</div>`)

	authorBlock = regexp.MustCompile(`(?s)<div id="game_authors">(.*?)</div>`)
	authorLink  = regexp.MustCompile(`<a href="([^"]+)"[^>]*>([^<]+)</a>`)
	categorySep = regexp.MustCompile(`&middot;|[:,]`)

	linksBlock = regexp.MustCompile(`(?s)<td valign="top" style="border:0; padding:0px 0 0 5px;">(.*?)</td>`)
	linkRE     = regexp.MustCompile(`<a href="([^#][^"]*)"[^>]*>(?:<b>)([^<]+)(?:</b>)</a>`)

	posterRE    = regexp.MustCompile(`<img src="([^"]+)" style="max-width:320px;"`)
	screensRE   = regexp.MustCompile(`(?s)<div id="screenshots"[^>]*>(.*?)</div>`)
	imgRE       = regexp.MustCompile(`<img src="([^"]+)"`)
	redirector  = regexp.MustCompile(`^https?://forum\.ifiction\.ru/file\.php?`)
	metaRefresh = regexp.MustCompile(`<meta http-equiv="refresh" content="(?:.*?)URL=([^"]+)"`)
)

// Scraper imports forum.ifiction.ru games.
type Scraper struct {
	fetcher driven.Fetcher
}

// New creates a forum.ifiction.ru scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "ifiction" }

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

// DirtyURLs implements driven.Scraper. The forum has no change feed.
func (s *Scraper) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	return nil, nil
}

// URLCandidates lists the topics in the games section.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	body, err := s.fetcher.Fetch(ctx, rootURL, driven.FetchOptions{NoCache: true, Encoding: "cp1251"})
	if err != nil {
		return nil, fmt.Errorf("fetch game list: %w", err)
	}

	seen := make(map[string]struct{})
	var res []string
	for _, m := range topicRE.FindAllStringSubmatch(body, -1) {
		u := urlkit.Join(rootURL, m[1])
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		res = append(res, u)
	}
	return res, nil
}

// Import parses one game topic.
func (s *Scraper) Import(ctx context.Context, url string) domain.PartialRecord {
	page, err := s.fetcher.Fetch(ctx, url, driven.FetchOptions{Encoding: "cp1251"})
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
		URLs: []domain.URLRef{
			{CatSlug: "game_page", Description: "Страница на ifiction.ru", URL: url},
		},
	}

	// A topic without the authors block is not a game card.
	m = authorBlock.FindStringSubmatch(page)
	if m == nil {
		return domain.ErrorRecord(domain.MsgNoGameFound)
	}
	s.parseAuthorBlock(m[1], url, &rec)

	if m := descRE.FindStringSubmatch(page); m != nil {
		rec.Desc = scrape.DescWithNote(m[1], "ifiction.ru")
	}

	if m := linksBlock.FindStringSubmatch(page); m != nil {
		for _, link := range linkRE.FindAllStringSubmatch(m[1], -1) {
			resolved := s.resolveRedirect(ctx, link[1], url)
			rec.URLs = append(rec.URLs, classify.URL(resolved, html.UnescapeString(link[2]), "", url))
		}
	}

	if m := posterRE.FindStringSubmatch(page); m != nil {
		rec.URLs = append(rec.URLs, domain.URLRef{
			CatSlug:     "poster",
			Description: "Постер с ifiction.ru",
			URL:         s.resolveRedirect(ctx, m[1], url),
		})
	}

	if m := screensRE.FindStringSubmatch(page); m != nil {
		for _, img := range imgRE.FindAllStringSubmatch(m[1], -1) {
			rec.URLs = append(rec.URLs, domain.URLRef{
				CatSlug:     "screenshot",
				Description: "Скриншот с ifiction.ru",
				URL:         s.resolveRedirect(ctx, img[1], url),
			})
		}
	}

	return rec
}

// parseAuthorBlock walks the authors block. Link-free text between
// links names the category the following links belong to (authors,
// platform, ...).
func (s *Scraper) parseAuthorBlock(block, baseURL string, rec *domain.PartialRecord) {
	lastIdx := 0
	category := ""
	for _, m := range authorLink.FindAllStringSubmatchIndex(block, -1) {
		cat := strings.TrimSpace(categorySep.ReplaceAllString(block[lastIdx:m[0]], ""))
		if cat != "" {
			category = cat
		}
		lastIdx = m[1]

		href := block[m[2]:m[3]]
		text := html.UnescapeString(block[m[4]:m[5]])

		switch category {
		case "Автор", "Авторы":
			rec.Authors = append(rec.Authors, domain.AuthorRef{
				RoleSlug: "author",
				Name:     text,
				URL:      urlkit.Join(baseURL, href),
				URLDesc:  "Страница автора на forum.ifiction.ru",
			})
		case "Платформа":
			rec.Tags = append(rec.Tags, domain.TagRef{CatSlug: "platform", Tag: text})
		}
	}
}

// resolveRedirect follows the forum's meta-refresh file redirector.
// Anything else resolves against the topic URL and is returned as-is.
func (s *Scraper) resolveRedirect(ctx context.Context, href, baseURL string) string {
	full := urlkit.Join(baseURL, href)
	if !redirector.MatchString(full) {
		return full
	}
	body, err := s.fetcher.Fetch(ctx, full, driven.FetchOptions{NoCache: true})
	if err != nil {
		return full
	}
	if m := metaRefresh.FindStringSubmatch(body); m != nil {
		return html.UnescapeString(m[1])
	}
	return full
}
