// Package instead imports games from the INSTEAD community catalogue
// at instead-games.ru.
package instead

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ifhub-labs/ifimport/internal/classify"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/scrapers/scrape"
)

// Priority of instead-games.ru records during merge.
const Priority = 80

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

var (
	gameURL   = regexp.MustCompile(`^https?://instead-games\.ru/game\.php\?ID=\d+`)
	authorRE  = regexp.MustCompile(`<b>Автор</b>: ([^<]+)<br`)
	dateRE    = regexp.MustCompile(`<b>Дата</b>: (\d{4}\.\d{2}\.\d{2})<br`)
	panelLink = regexp.MustCompile(`<a href="([^"]+)">([^<]+)</a>`)
)

// gameListXMLs are the published catalogue feeds (approved and
// pending games).
var gameListXMLs = []string{
	"http://instead-games.ru/xml.php",
	"http://instead-games.ru/xml.php?approved=0",
}

// Scraper imports INSTEAD games.
type Scraper struct {
	fetcher driven.Fetcher
}

// New creates an instead-games.ru scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "instead" }

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

// URLCandidates lists every game page from the XML catalogue feeds.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	var res []string
	for _, feed := range gameListXMLs {
		body, err := s.fetcher.Fetch(ctx, feed, driven.FetchOptions{NoCache: true})
		if err != nil {
			return nil, fmt.Errorf("fetch game list: %w", err)
		}
		urls, err := parseGameList(body)
		if err != nil {
			return nil, fmt.Errorf("parse game list: %w", err)
		}
		res = append(res, urls...)
	}
	return res, nil
}

// parseGameList pulls every <descurl> element out of the feed.
func parseGameList(body string) ([]string, error) {
	var res []string
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "descurl" {
			continue
		}
		var url string
		if err := dec.DecodeElement(&url, &start); err != nil {
			return nil, err
		}
		if url = strings.TrimSpace(url); url != "" {
			res = append(res, url)
		}
	}
	return res, nil
}

// Import parses one game page.
func (s *Scraper) Import(ctx context.Context, url string) domain.PartialRecord {
	html, err := s.fetcher.Fetch(ctx, url, driven.FetchOptions{})
	if err != nil {
		return domain.ErrorRecord(domain.MsgFetchFailed)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ErrorRecord(domain.MsgParseFailed)
	}

	title := strings.TrimSpace(doc.Find("h2").First().Text())
	if title == "" {
		return domain.ErrorRecord(domain.MsgNoGameFound)
	}

	rec := domain.PartialRecord{
		Title:    title,
		Priority: Priority,
		Tags: []domain.TagRef{
			{CatSlug: "platform", Tag: "INSTEAD"},
		},
		URLs: []domain.URLRef{classify.URL(url, "", "", url)},
	}

	if desc, err := doc.Find("div.gamedsc").First().Html(); err == nil && desc != "" {
		rec.Desc = scrape.DescWithNote(desc, "instead-games.ru")
	}

	doc.Find("#screenshots img.border").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			rec.URLs = append(rec.URLs, classify.URL(src, "Скриншот", "screenshot", url))
		}
	})

	if panel, err := doc.Find("#panel").First().Html(); err == nil && panel != "" {
		parsePanel(panel, url, &rec)
	}

	return rec
}

// parsePanel extracts the author line, the release date and the raw
// links from the side panel. The panel is bare text with <b> labels,
// regexes fit it better than a DOM walk.
func parsePanel(panel, base string, rec *domain.PartialRecord) {
	if m := authorRE.FindStringSubmatch(panel); m != nil {
		for _, name := range strings.Split(html.UnescapeString(m[1]), ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				rec.Authors = append(rec.Authors, domain.AuthorRef{
					RoleSlug: "author",
					Name:     name,
				})
			}
		}
	}

	if m := dateRE.FindStringSubmatch(panel); m != nil {
		if d, err := domain.ParseDate("2006.01.02", m[1]); err == nil {
			rec.ReleaseDate = &d
		}
	}

	for _, m := range panelLink.FindAllStringSubmatch(panel, -1) {
		rec.URLs = append(rec.URLs,
			classify.URL(html.UnescapeString(m[1]), html.UnescapeString(m[2]), "", base))
	}
}
