// Package qspsu imports games from the QSP catalogue at qsp.su.
package qspsu

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"time"

	"github.com/ifhub-labs/ifimport/internal/classify"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/logger"
	"github.com/ifhub-labs/ifimport/internal/scrapers/scrape"
)

// Priority of qsp.su records during merge.
const Priority = 40

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

var (
	gameURL      = regexp.MustCompile(`^http://qsp\.su/index\.php\?option=com_sobi2&.*&sobi2Id=\d+`)
	listingTitle = regexp.MustCompile(`<h3><a href="([^"]+)"`)
	detailsRE    = regexp.MustCompile(`(?s)<table class="sobi2Details"[^>]*>(.*?)</table>`)
	trRE         = regexp.MustCompile(`(?s)<tr>(.*?)</tr>`)
	titleRE      = regexp.MustCompile(`<h1>(.*?)</h1>`)
	imgRE        = regexp.MustCompile(`<img src="([^"]+)"[^>]*class="sobi2DetailsImage"`)
	fieldRE      = regexp.MustCompile(`(?s)<span\s+id="sobi2Details_field_([^"]+)"\s*>(?:<span .*?</span> )?(.*?)</span>`)
	downloadRE   = regexp.MustCompile(`<h2><a href="([^"]+)" title="download">(?:Скачать|Играть онлайн)</a></h2>`)
	fileLinkRE   = regexp.MustCompile(`>Файл: <a href="([^"]+)"[^>]*>([^<]+)</a>`)
	footerRE     = regexp.MustCompile(`(?s)<table class="sobi2DetailsFooter"[^>]*>(.*?)</table>`)
	addDateRE    = regexp.MustCompile(`Добавлено: (\d+)\.(\d+)\.(\d+)&nbsp;&nbsp;`)
)

// Scraper imports qsp.su games.
type Scraper struct {
	fetcher driven.Fetcher
}

// New creates a qsp.su scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "qspsu" }

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

// URLCandidates pages through the Joomla listing until a page has no
// entries.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	var res []string
	for start := 0; ; start += 10 {
		body, err := s.fetcher.Fetch(ctx,
			fmt.Sprintf("http://qsp.su/index.php?option=com_sobi2&Itemid=55&limitstart=%d", start),
			driven.FetchOptions{NoCache: true})
		if err != nil {
			return nil, fmt.Errorf("fetch listing at %d: %w", start, err)
		}

		found := false
		for _, m := range listingTitle.FindAllStringSubmatch(body, -1) {
			res = append(res, html.UnescapeString(m[1]))
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

	details := detailsRE.FindStringSubmatch(page)
	if details == nil {
		return domain.ErrorRecord(domain.MsgNoGameFound)
	}

	rec := domain.PartialRecord{
		Priority: Priority,
		Tags: []domain.TagRef{
			{CatSlug: "platform", Tag: "QSP"},
		},
		URLs: []domain.URLRef{classify.URL(url, "", "", url)},
	}

	for _, tr := range trRE.FindAllStringSubmatch(details[1], -1) {
		row := tr[1]
		if m := titleRE.FindStringSubmatch(row); m != nil {
			rec.Title = html.UnescapeString(m[1])
		}
		if m := imgRE.FindStringSubmatch(row); m != nil {
			rec.URLs = append(rec.URLs, classify.URL(m[1], "Обложка", "poster", url))
		}
		for _, m := range fieldRE.FindAllStringSubmatch(row, -1) {
			switch key, val := m[1], m[2]; key {
			case "author":
				rec.Authors = append(rec.Authors, domain.AuthorRef{
					RoleSlug: "author", Name: html.UnescapeString(val),
				})
			case "translator":
				rec.Authors = append(rec.Authors, domain.AuthorRef{
					RoleSlug: "porter", Name: html.UnescapeString(val),
				})
			case "version":
				rec.Tags = append(rec.Tags, domain.TagRef{
					CatSlug: "version", Tag: html.UnescapeString(val),
				})
			case "description":
				rec.Desc = scrape.DescWithNote(val, "qsp.su")
			default:
				logger.Warn("Unknown field in QSP: [%s] [%s]", key, val)
			}
		}
		for _, m := range fileLinkRE.FindAllStringSubmatch(row, -1) {
			rec.URLs = append(rec.URLs, classify.URL(m[1], html.UnescapeString(m[2]), "", ""))
		}
		for _, m := range downloadRE.FindAllStringSubmatch(row, -1) {
			rec.URLs = append(rec.URLs, classify.URL(m[1], "", "", url))
		}
	}

	if rec.Title == "" {
		return domain.ErrorRecord(domain.MsgNoGameFound)
	}

	if m := footerRE.FindStringSubmatch(page); m != nil {
		if n := addDateRE.FindStringSubmatch(m[1]); n != nil {
			day, _ := strconv.Atoi(n[1])
			month, _ := strconv.Atoi(n[2])
			year, _ := strconv.Atoi(n[3])
			d := domain.NewDate(year, time.Month(month), day)
			rec.ReleaseDate = &d
		}
	}

	return rec
}
