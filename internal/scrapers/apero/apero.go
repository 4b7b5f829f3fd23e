// Package apero imports games and author profiles from apero.ru. The
// site uses Cyrillic path segments, so every URL comparison happens on
// the percent-encoded form.
package apero

import (
	"context"
	"fmt"
	"html"
	url2 "net/url"
	"regexp"
	"time"

	"github.com/ifhub-labs/ifimport/internal/classify"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/scrapers/scrape"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// Priority of apero.ru records during merge.
const Priority = 49

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

// gamesPath and membersPath are the percent-encoded forms of
// "Текстовые-игры" and "Участники".
const (
	gamesPath   = "%D0%A2%D0%B5%D0%BA%D1%81%D1%82%D0%BE%D0%B2%D1%8B%D0%B5-%D0%B8%D0%B3%D1%80%D1%8B"
	membersPath = "%D0%A3%D1%87%D0%B0%D1%81%D1%82%D0%BD%D0%B8%D0%BA%D0%B8"
)

var (
	gameURL   = regexp.MustCompile(`^https?://apero\.ru/` + gamesPath + `/.*`)
	authorURL = regexp.MustCompile(`^https?://apero\.ru/` + membersPath + `/(.*)`)

	listingRE = regexp.MustCompile(`<h2><a href="(http://apero.ru/Текстовые-игры/[^"]+)">[^<]*</a></h2>`)
	titleRE   = regexp.MustCompile(`<dd itemprop="name"><div title="[^"]*">([^<]+)</div></dd>`)
	releaseRE = regexp.MustCompile(`<meta itemprop="datePublished" content="([^"]+)">`)
	authorRE  = regexp.MustCompile(`<a itemprop="author" href="[^"]*">([^<]+)</a>`)
	descRE    = regexp.MustCompile(`(?s)<dt>Описание:</dt>\s*<dd><div>(.*?)</div>`)
	imageRE   = regexp.MustCompile(`<img src="([^"]+)" [^>]* itemprop="image" />`)

	bioRE    = regexp.MustCompile(`(?s)<dt>О себе:</dt><dd>(.*?)</dd>`)
	avatarRE = regexp.MustCompile(`<img src="([^"]+)" class="img-circle" />`)
)

// stockGameImage and stockAvatar are the placeholders the site serves
// when nothing was uploaded; they are never worth keeping.
const (
	stockGameImage = "http://apero.ru/public/img/games/game.png"
	stockAvatar    = "http://apero.ru/public/img/members/avatar.jpg"
)

// Scraper imports apero.ru games and author profiles.
type Scraper struct {
	fetcher driven.Fetcher
}

// New creates an apero.ru scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "apero" }

// Match implements driven.Scraper.
func (s *Scraper) Match(url string) bool {
	return gameURL.MatchString(urlkit.QuoteUTF8(url))
}

// MatchWithCategory implements driven.Scraper. Games on apero are
// played in the browser, so the interesting links are play_online.
func (s *Scraper) MatchWithCategory(url, category string) bool {
	return category == "play_online" && s.Match(url)
}

// MatchAuthor implements driven.Scraper.
func (s *Scraper) MatchAuthor(url string) bool {
	return authorURL.MatchString(urlkit.QuoteUTF8(url))
}

// DirtyURLs implements driven.Scraper. The site has no change feed.
func (s *Scraper) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	return nil, nil
}

// URLCandidates lists the games catalogue.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	body, err := s.fetcher.Fetch(ctx, "http://apero.ru/"+gamesPath,
		driven.FetchOptions{NoCache: true})
	if err != nil {
		return nil, fmt.Errorf("fetch games listing: %w", err)
	}

	var res []string
	for _, m := range listingRE.FindAllStringSubmatch(body, -1) {
		res = append(res, urlkit.QuoteUTF8(m[1]))
	}
	return res, nil
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
		Tags: []domain.TagRef{
			{CatSlug: "platform", Tag: "Аперо"},
		},
		URLs: []domain.URLRef{classify.URL(url, "", "", "")},
	}

	if m := descRE.FindStringSubmatch(page); m != nil {
		rec.Desc = scrape.DescWithNote(m[1], "apero.ru")
	}

	if m := releaseRE.FindStringSubmatch(page); m != nil {
		if d, err := domain.ParseDate("2006-01-02", m[1]); err == nil {
			rec.ReleaseDate = &d
		}
	}

	for _, m := range authorRE.FindAllStringSubmatch(page, -1) {
		name := html.UnescapeString(m[1])
		rec.Authors = append(rec.Authors, domain.AuthorRef{
			RoleSlug: "author",
			Name:     name,
			URL:      "http://apero.ru/" + membersPath + "/" + urlkit.QuoteUTF8(name),
			URLDesc:  "Страница автора на apero.ru",
		})
	}

	if m := imageRE.FindStringSubmatch(page); m != nil && m[1] != stockGameImage {
		rec.URLs = append(rec.URLs, classify.URL(m[1], "", "", ""))
	}

	return rec
}

// ImportAuthor parses one member profile page.
func (s *Scraper) ImportAuthor(ctx context.Context, url string) domain.AuthorBio {
	m := authorURL.FindStringSubmatch(urlkit.QuoteUTF8(url))
	if m == nil {
		return domain.AuthorErrorBio(domain.MsgNotAuthorURL)
	}

	page, err := s.fetcher.Fetch(ctx, url, driven.FetchOptions{})
	if err != nil {
		return domain.AuthorErrorBio(domain.MsgFetchFailed)
	}

	name := m[1]
	if unescaped, err := url2.PathUnescape(name); err == nil {
		name = unescaped
	}

	bio := domain.AuthorBio{
		Name: name,
		URLs: []domain.URLRef{classify.AuthorURL(url, "", "", "")},
	}

	if m := bioRE.FindStringSubmatch(page); m != nil {
		bio.Bio = scrape.DescWithNote(m[1], "apero.ru")
	}

	if m := avatarRE.FindStringSubmatch(page); m != nil && m[1] != stockAvatar {
		bio.URLs = append(bio.URLs, classify.AuthorURL(m[1], "", "", ""))
	}

	return bio
}
