// Package questbook imports storygames from the quest-book.ru forum.
// The site serves windows-1251.
package questbook

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
	"github.com/ifhub-labs/ifimport/internal/scrapers/scrape"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// Priority of quest-book.ru records during merge.
const Priority = 51

// Ensure Scraper implements the interface.
var _ driven.Scraper = (*Scraper)(nil)

var (
	gameURL   = regexp.MustCompile(`^https?://quest-book\.ru/online/view/`)
	listingRE = regexp.MustCompile(`<a [^>]*href="(view/[^"]+)"[^>]*>`)
	titleRE   = regexp.MustCompile(`<h2 class="mt-1">([^<]+)</h2>`)
	shortRE   = regexp.MustCompile(`<td class="text-left">Краткое описание</td>\s*<td class="text-left">([^<]+)</td>`)
	firstPost = regexp.MustCompile(`(?s)<div class="card-body">(.*?)<!--MESSAGE-BODY-END-->`)
	postBody  = regexp.MustCompile(`(?s)<div class="postbody">(.*?)</div`)
	timeRE    = regexp.MustCompile(`<i class="fal fa-clock"></i> <small>.. (...) (\d{2}), (\d{4}) \d{2}:\d{2}</small>`)
	authorBox = regexp.MustCompile(`(?s)<td class="text-left" style="width: 35%">Автор</td>(.*?)</td>`)
	authorRE  = regexp.MustCompile(`>\s*([^<]+)</a>`)
	authorURL = regexp.MustCompile(`<a href="([^"]+)">все сторигеймы автора</a>`)
	tagBox    = regexp.MustCompile(`(?s)<td class="text-left">Категории</td>(.*?)</td>`)
	tagItem   = regexp.MustCompile(`>([^>]+)</a>`)
	imageRE   = regexp.MustCompile(`<meta property="og:image" content="([^"]+)">`)
	linkRE    = regexp.MustCompile(`<a class="btn [^>]+ href="([^"]+)".*ать</a>`)
)

// months are the abbreviated Russian month names used in post
// timestamps.
var months = []string{
	"Янв", "Фев", "Мар", "Апр", "Май", "Июн",
	"Июл", "Авг", "Сен", "Окт", "Ноя", "Дек",
}

// Scraper imports quest-book.ru storygames.
type Scraper struct {
	fetcher driven.Fetcher
}

// New creates a quest-book.ru scraper over the fetcher.
func New(fetcher driven.Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// Name implements driven.Scraper.
func (s *Scraper) Name() string { return "questbook" }

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

// URLCandidates pages through the listing. The site paginates in steps
// of ten.
func (s *Scraper) URLCandidates(ctx context.Context) ([]string, error) {
	var res []string
	for page := 1; ; page += 10 {
		body, err := s.fetcher.Fetch(ctx,
			fmt.Sprintf("https://quest-book.ru/online/?s=%d", page),
			driven.FetchOptions{NoCache: true, Encoding: "cp1251"})
		if err != nil {
			return nil, fmt.Errorf("fetch listing page %d: %w", page, err)
		}

		found := false
		for _, m := range listingRE.FindAllStringSubmatch(body, -1) {
			res = append(res, "https://quest-book.ru/online/"+m[1])
			found = true
		}
		if !found {
			return res, nil
		}
	}
}

// Import parses one storygame page.
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
		Tags: []domain.TagRef{
			{CatSlug: "platform", Tag: "Questbook"},
		},
		URLs: []domain.URLRef{
			{CatSlug: "game_page", Description: "Страница на квестбуке", URL: url},
		},
	}

	desc := ""
	if m := shortRE.FindStringSubmatch(page); m != nil {
		desc = html.UnescapeString(m[1])
	}
	if m := firstPost.FindStringSubmatch(page); m != nil {
		if m2 := postBody.FindStringSubmatch(m[1]); m2 != nil {
			if body := scrape.Markdown(m2[1]); body != "" {
				if desc != "" {
					desc += "\n\n"
				}
				desc += body
			}
		}
		if m2 := timeRE.FindStringSubmatch(m[1]); m2 != nil {
			if d, ok := parsePostDate(m2[1], m2[2], m2[3]); ok {
				rec.ReleaseDate = &d
			}
		}
	}
	if desc != "" {
		rec.Desc = desc + scrape.SourceNote("quest-book.ru")
	}

	if m := authorBox.FindStringSubmatch(page); m != nil {
		name := authorRE.FindStringSubmatch(m[1])
		link := authorURL.FindStringSubmatch(m[1])
		if name != nil {
			author := domain.AuthorRef{
				RoleSlug: "author",
				Name:     html.UnescapeString(name[1]),
			}
			if link != nil {
				author.URL = urlkit.Join(url, link[1])
				author.URLDesc = "Страница автора на quest-book.ru"
			}
			rec.Authors = append(rec.Authors, author)
		}
	}

	if m := tagBox.FindStringSubmatch(page); m != nil {
		for _, item := range tagItem.FindAllStringSubmatch(m[1], -1) {
			rec.Tags = append(rec.Tags, domain.TagRef{
				CatSlug: "tag",
				Tag:     html.UnescapeString(item[1]),
			})
		}
	}

	if m := imageRE.FindStringSubmatch(page); m != nil {
		rec.URLs = append(rec.URLs, classify.URL(m[1], "Обложка", "poster", url))
	}
	for _, m := range linkRE.FindAllStringSubmatch(page, -1) {
		rec.URLs = append(rec.URLs, classify.URL(m[1], "", "", url))
	}

	return rec
}

// parsePostDate converts ("Май", "12", "2019") to a date.
func parsePostDate(month, day, year string) (domain.Date, bool) {
	for i, m := range months {
		if m == month {
			d, _ := strconv.Atoi(day)
			y, _ := strconv.Atoi(year)
			return domain.NewDate(y, time.Month(i+1), d), true
		}
	}
	return domain.Date{}, false
}
