package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/enrich"
)

// mockScraper serves canned records for a fixed URL prefix.
type mockScraper struct {
	name     string
	prefix   string
	priority int
	records  map[string]domain.PartialRecord

	candidates []string
	dirty      []string

	imports int
}

var _ driven.Scraper = (*mockScraper)(nil)

func (m *mockScraper) Name() string { return m.name }

func (m *mockScraper) Match(url string) bool {
	return strings.HasPrefix(url, m.prefix)
}

func (m *mockScraper) MatchWithCategory(url, category string) bool {
	return m.Match(url)
}

func (m *mockScraper) MatchAuthor(url string) bool { return false }

func (m *mockScraper) Import(ctx context.Context, url string) domain.PartialRecord {
	m.imports++
	if rec, ok := m.records[url]; ok {
		rec.Priority = m.priority
		return rec
	}
	rec := domain.ErrorRecord(domain.MsgNoGameFound)
	rec.Priority = m.priority
	return rec
}

func (m *mockScraper) ImportAuthor(ctx context.Context, url string) domain.AuthorBio {
	return domain.AuthorErrorBio(domain.MsgNotAuthorURL)
}

func (m *mockScraper) URLCandidates(ctx context.Context) ([]string, error) {
	return m.candidates, nil
}

func (m *mockScraper) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	return m.dirty, nil
}

func newService(scrapers ...driven.Scraper) *ImportService {
	return NewImportService(enrich.New(), scrapers...)
}

func TestImport_UnknownResource(t *testing.T) {
	svc := newService(&mockScraper{name: "wiki", prefix: "http://wiki.example/"})

	merged, urlErrors, err := svc.Import(context.Background(), "http://nowhere.example/game")

	require.NoError(t, err)
	assert.Equal(t, domain.MsgUnknownResource, merged.Err)
	assert.Equal(t, map[string]string{
		"http://nowhere.example/game": domain.MsgUnknownResource,
	}, urlErrors)
}

func TestImport_FollowsFamiliarLinksOnce(t *testing.T) {
	// Two pages that link to each other; the cycle must terminate and
	// each page must be fetched exactly once.
	wiki := &mockScraper{
		name:   "wiki",
		prefix: "http://wiki.example/",
		records: map[string]domain.PartialRecord{
			"http://wiki.example/game": {
				Title: "Кащей",
				URLs: []domain.URLRef{
					{CatSlug: "game_page", Description: "Каталог", URL: "http://cat.example/game"},
				},
			},
		},
	}
	cat := &mockScraper{
		name:     "cat",
		prefix:   "http://cat.example/",
		priority: 10,
		records: map[string]domain.PartialRecord{
			"http://cat.example/game": {
				Title: "Кащей",
				Desc:  "Описание из каталога.",
				URLs: []domain.URLRef{
					{CatSlug: "game_page", Description: "Вики", URL: "http://wiki.example/game"},
				},
			},
		},
	}
	svc := newService(wiki, cat)

	merged, urlErrors, err := svc.Import(context.Background(), "http://wiki.example/game")

	require.NoError(t, err)
	assert.Empty(t, urlErrors)
	assert.Equal(t, "Кащей", merged.Title)
	assert.Equal(t, "Описание из каталога.", merged.Desc)
	assert.Equal(t, 1, wiki.imports)
	assert.Equal(t, 1, cat.imports)
	assert.Len(t, merged.URLs, 2)
}

func TestImport_VisitedSetIgnoresFragmentAndScheme(t *testing.T) {
	wiki := &mockScraper{
		name:   "wiki",
		prefix: "http",
		records: map[string]domain.PartialRecord{
			"http://wiki.example/game": {
				Title: "Кащей",
				URLs: []domain.URLRef{
					{CatSlug: "game_page", URL: "https://wiki.example/game#downloads"},
				},
			},
		},
	}
	svc := newService(wiki)

	_, urlErrors, err := svc.Import(context.Background(), "http://wiki.example/game")

	require.NoError(t, err)
	assert.Empty(t, urlErrors)
	assert.Equal(t, 1, wiki.imports)
}

func TestImport_RejectsDissimilarTitles(t *testing.T) {
	// The linked page announces a completely different game; its
	// record must be dropped and its links must not be followed.
	wiki := &mockScraper{
		name:   "wiki",
		prefix: "http://wiki.example/",
		records: map[string]domain.PartialRecord{
			"http://wiki.example/game": {
				Title: "Кащей Бессмертный",
				URLs: []domain.URLRef{
					{CatSlug: "game_page", URL: "http://cat.example/other"},
				},
			},
		},
	}
	cat := &mockScraper{
		name:   "cat",
		prefix: "http://cat.example/",
		records: map[string]domain.PartialRecord{
			"http://cat.example/other": {
				Title: "Совсем другая игра",
				Desc:  "Чужое описание.",
				URLs: []domain.URLRef{
					{CatSlug: "game_page", URL: "http://cat.example/trap"},
				},
			},
			"http://cat.example/trap": {Title: "Ловушка"},
		},
	}
	svc := newService(wiki, cat)

	merged, _, err := svc.Import(context.Background(), "http://wiki.example/game")

	require.NoError(t, err)
	assert.Equal(t, "Кащей Бессмертный", merged.Title)
	assert.Empty(t, merged.Desc)
	// The rejected page's own links are never queued.
	assert.Equal(t, 1, cat.imports)
	assert.Len(t, merged.URLs, 1)
}

func TestImport_AcceptsSimilarTitles(t *testing.T) {
	wiki := &mockScraper{
		name:   "wiki",
		prefix: "http://wiki.example/",
		records: map[string]domain.PartialRecord{
			"http://wiki.example/game": {
				Title: "Кащей Бессмертный",
				URLs: []domain.URLRef{
					{CatSlug: "game_page", URL: "http://cat.example/game"},
				},
			},
		},
	}
	cat := &mockScraper{
		name:   "cat",
		prefix: "http://cat.example/",
		records: map[string]domain.PartialRecord{
			"http://cat.example/game": {
				Title: "Кащей бессмертный",
				Desc:  "Описание.",
			},
		},
	}
	svc := newService(wiki, cat)

	merged, _, err := svc.Import(context.Background(), "http://wiki.example/game")

	require.NoError(t, err)
	assert.Equal(t, "Кащей Бессмертный", merged.Title)
	assert.Equal(t, "Описание.", merged.Desc)
}

func TestImport_SeedOverridesCanonicalTitle(t *testing.T) {
	// A later seed replaces the canonical title even when dissimilar:
	// the user explicitly asked for both URLs.
	a := &mockScraper{
		name:   "a",
		prefix: "http://a.example/",
		records: map[string]domain.PartialRecord{
			"http://a.example/game": {Title: "Первая игра"},
		},
	}
	b := &mockScraper{
		name:   "b",
		prefix: "http://b.example/",
		records: map[string]domain.PartialRecord{
			"http://b.example/game": {Title: "Другое название"},
		},
	}
	svc := newService(a, b)

	merged, _, err := svc.Import(context.Background(),
		"http://a.example/game", "http://b.example/game")

	require.NoError(t, err)
	// Equal priority keeps discovery order, so the first seed wins the
	// title slot, but both records are accepted.
	assert.Equal(t, "Первая игра", merged.Title)
	assert.Equal(t, 1, a.imports)
	assert.Equal(t, 1, b.imports)
}

func TestImport_PriorityOrdersScalarMerge(t *testing.T) {
	low := &mockScraper{
		name:     "low",
		prefix:   "http://low.example/",
		priority: 40,
		records: map[string]domain.PartialRecord{
			"http://low.example/game": {
				Title:       "Кащей",
				Desc:        "Короткое описание.",
				ReleaseDate: ptrDate(2003, 1, 1),
				URLs: []domain.URLRef{
					{CatSlug: "game_page", URL: "http://high.example/game"},
				},
			},
		},
	}
	high := &mockScraper{
		name:     "high",
		prefix:   "http://high.example/",
		priority: 100,
		records: map[string]domain.PartialRecord{
			"http://high.example/game": {
				Title:       "Кащей",
				Desc:        "Подробное описание.",
				ReleaseDate: ptrDate(2003, 5, 12),
			},
		},
	}
	svc := newService(low, high)

	merged, _, err := svc.Import(context.Background(), "http://low.example/game")

	require.NoError(t, err)
	// The high-priority source wins scalars even though it was fetched
	// second. Descriptions concatenate in priority order.
	assert.Equal(t, "2003-05-12", merged.ReleaseDate.String())
	assert.Equal(t, "Подробное описание.\n\n---\n\nКороткое описание.", merged.Desc)
}

func TestImport_DeduplicatesAcrossSources(t *testing.T) {
	shared := domain.URLRef{CatSlug: "download_direct", Description: "Скачать", URL: "http://files.example/game.zip"}
	a := &mockScraper{
		name:   "a",
		prefix: "http://a.example/",
		records: map[string]domain.PartialRecord{
			"http://a.example/game": {
				Title:   "Кащей",
				Authors: []domain.AuthorRef{{RoleSlug: "author", Name: "Евгений Бычков"}},
				Tags:    []domain.TagRef{{CatSlug: "platform", TagSlug: "urq", Tag: "URQ"}},
				URLs: []domain.URLRef{
					shared,
					{CatSlug: "game_page", URL: "http://b.example/game"},
				},
			},
		},
	}
	b := &mockScraper{
		name:   "b",
		prefix: "http://b.example/",
		records: map[string]domain.PartialRecord{
			"http://b.example/game": {
				Title:   "Кащей",
				Authors: []domain.AuthorRef{{RoleSlug: "author", Name: "Евгений Бычков"}},
				Tags:    []domain.TagRef{{CatSlug: "platform", TagSlug: "urq", Tag: "URQ"}},
				URLs:    []domain.URLRef{shared},
			},
		},
	}
	svc := newService(a, b)

	merged, _, err := svc.Import(context.Background(), "http://a.example/game")

	require.NoError(t, err)
	assert.Len(t, merged.Authors, 1)
	assert.Len(t, merged.Tags, 1)
	// The shared download collapses, the game page stays.
	assert.Len(t, merged.URLs, 2)
}

func TestImport_PerURLErrorsAreIsolated(t *testing.T) {
	wiki := &mockScraper{
		name:   "wiki",
		prefix: "http://wiki.example/",
		records: map[string]domain.PartialRecord{
			"http://wiki.example/game": {
				Title: "Кащей",
				URLs: []domain.URLRef{
					{CatSlug: "game_page", URL: "http://wiki.example/missing"},
				},
			},
		},
	}
	svc := newService(wiki)

	merged, urlErrors, err := svc.Import(context.Background(), "http://wiki.example/game")

	require.NoError(t, err)
	assert.Equal(t, "Кащей", merged.Title)
	assert.Empty(t, merged.Err)
	assert.Equal(t, map[string]string{
		"http://wiki.example/missing": domain.MsgNoGameFound,
	}, urlErrors)
}

func TestImport_AllSeedsFail(t *testing.T) {
	svc := newService(&mockScraper{name: "wiki", prefix: "http://wiki.example/"})

	merged, urlErrors, err := svc.Import(context.Background(), "http://wiki.example/missing")

	require.NoError(t, err)
	assert.Equal(t, domain.MsgNoGameFound, merged.Err)
	assert.Len(t, urlErrors, 1)
}

func TestImport_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := newService(&mockScraper{name: "wiki", prefix: "http://wiki.example/"})

	_, _, err := svc.Import(ctx, "http://wiki.example/game")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsFamiliarURL(t *testing.T) {
	svc := newService(&mockScraper{name: "wiki", prefix: "http://wiki.example/"})

	assert.True(t, svc.IsFamiliarURL("http://wiki.example/game", "game_page"))
	assert.False(t, svc.IsFamiliarURL("http://other.example/game", "game_page"))
}

func TestURLCandidates_CollectsAllScrapers(t *testing.T) {
	a := &mockScraper{name: "a", candidates: []string{"http://a.example/1"}}
	b := &mockScraper{name: "b", candidates: []string{"http://b.example/1", "http://b.example/2"}}
	svc := newService(a, b)

	urls, err := svc.URLCandidates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://a.example/1", "http://b.example/1", "http://b.example/2",
	}, urls)
}

func TestImport_EnrichesPartialsBeforeMerge(t *testing.T) {
	// Two sources spell the same raw tag with different case. Each
	// partial is enriched before the merge, so LowerCaseTags normalises
	// both spellings and the identity sets collapse them — including
	// the genre tag the mapping emits for each of them.
	wiki := &mockScraper{
		name:     "wiki",
		prefix:   "http://wiki.example/",
		priority: 100,
		records: map[string]domain.PartialRecord{
			"http://wiki.example/game": {
				Title: "Кащей",
				Tags:  []domain.TagRef{{CatSlug: "tag", Tag: "Хоррор"}},
			},
		},
	}
	forum := &mockScraper{
		name:     "forum",
		prefix:   "http://forum.example/",
		priority: 50,
		records: map[string]domain.PartialRecord{
			"http://forum.example/game": {
				Title: "Кащей",
				Tags:  []domain.TagRef{{CatSlug: "tag", Tag: "хоррор"}},
			},
		},
	}
	svc := NewImportService(enrich.Default(), wiki, forum)

	merged, urlErrors, err := svc.Import(context.Background(),
		"http://wiki.example/game", "http://forum.example/game")

	require.NoError(t, err)
	assert.Empty(t, urlErrors)
	assert.Equal(t, []domain.TagRef{
		{CatSlug: "tag", Tag: "хоррор"},
		{CatSlug: "language", Tag: "русский"},
		{CatSlug: "genre", TagSlug: "g_horror"},
	}, merged.Tags)
}

func ptrDate(year, month, day int) *domain.Date {
	d := domain.NewDate(year, time.Month(month), day)
	return &d
}
