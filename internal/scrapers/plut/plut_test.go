package plut

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
)

type mockFetcher struct {
	pages map[string]string
}

var _ driven.Fetcher = (*mockFetcher)(nil)

func (m *mockFetcher) Fetch(ctx context.Context, url string, opts driven.FetchOptions) (string, error) {
	page, ok := m.pages[url]
	if !ok {
		return "", errors.New("not found")
	}
	return page, nil
}

const samplePage = `<html><body>
<h1 class="title">Кащей Бессмертный</h1>
<div id="block-system-main">
<span property="dc:date dc:created" content="2003-05-12T00:00:00+03:00"></span>
<div class="field field-name-body field-type-text-with-summary field-label-hidden"><div class="field-items"><p>Сказочный квест про Кащея.</p></div>
<div class="field-label">Статус:&nbsp;</div><div class="field-items"><a href="/status/done">готовая</a></div></div>
<div class="field-label">Платформа:&nbsp;</div><div class="field-items"><a href="/platform/urq">URQ</a></div></div>
<div class="field-label">Авторы:&nbsp;</div><div class="field-items"><a href="/author/1">Евгений Бычков</a></div></div>
<table><tr><td><span class="file"><img class="file-icon" src="/i.png"> <a href="https://urq.plut.info/files/kashey.zip" type="application/zip">kashey.zip</a></span></td></tr></table>
</div>
</body></html>`

func TestMatch(t *testing.T) {
	s := New(&mockFetcher{})

	assert.True(t, s.Match("https://urq.plut.info/node/123"))
	assert.True(t, s.Match("https://urq.plut.info/kashhej-bessmertnyj"))
	assert.False(t, s.Match("https://instead-games.ru/node/123"))
}

func TestImport(t *testing.T) {
	url := "https://urq.plut.info/node/123"
	s := New(&mockFetcher{pages: map[string]string{url: samplePage}})

	rec := s.Import(context.Background(), url)

	require.False(t, rec.HasError())
	assert.Equal(t, "Кащей Бессмертный", rec.Title)
	assert.Equal(t, Priority, rec.Priority)
	assert.Contains(t, rec.Desc, "Сказочный квест")
	assert.Contains(t, rec.Desc, "_(описание взято с сайта urq.plut.info)_")

	require.NotNil(t, rec.ReleaseDate)
	assert.Equal(t, "2003-05-12", rec.ReleaseDate.String())

	require.Len(t, rec.Authors, 1)
	assert.Equal(t, "Евгений Бычков", rec.Authors[0].Name)

	var slugs []string
	for _, tag := range rec.Tags {
		slugs = append(slugs, tag.TagSlug+tag.Tag)
	}
	assert.Contains(t, slugs, "released")
	assert.Contains(t, slugs, "URQ")

	// Own page plus the direct download.
	require.Len(t, rec.URLs, 2)
	assert.Equal(t, "game_page", rec.URLs[0].CatSlug)
	assert.Equal(t, "Страница на плуте", rec.URLs[0].Description)
	assert.Equal(t, "download_direct", rec.URLs[1].CatSlug)
	assert.Equal(t, "https://urq.plut.info/files/kashey.zip", rec.URLs[1].URL)
}

func TestImport_NoTitle(t *testing.T) {
	url := "https://urq.plut.info/node/123"
	s := New(&mockFetcher{pages: map[string]string{url: "<html></html>"}})

	rec := s.Import(context.Background(), url)

	assert.True(t, rec.HasError())
}

func TestURLCandidates_PagesUntilEmpty(t *testing.T) {
	page0 := `<table>
<td class="views-field views-field-title" >
<a href="/kashhej">Кащей</a></td>
<td class="views-field views-field-title" >
<a href="/vorona">Ворона</a></td>
</table>`
	s := New(&mockFetcher{pages: map[string]string{
		"https://urq.plut.info/games?page=0": page0,
		"https://urq.plut.info/games?page=1": "<table></table>",
	}})

	urls, err := s.URLCandidates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://urq.plut.info/kashhej",
		"https://urq.plut.info/vorona",
	}, urls)
}
