package apero

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
<dd itemprop="name"><div title="Побег из офиса">Побег из офиса</div></dd>
<meta itemprop="datePublished" content="2017-11-03">
<a itemprop="author" href="/Участники/Мария">Мария</a>
<dt>Описание:</dt>
<dd><div>Вы заперты в офисе. <b>Выберитесь.</b></div></dd>
<img src="http://apero.ru/public/img/games/42.png" alt="x" itemprop="image" />
</body></html>`

const sampleAuthorPage = `<html><body>
<dt>О себе:</dt><dd>Пишу текстовые игры с 2015 года.</dd>
<img src="http://apero.ru/public/img/members/7.jpg" class="img-circle" />
</body></html>`

func TestMatch(t *testing.T) {
	s := New(&mockFetcher{})

	// Both raw and percent-encoded forms must match.
	assert.True(t, s.Match("http://apero.ru/Текстовые-игры/pobeg"))
	assert.True(t, s.Match("http://apero.ru/%D0%A2%D0%B5%D0%BA%D1%81%D1%82%D0%BE%D0%B2%D1%8B%D0%B5-%D0%B8%D0%B3%D1%80%D1%8B/pobeg"))
	assert.False(t, s.Match("http://apero.ru/Участники/Мария"))
}

func TestMatchAuthor(t *testing.T) {
	s := New(&mockFetcher{})

	assert.True(t, s.MatchAuthor("http://apero.ru/Участники/Мария"))
	assert.False(t, s.MatchAuthor("http://apero.ru/Текстовые-игры/pobeg"))
}

func TestMatchWithCategory(t *testing.T) {
	s := New(&mockFetcher{})

	assert.True(t, s.MatchWithCategory("http://apero.ru/Текстовые-игры/pobeg", "play_online"))
	assert.False(t, s.MatchWithCategory("http://apero.ru/Текстовые-игры/pobeg", "game_page"))
}

func TestImport(t *testing.T) {
	url := "http://apero.ru/Текстовые-игры/pobeg"
	s := New(&mockFetcher{pages: map[string]string{url: samplePage}})

	rec := s.Import(context.Background(), url)

	require.False(t, rec.HasError())
	assert.Equal(t, "Побег из офиса", rec.Title)
	assert.Equal(t, Priority, rec.Priority)
	assert.Contains(t, rec.Desc, "Вы заперты в офисе.")
	assert.Contains(t, rec.Desc, "_(описание взято с сайта apero.ru)_")

	require.NotNil(t, rec.ReleaseDate)
	assert.Equal(t, "2017-11-03", rec.ReleaseDate.String())

	require.Len(t, rec.Authors, 1)
	assert.Equal(t, "Мария", rec.Authors[0].Name)
	assert.Equal(t, "Страница автора на apero.ru", rec.Authors[0].URLDesc)
	assert.Contains(t, rec.Authors[0].URL, membersPath)

	require.Len(t, rec.Tags, 1)
	assert.Equal(t, "Аперо", rec.Tags[0].Tag)

	// Own page plus the cover image.
	require.Len(t, rec.URLs, 2)
	assert.Equal(t, "poster", rec.URLs[1].CatSlug)
}

func TestImport_StockImageIsSkipped(t *testing.T) {
	url := "http://apero.ru/Текстовые-игры/pobeg"
	page := `<dd itemprop="name"><div title="Игра">Игра</div></dd>
<img src="http://apero.ru/public/img/games/game.png" alt="x" itemprop="image" />`
	s := New(&mockFetcher{pages: map[string]string{url: page}})

	rec := s.Import(context.Background(), url)

	require.False(t, rec.HasError())
	assert.Len(t, rec.URLs, 1)
}

func TestImportAuthor(t *testing.T) {
	url := "http://apero.ru/Участники/Мария"
	s := New(&mockFetcher{pages: map[string]string{url: sampleAuthorPage}})

	bio := s.ImportAuthor(context.Background(), url)

	require.Empty(t, bio.Err)
	assert.Equal(t, "Мария", bio.Name)
	assert.Contains(t, bio.Bio, "Пишу текстовые игры с 2015 года.")

	require.Len(t, bio.URLs, 2)
	assert.Equal(t, "personal_page", bio.URLs[0].CatSlug)
	assert.Equal(t, "avatar", bio.URLs[1].CatSlug)
}

func TestImportAuthor_WrongURL(t *testing.T) {
	s := New(&mockFetcher{})

	bio := s.ImportAuthor(context.Background(), "http://apero.ru/Текстовые-игры/pobeg")

	assert.NotEmpty(t, bio.Err)
}

func TestURLCandidates(t *testing.T) {
	listing := `<h2><a href="http://apero.ru/Текстовые-игры/pobeg">Побег из офиса</a></h2>`
	s := New(&mockFetcher{pages: map[string]string{
		"http://apero.ru/" + gamesPath: listing,
	}})

	urls, err := s.URLCandidates(context.Background())

	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, "http://apero.ru/"+gamesPath+"/pobeg", urls[0])
}
