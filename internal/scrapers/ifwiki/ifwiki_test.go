package ifwiki

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
)

// mockFetcher serves pages by exact URL, falling back to prefix match
// for API queries whose parameters vary (timestamps).
type mockFetcher struct {
	pages map[string]string
}

var _ driven.Fetcher = (*mockFetcher)(nil)

func (m *mockFetcher) Fetch(ctx context.Context, url string, opts driven.FetchOptions) (string, error) {
	if page, ok := m.pages[url]; ok {
		return page, nil
	}
	for prefix, page := range m.pages {
		if strings.HasPrefix(url, prefix) {
			return page, nil
		}
	}
	return "", errors.New("not found")
}

func rawPage(page, wikitext string) map[string]string {
	return map[string]string{
		"https://ifwiki.ru/index.php?title=" + page + "&action=raw": wikitext,
	}
}

const gamePage = `{{game info
|название=Таинственный гараж
|автор=[[автор:Crem]]
|вышла=01.01.2020
|платформа=INSTEAD
|язык=Русский
|темы=детектив, фантастика
|обложка=Garage_cover.jpg
|IFID=12345-67890-ABCDE
}}

'''Таинственный гараж''' - это интерактивная игра в жанре [[Тема:детектив|детектива]] с элементами фантастики.

== Сюжет ==
Игра рассказывает о загадочном гараже, где происходят странные события...

== Особенности ==
* Нелинейный сюжет
* Множественные концовки
* Атмосферная музыка

== Ссылки ==
{{Ссылка|на=http://example.com/game.zip|1=Скачать игру}}

[[Категория:Игры]]
[[Категория:INSTEAD]]
`

func TestMatch(t *testing.T) {
	s := New(&mockFetcher{})

	assert.True(t, s.Match("https://ifwiki.ru/Таинственный_гараж"))
	assert.True(t, s.Match("http://ifwiki.ru/Some_Game"))
	assert.True(t, s.Match("https://ifwiki.ru/Автор:Crem"))

	assert.False(t, s.Match("https://example.com/game"))
	assert.False(t, s.Match("https://ifwiki.org/game"))
	assert.False(t, s.Match("https://ifwiki.ru"))
	assert.False(t, s.Match("https://ifwiki.ru/"))
}

func TestMatchWithCategory(t *testing.T) {
	s := New(&mockFetcher{})

	assert.True(t, s.MatchWithCategory("https://ifwiki.ru/Some_Game", "game_page"))
	assert.False(t, s.MatchWithCategory("https://ifwiki.ru/Some_Game", "download_direct"))
}

func TestImport(t *testing.T) {
	url := "https://ifwiki.ru/Таинственный_гараж"
	s := New(&mockFetcher{pages: rawPage("Таинственный_гараж", gamePage)})

	rec := s.Import(context.Background(), url)

	require.False(t, rec.HasError())
	assert.Equal(t, "Таинственный гараж", rec.Title)
	assert.Equal(t, Priority, rec.Priority)

	require.NotNil(t, rec.ReleaseDate)
	assert.Equal(t, "2020-01-01", rec.ReleaseDate.String())

	require.Len(t, rec.Authors, 1)
	assert.Equal(t, domain.AuthorRef{RoleSlug: "author", Name: "Crem"}, rec.Authors[0])

	assert.Contains(t, rec.Tags, domain.TagRef{CatSlug: "platform", Tag: "INSTEAD"})
	assert.Contains(t, rec.Tags, domain.TagRef{CatSlug: "language", Tag: "Русский"})
	assert.Contains(t, rec.Tags, domain.TagRef{CatSlug: "tag", Tag: "детектив"})
	assert.Contains(t, rec.Tags, domain.TagRef{CatSlug: "tag", Tag: "фантастика"})
	assert.Contains(t, rec.Tags, domain.TagRef{CatSlug: "ifid", Tag: "12345-67890-ABCDE"})

	// The page itself, the cover and the download link.
	require.NotEmpty(t, rec.URLs)
	assert.Equal(t, "game_page", rec.URLs[0].CatSlug)
	assert.Equal(t, url, rec.URLs[0].URL)

	var cats []string
	for _, u := range rec.URLs {
		cats = append(cats, u.CatSlug)
	}
	assert.Contains(t, cats, "poster")
	assert.Contains(t, cats, "download_direct")

	assert.Contains(t, rec.Desc, "**Таинственный гараж**")
	assert.Contains(t, rec.Desc, "**детектива**")
	assert.Contains(t, rec.Desc, "## Сюжет")
	assert.Contains(t, rec.Desc, "* Нелинейный сюжет")
	assert.Contains(t, rec.Desc, "[Скачать игру](http://example.com/game.zip)")
	assert.True(t, strings.HasSuffix(rec.Desc, "_(описание взято с сайта ifwiki.ru)_"))
}

func TestImport_CompetitionTemplate(t *testing.T) {
	s := New(&mockFetcher{pages: rawPage("Some_Game", "{{ЛОК|2020}}\n\nИгра участвовала в конкурсе.\n")})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Some_Game")

	require.False(t, rec.HasError())
	assert.Contains(t, rec.Tags, domain.TagRef{CatSlug: "competition", Tag: "ЛОК-2020"})
}

func TestImport_PagenameTemplate(t *testing.T) {
	wikitext := `{{game info
|название={{PAGENAME}}
|автор=[[автор:TestAuthor]]
|платформа=INSTEAD
}}

Test game content.
`
	s := New(&mockFetcher{pages: rawPage("Test_Game_Name", wikitext)})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Test_Game_Name")

	require.False(t, rec.HasError())
	assert.Equal(t, "Test Game Name", rec.Title)
	assert.NotContains(t, rec.Desc, "PAGENAME")
}

func TestImport_Redirect(t *testing.T) {
	pages := rawPage("Redirect_Page", "#REDIRECT [[Main Game]]")
	for k, v := range rawPage("Main_Game", "{{game info\n|название=Main Game\n}}\n") {
		pages[k] = v
	}
	s := New(&mockFetcher{pages: pages})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Redirect_Page")

	require.False(t, rec.HasError())
	assert.Equal(t, "Main Game", rec.Title)
}

func TestImport_RedirectLoop(t *testing.T) {
	s := New(&mockFetcher{pages: rawPage("Loop", "#REDIRECT [[Loop]]")})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Loop")

	assert.True(t, rec.HasError())
}

func TestImport_FetchError(t *testing.T) {
	s := New(&mockFetcher{})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Missing_Game")

	require.True(t, rec.HasError())
	assert.Equal(t, domain.MsgFetchFailed, rec.Err)
}

func TestImport_UnbalancedTemplate(t *testing.T) {
	s := New(&mockFetcher{pages: rawPage("Broken", "{{game info\n|название=X\n\nтекст без конца")})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Broken")

	require.True(t, rec.HasError())
	assert.Equal(t, domain.MsgParseFailed, rec.Err)
}

func TestImport_EmptyPage(t *testing.T) {
	s := New(&mockFetcher{pages: rawPage("Empty_Page", "")})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Empty_Page")

	require.False(t, rec.HasError())
	assert.Equal(t, "Empty Page", rec.Title)
	assert.Contains(t, rec.Desc, "_(описание взято с сайта ifwiki.ru)_")
}

func TestImport_InvalidDate(t *testing.T) {
	s := New(&mockFetcher{pages: rawPage("Game", "{{game info\n|название=Game\n|вышла=invalid-date\n}}\n")})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Game")

	require.False(t, rec.HasError())
	assert.Nil(t, rec.ReleaseDate)
}

func TestImport_Markdown(t *testing.T) {
	wikitext := `'''Bold text''' and ''italic text''.

== Section Header ==
* List item 1
* List item 2

# First
# Second

[[Internal Link|Display Text]]
`
	s := New(&mockFetcher{pages: rawPage("Game", wikitext)})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Game")

	require.False(t, rec.HasError())
	assert.Contains(t, rec.Desc, "**Bold text**")
	assert.Contains(t, rec.Desc, "_italic text_")
	assert.Contains(t, rec.Desc, "## Section Header")
	assert.Contains(t, rec.Desc, "* List item 1")
	assert.Contains(t, rec.Desc, "1. First")
	assert.Contains(t, rec.Desc, "2. Second")
	assert.Contains(t, rec.Desc, "**Display Text**")
}

func TestImport_FeaturedAndMedia(t *testing.T) {
	wikitext := `{{Избранная игра}}

[[Медиа:game final.zip|Скачать последнюю версию]]
[[Изображение:Shot one.png|Скриншот]]
`
	s := New(&mockFetcher{pages: rawPage("Game", wikitext)})

	rec := s.Import(context.Background(), "https://ifwiki.ru/Game")

	require.False(t, rec.HasError())
	assert.Contains(t, rec.Tags, domain.TagRef{TagSlug: "ifwiki_featured"})

	var byCat = map[string]string{}
	for _, u := range rec.URLs {
		byCat[u.CatSlug] = u.URL
	}
	assert.Equal(t, "https://ifwiki.ru/files/Game_final.zip", byCat["download_direct"])
	assert.Equal(t, "https://ifwiki.ru/files/Shot_one.png", byCat["screenshot"])
}

func TestImportAuthor(t *testing.T) {
	wikitext := `Crem (настоящее имя неизвестно) - российский автор интерактивной литературы.

== Игры ==
* [[Таинственный гараж]] (2020)

[[Категория:Авторы]]
`
	s := New(&mockFetcher{pages: rawPage("Автор:Crem", wikitext)})

	bio := s.ImportAuthor(context.Background(), "https://ifwiki.ru/Автор:Crem")

	require.False(t, bio.HasError())
	assert.Equal(t, "Crem", bio.Name)
	assert.Contains(t, bio.Bio, "российский автор")
	assert.Contains(t, bio.Bio, "ifwiki.ru")

	require.NotEmpty(t, bio.URLs)
	assert.Equal(t, "personal_page", bio.URLs[0].CatSlug)
}

func TestImportAuthor_NotWikiURL(t *testing.T) {
	s := New(&mockFetcher{})

	bio := s.ImportAuthor(context.Background(), "https://example.com/author")

	require.True(t, bio.HasError())
	assert.Equal(t, domain.MsgNotAuthorURL, bio.Err)
}

func TestURLCandidates(t *testing.T) {
	s := New(&mockFetcher{pages: map[string]string{
		"http://ifwiki.ru/api.php?action=query&list=categorymembers": `{
			"query": {"categorymembers": [
				{"pageid": 1, "sortkey": "a"},
				{"pageid": 2, "sortkey": "b"}
			]}}`,
		"http://ifwiki.ru/api.php?action=query&prop=info": `{
			"query": {"pages": {
				"1": {"fullurl": "https://ifwiki.ru/Game_One"},
				"2": {"fullurl": "http://ifwiki.ru/%D0%9A%D0%B0%D1%82%D0%B5%D0%B3%D0%BE%D1%80%D0%B8%D1%8F:INSTEAD"}
			}}}`,
	}})

	urls, err := s.URLCandidates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"https://ifwiki.ru/Game_One"}, urls)
}

func TestDirtyURLs(t *testing.T) {
	s := New(&mockFetcher{pages: map[string]string{
		"http://ifwiki.ru/api.php?action=query&list=recentchanges": `{
			"query": {"recentchanges": [
				{"pageid": 7}, {"pageid": 0}, {"pageid": 7}
			]}}`,
		"http://ifwiki.ru/api.php?action=query&prop=info": `{
			"query": {"pages": {
				"7": {"fullurl": "https://ifwiki.ru/Changed_Game"}
			}}}`,
	}})

	urls, err := s.DirtyURLs(context.Background(), 14*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://ifwiki.ru/Changed_Game"}, urls)
}
