package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleGame() domain.Game {
	return domain.Game{
		Title: "Кащей Бессмертный",
		Record: domain.MergedRecord{
			Title: "Кащей Бессмертный",
			Desc:  "Классика URQ.",
			Authors: []domain.AuthorRef{
				{RoleSlug: "author", Name: "Евгений Бычков"},
			},
			Tags: []domain.TagRef{
				{CatSlug: "platform", TagSlug: "urq", Tag: "URQ"},
			},
			URLs: []domain.URLRef{
				{CatSlug: "game_page", Description: "Страница на IfWiki", URL: "http://ifwiki.ru/Кащей"},
			},
		},
		URLHashes: []string{"//ifwiki.ru/Кащей"},
		Imported:  true,
	}
}

func TestStore_SaveAssignsID(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(context.Background(), sampleGame())

	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.UpdatedAt.IsZero())
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, sampleGame())
	require.NoError(t, err)

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "Кащей Бессмертный", got.Title)
	assert.Equal(t, "Классика URQ.", got.Record.Desc)
	require.Len(t, got.Record.Authors, 1)
	assert.Equal(t, "Евгений Бычков", got.Record.Authors[0].Name)
	assert.Equal(t, []string{"//ifwiki.ru/Кащей"}, got.URLHashes)
	assert.True(t, got.Imported)
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "does-not-exist")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, sampleGame())
	require.NoError(t, err)

	saved.Record.Desc = "Обновлённое описание."
	saved.URLHashes = []string{"//ifwiki.ru/Кащей", "//urq.plut.info/kashchey"}
	_, err = store.Save(ctx, saved)
	require.NoError(t, err)

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Обновлённое описание.", got.Record.Desc)
	assert.Len(t, got.URLHashes, 2)

	games, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestStore_FindByURLHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, sampleGame())
	require.NoError(t, err)

	got, err := store.FindByURLHash(ctx, "//ifwiki.ru/Кащей")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)

	_, err = store.FindByURLHash(ctx, "//nowhere.example/game")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListOrdersByTitle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := sampleGame()
	b.Title = "Ворон"
	b.URLHashes = []string{"//ifwiki.ru/Ворон"}
	_, err := store.Save(ctx, b)
	require.NoError(t, err)

	a := sampleGame()
	a.Title = "Азбука"
	a.URLHashes = []string{"//ifwiki.ru/Азбука"}
	_, err = store.Save(ctx, a)
	require.NoError(t, err)

	games, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "Азбука", games[0].Title)
	assert.Equal(t, "Ворон", games[1].Title)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	saved, err := store.Save(ctx, sampleGame())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Кащей Бессмертный", got.Title)
}
