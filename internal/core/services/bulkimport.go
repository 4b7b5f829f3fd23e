package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driving"
	"github.com/ifhub-labs/ifimport/internal/logger"
	"github.com/ifhub-labs/ifimport/internal/similarity"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// Ensure BulkImportService implements the interface.
var _ driving.BulkImporter = (*BulkImportService)(nil)

// hashedCategories are the link categories that identify a game: two
// records sharing a URL in one of these categories are the same game.
// Community, review and discussion links are deliberately absent, they
// routinely point at several games at once.
var hashedCategories = map[string]struct{}{
	"game_page":        {},
	"download_direct":  {},
	"download_landing": {},
	"play_online":      {},
}

// trackedGame is one game's worth of bulk-import state: either a game
// loaded from the store or a fresh candidate built around a discovered
// URL. It accumulates URLs until reconciled and fetched.
type trackedGame struct {
	importer driving.Importer

	// stored is the persisted game this tracks, nil for new candidates.
	stored *domain.Game

	title    string
	titleBag similarity.Bag

	// seedURLs are the familiar URLs the next fetch starts from.
	seedURLs []string

	// hashURLs are hashized identifying URLs, for duplicate detection.
	hashURLs []string

	// newURLs are URLs added since the game was loaded or created.
	newURLs []string

	record     domain.MergedRecord
	fetched    bool
	updateable bool
	modified   bool
}

func newTrackedGame(importer driving.Importer) *trackedGame {
	return &trackedGame{importer: importer, updateable: true}
}

// trackStoredGame wraps a persisted game. Only robot-imported games
// are updateable; hand-edited ones are tracked for duplicate detection
// but never overwritten.
func trackStoredGame(importer driving.Importer, game domain.Game) *trackedGame {
	t := &trackedGame{
		importer:   importer,
		stored:     &game,
		title:      game.Title,
		titleBag:   similarity.BagOfWords(game.Title),
		hashURLs:   append([]string(nil), game.URLHashes...),
		updateable: game.Imported,
	}
	for _, u := range game.Record.URLs {
		if importer.IsFamiliarURL(u.URL, u.CatSlug) {
			t.seedURLs = append(t.seedURLs, u.URL)
		}
	}
	return t
}

func (t *trackedGame) dirtify() {
	t.modified = true
}

// addURL registers a newly discovered URL and invalidates any previous
// fetch so the next one sees it.
func (t *trackedGame) addURL(url string) {
	t.seedURLs = append(t.seedURLs, url)
	t.newURLs = append(t.newURLs, url)
	t.hashURLs = append(t.hashURLs, urlkit.HashizeURL(url))
	t.fetched = false
	t.modified = true
}

func (t *trackedGame) hasHashURL(hash string) bool {
	for _, h := range t.hashURLs {
		if h == hash {
			return true
		}
	}
	return false
}

// fetch reconciles the game from its seed URLs and refreshes the
// tracked title and URL sets from the merged record. It fails when no
// title could be established, or when a URL the game was already known
// under stops resolving.
func (t *trackedGame) fetch(ctx context.Context) bool {
	merged, urlErrors, err := t.importer.Import(ctx, t.seedURLs...)
	if err != nil {
		logger.Error("Import of %s aborted: %v", t, err)
		return false
	}
	if merged.Title == "" {
		logger.Warn("Was unable to fetch %s: %s", t, merged.Err)
		return false
	}

	for _, u := range t.seedURLs {
		if containsString(t.newURLs, u) {
			continue
		}
		if msg, ok := urlErrors[u]; ok {
			logger.Error("Was unable to fetch old url %s: %s", u, msg)
			return false
		}
	}

	t.record = merged
	t.fetched = true
	t.seedURLs = t.seedURLs[:0]
	t.hashURLs = t.hashURLs[:0]
	for _, u := range merged.URLs {
		if t.importer.IsFamiliarURL(u.URL, u.CatSlug) {
			t.seedURLs = append(t.seedURLs, u.URL)
		}
		if _, ok := hashedCategories[u.CatSlug]; ok {
			t.hashURLs = append(t.hashURLs, urlkit.HashizeURL(u.URL))
		}
	}
	t.title = merged.Title
	t.titleBag = similarity.BagOfWords(t.title)
	return true
}

// store writes the fetched record through the record store, fetching
// first if needed. It returns whether the stored game was new.
func (t *trackedGame) store(ctx context.Context, records driven.RecordStore) (bool, error) {
	if !t.fetched {
		if !t.fetch(ctx) {
			return false, fmt.Errorf("fetch %s failed", t)
		}
	}

	game := domain.Game{
		Title:     t.title,
		Record:    t.record,
		URLHashes: append([]string(nil), t.hashURLs...),
		Imported:  true,
		UpdatedAt: time.Now().UTC(),
	}
	isNew := t.stored == nil
	if t.stored != nil {
		game.ID = t.stored.ID
	}

	logger.Info("Updating %s", t)
	saved, err := records.Save(ctx, game)
	if err != nil {
		return false, fmt.Errorf("save %s: %w", t, err)
	}
	t.stored = &saved
	return isNew, nil
}

func (t *trackedGame) String() string {
	s := fmt.Sprintf("game [%s]", t.title)
	if t.stored != nil {
		s += fmt.Sprintf(", id [%s]", t.stored.ID)
	}
	for _, u := range t.seedURLs {
		s += fmt.Sprintf(", url [%s]", u)
	}
	return s
}

// gameSet holds every tracked game plus an index from hashized
// identifying URL to the game that owns it.
type gameSet struct {
	games     []*trackedGame
	urlToGame map[string]*trackedGame
}

func newGameSet() *gameSet {
	return &gameSet{urlToGame: make(map[string]*trackedGame)}
}

func (s *gameSet) add(game *trackedGame) {
	for _, h := range game.hashURLs {
		if other, ok := s.urlToGame[h]; ok {
			logger.Warn("Game %s has the same URL [%s] as game %s", game, h, other)
		} else {
			s.urlToGame[h] = game
		}
	}
	s.games = append(s.games, game)
}

func (s *gameSet) hasURL(url string) bool {
	_, ok := s.urlToGame[urlkit.HashizeURL(url)]
	return ok
}

func (s *gameSet) dirtifyURL(url string) {
	hash := urlkit.HashizeURL(url)
	if game, ok := s.urlToGame[hash]; ok {
		logger.Info("Dirtifying url %s", hash)
		game.dirtify()
	}
}

// tryMerge folds a fetched candidate into the existing game it most
// likely belongs to: first by shared identifying URL, then by a
// high-confidence title scan over the whole set. Candidates whose best
// match is still at or below the low-confidence threshold stay
// separate; that is a conflict worth a human look when they did share
// a URL. Returns (merged, conflict).
func (s *gameSet) tryMerge(game *trackedGame) (bool, bool) {
	similar := make(map[*trackedGame]struct{})
	for _, h := range game.hashURLs {
		if other, ok := s.urlToGame[h]; ok {
			similar[other] = struct{}{}
		}
	}

	if len(similar) == 0 {
		for _, other := range s.games {
			if similarity.Jaccard(other.titleBag, game.titleBag) > similarity.HighConfidence {
				similar[other] = struct{}{}
			}
		}
	}

	if len(similar) > 1 {
		logger.Warn("Found %d similar games while importing %s", len(similar), game)
	}

	var best *trackedGame
	bestSim := 0.0
	for other := range similar {
		if sim := similarity.Jaccard(game.titleBag, other.titleBag); sim > bestSim {
			bestSim = sim
			best = other
		}
	}

	if best == nil || bestSim <= similarity.LowConfidence {
		conflict := len(similar) > 0
		if conflict {
			for other := range similar {
				logger.Error("Similar games are too dissimilar (%.2f): %s vs %s",
					bestSim, game, other)
			}
		}
		s.add(game)
		return false, conflict
	}

	logger.Info("Merging %s into %s (similarity %.2f)", game, best, bestSim)
	for _, u := range game.seedURLs {
		if !best.hasHashURL(urlkit.HashizeURL(u)) {
			best.addURL(u)
		}
	}
	return true, false
}

// BulkImportService walks every scraper's discovery listing, imports
// the URLs that are not yet part of the catalogue, reconciles them
// against the stored games and writes the result back.
type BulkImportService struct {
	importer driving.Importer
	records  driven.RecordStore

	// DirtyAge bounds the change-feed lookback when re-checking known
	// games. Zero disables the dirty pass.
	DirtyAge time.Duration
}

// NewBulkImportService creates a bulk importer over an import service
// and a record store.
func NewBulkImportService(importer driving.Importer, records driven.RecordStore) *BulkImportService {
	return &BulkImportService{importer: importer, records: records, DirtyAge: 48 * time.Hour}
}

// Run performs one full discovery-and-reconcile pass.
func (s *BulkImportService) Run(ctx context.Context) (driving.BulkReport, error) {
	var report driving.BulkReport

	stored, err := s.records.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list stored games: %w", err)
	}

	set := newGameSet()
	existing := make(map[string]struct{})
	for _, g := range stored {
		t := trackStoredGame(s.importer, g)
		set.add(t)
		for _, h := range t.hashURLs {
			existing[h] = struct{}{}
		}
	}
	logger.Info("Loaded %d stored games", len(stored))

	candidates, err := s.importer.URLCandidates(ctx)
	if err != nil {
		logger.Warn("Some candidate listings failed: %v", err)
	}
	report.Candidates = len(candidates)
	logger.Info("%d url candidates to check", len(candidates))

	for _, u := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if set.hasURL(u) {
			logger.Debug("Url %s already tracked", u)
			continue
		}
		if _, ok := existing[urlkit.HashizeURL(u)]; ok {
			logger.Warn("Url [%s] is known, yet no game has it. Deleted?", u)
			continue
		}

		g := newTrackedGame(s.importer)
		g.addURL(u)
		if !g.fetch(ctx) {
			report.Errors++
			continue
		}
		merged, conflict := set.tryMerge(g)
		if merged {
			report.MergedGames++
		}
		if conflict {
			report.Conflicts++
		}
	}

	if s.DirtyAge > 0 {
		dirty, err := s.importer.DirtyURLs(ctx, s.DirtyAge)
		if err != nil {
			logger.Warn("Some change feeds failed: %v", err)
		}
		for _, u := range dirty {
			set.dirtifyURL(u)
		}
	}

	for _, g := range set.games {
		if !g.modified {
			continue
		}
		if !g.updateable {
			logger.Error("New URLs for hand-edited game %s: %v", g, g.newURLs)
			continue
		}
		isNew, err := g.store(ctx, s.records)
		if err != nil {
			logger.Error("Store failed: %v", err)
			report.Errors++
			continue
		}
		if isNew {
			report.NewGames++
		} else {
			report.UpdatedGames++
		}
	}

	return report, nil
}

// Reimport re-fetches and re-stores every robot-imported game in the
// catalogue, ignoring the discovery feeds.
func (s *BulkImportService) Reimport(ctx context.Context) error {
	stored, err := s.records.List(ctx)
	if err != nil {
		return fmt.Errorf("list stored games: %w", err)
	}
	for _, g := range stored {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := trackStoredGame(s.importer, g)
		if !t.updateable {
			logger.Warn("Unable to reimport hand-edited game %s", t)
			continue
		}
		if _, err := t.store(ctx, s.records); err != nil {
			logger.Error("Reimport failed: %v", err)
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
