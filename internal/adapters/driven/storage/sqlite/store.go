// Package sqlite implements the record store on an embedded SQLite
// database. Records are stored as JSON documents; the identifying URL
// hashes get their own indexed table so bulk import can look games up
// by URL without unmarshalling everything.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ifhub-labs/ifimport/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RecordStore = (*Store)(nil)

// Store is a SQLite-backed record store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at the given path. If path
// is empty it defaults to ~/.ifimport/data/games.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".ifimport", "data", "games.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Save inserts or updates a game. A game with an empty ID gets one
// assigned.
func (s *Store) Save(ctx context.Context, game domain.Game) (domain.Game, error) {
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if game.UpdatedAt.IsZero() {
		game.UpdatedAt = time.Now().UTC()
	}

	recordJSON, err := json.Marshal(game.Record)
	if err != nil {
		return domain.Game{}, fmt.Errorf("marshalling record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Game{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, title, record, imported, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			record = excluded.record,
			imported = excluded.imported,
			updated_at = excluded.updated_at
	`, game.ID, game.Title, string(recordJSON), game.Imported, game.UpdatedAt)
	if err != nil {
		return domain.Game{}, fmt.Errorf("saving game: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM game_url_hashes WHERE game_id = ?", game.ID); err != nil {
		return domain.Game{}, fmt.Errorf("clearing url hashes: %w", err)
	}
	for _, h := range game.URLHashes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO game_url_hashes (game_id, url_hash) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, game.ID, h); err != nil {
			return domain.Game{}, fmt.Errorf("saving url hash: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Game{}, fmt.Errorf("committing: %w", err)
	}
	return game, nil
}

// Get retrieves a game by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, record, imported, updated_at
		FROM games WHERE id = ?
	`, id)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting game: %w", err)
	}

	if err := s.loadURLHashes(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// FindByURLHash returns the game owning the given identifying URL
// hash, or domain.ErrNotFound.
func (s *Store) FindByURLHash(ctx context.Context, hash string) (*domain.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT g.id, g.title, g.record, g.imported, g.updated_at
		FROM games g
		JOIN game_url_hashes h ON h.game_id = g.id
		WHERE h.url_hash = ?
		LIMIT 1
	`, hash)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("finding game by url hash: %w", err)
	}

	if err := s.loadURLHashes(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// List returns all stored games, ordered by title.
func (s *Store) List(ctx context.Context) ([]domain.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, record, imported, updated_at
		FROM games ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating games: %w", err)
	}

	for i := range games {
		if err := s.loadURLHashes(ctx, &games[i]); err != nil {
			return nil, err
		}
	}
	return games, nil
}

func (s *Store) loadURLHashes(ctx context.Context, game *domain.Game) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT url_hash FROM game_url_hashes WHERE game_id = ? ORDER BY url_hash", game.ID)
	if err != nil {
		return fmt.Errorf("loading url hashes: %w", err)
	}
	defer rows.Close()

	game.URLHashes = nil
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return fmt.Errorf("scanning url hash: %w", err)
		}
		game.URLHashes = append(game.URLHashes, h)
	}
	return rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*domain.Game, error) {
	var game domain.Game
	var recordJSON string
	if err := row.Scan(&game.ID, &game.Title, &recordJSON, &game.Imported, &game.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recordJSON), &game.Record); err != nil {
		return nil, fmt.Errorf("unmarshalling record: %w", err)
	}
	return &game, nil
}
