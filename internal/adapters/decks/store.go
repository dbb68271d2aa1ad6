// Package decks persists the user's deck list as one serialized record in SQLite.
package decks

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/randomtoy/mysticorb/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// DecksKey is the well-known key holding the serialized deck array.
const DecksKey = "userTarotDecks"

var ErrClosed = errors.New("deck store is closed")

// Store keeps the deck list under DecksKey. Every write replaces the whole
// list; there is no per-deck update and no protection against two writers
// interleaving their read-modify-write cycles.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// New returns an unopened store for the SQLite file at path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Init opens the database and applies the schema, or reuses an open handle.
func (s *Store) Init() error {
	_, err := s.handle()
	return err
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s.db = db
	s.logger.Info("deck store opened", "path", s.path)
	return db, nil
}

// Close releases the database. Further operations return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListAll returns the stored decks. A missing or unparsable record yields an
// empty list; only failing to reach the database is an error.
func (s *Store) ListAll(ctx context.Context) ([]domain.Deck, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var raw string
	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, DecksKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Deck{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read decks: %w", err)
	}

	var decks []domain.Deck
	if err := json.Unmarshal([]byte(raw), &decks); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt deck record", "key", DecksKey, "error", err)
		return []domain.Deck{}, nil
	}
	if decks == nil {
		return []domain.Deck{}, nil
	}
	for i := range decks {
		if decks[i].CardIDs == nil {
			decks[i].CardIDs = []string{}
		}
	}
	return decks, nil
}

// ReplaceAll overwrites the stored list with decks.
func (s *Store) ReplaceAll(ctx context.Context, decks []domain.Deck) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if decks == nil {
		decks = []domain.Deck{}
	}

	data, err := json.Marshal(decks)
	if err != nil {
		return fmt.Errorf("marshal decks: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		DecksKey, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write decks: %w", err)
	}
	return nil
}
