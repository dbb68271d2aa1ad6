// Package cards persists generated cards in a Badger database.
package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/randomtoy/mysticorb/internal/domain"
)

const keyPrefix = "card:"

var ErrClosed = errors.New("card store is closed")

// record is the persisted shape of a generated card.
type record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	Image     []byte    `json:"image"`
	MIMEType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is a Badger-backed generated card store. It opens lazily: Init may be
// called any number of times and every operation initialises on first use.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	db     *badger.DB
	closed bool
}

// New returns an unopened store rooted at path. An empty path keeps the data in memory.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Init opens the database, or reuses it if already open.
func (s *Store) Init() error {
	_, err := s.handle()
	return err
}

func (s *Store) handle() (*badger.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.db != nil {
		return s.db, nil
	}

	opts := badger.DefaultOptions(s.path)
	if s.path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	s.db = db
	s.logger.Info("card store opened", "path", s.path)
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

// Create inserts or replaces the card keyed by card.ID.
func (s *Store) Create(ctx context.Context, card domain.Card) error {
	if card.ID == "" {
		return fmt.Errorf("card id is required")
	}
	db, err := s.handle()
	if err != nil {
		return err
	}

	data, err := json.Marshal(toRecord(card))
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
	}
	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+card.ID), data)
	}); err != nil {
		return fmt.Errorf("write card %s: %w", card.ID, err)
	}

	s.logger.DebugContext(ctx, "card saved", "card_id", card.ID, "bytes", len(card.Image))
	return nil
}

// Get returns the card with id, or domain.ErrCardNotFound.
func (s *Store) Get(_ context.Context, id string) (domain.Card, error) {
	db, err := s.handle()
	if err != nil {
		return domain.Card{}, err
	}

	var rec record
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Card{}, domain.ErrCardNotFound
	}
	if err != nil {
		return domain.Card{}, fmt.Errorf("read card %s: %w", id, err)
	}
	return rec.toCard(), nil
}

// ListAll returns every stored card in creation order.
func (s *Store) ListAll(ctx context.Context) ([]domain.Card, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var records []record
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				s.logger.WarnContext(ctx, "skipping unreadable card record", "key", string(item.Key()), "error", err)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	out := make([]domain.Card, len(records))
	for i, rec := range records {
		out[i] = rec.toCard()
	}
	return out, nil
}

func toRecord(c domain.Card) record {
	return record{
		ID:        c.ID,
		Name:      c.Name,
		Prompt:    c.Prompt,
		Image:     c.Image,
		MIMEType:  c.MIMEType,
		CreatedAt: c.CreatedAt,
	}
}

func (r record) toCard() domain.Card {
	return domain.NewGeneratedCard(r.ID, r.Name, r.Prompt, r.Image, r.MIMEType, r.CreatedAt)
}
