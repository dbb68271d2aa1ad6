package catalog

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/randomtoy/mysticorb/internal/domain"
)

//go:embed data/catalog.toml
var catalogFS embed.FS

const catalogPath = "data/catalog.toml"

type document struct {
	CardBack    string                `toml:"card_back"`
	MajorArcana []domain.CatalogEntry `toml:"major_arcana"`
	Spreads     []domain.Spread       `toml:"spreads"`
}

// EmbeddedStore serves the fixed Major Arcana and spreads compiled into the binary.
type EmbeddedStore struct {
	once     sync.Once
	cards    []domain.Card
	spreads  []domain.Spread
	cardBack string
	err      error
}

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	raw, err := catalogFS.ReadFile(catalogPath)
	if err != nil {
		s.err = fmt.Errorf("read embedded catalog: %w", err)
		return
	}
	var f document
	if err := toml.Unmarshal(raw, &f); err != nil {
		s.err = fmt.Errorf("parse embedded catalog: %w", err)
		return
	}
	if err := validate(f); err != nil {
		s.err = err
		return
	}

	s.cards = make([]domain.Card, len(f.MajorArcana))
	for i, e := range f.MajorArcana {
		s.cards[i] = domain.NewCatalogCard(e)
	}
	s.spreads = f.Spreads
	s.cardBack = f.CardBack
}

func validate(f document) error {
	if len(f.MajorArcana) != 22 {
		return fmt.Errorf("catalog has %d major arcana, want 22", len(f.MajorArcana))
	}
	seen := make(map[string]bool, len(f.MajorArcana))
	for _, e := range f.MajorArcana {
		if e.Name == "" {
			return fmt.Errorf("catalog entry with empty name")
		}
		id := domain.CatalogID(e.Name)
		if seen[id] {
			return fmt.Errorf("duplicate catalog card %q", e.Name)
		}
		seen[id] = true
	}
	for _, sp := range f.Spreads {
		if sp.CardCount < 1 || len(sp.Positions) != sp.CardCount {
			return fmt.Errorf("spread %q: %d positions for %d cards", sp.ID, len(sp.Positions), sp.CardCount)
		}
	}
	return nil
}

// Cards returns the catalog cards in canonical order.
func (s *EmbeddedStore) Cards(_ context.Context) ([]domain.Card, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Card, len(s.cards))
	copy(out, s.cards)
	return out, nil
}

func (s *EmbeddedStore) Spreads(_ context.Context) ([]domain.Spread, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Spread, len(s.spreads))
	copy(out, s.spreads)
	return out, nil
}

func (s *EmbeddedStore) Spread(_ context.Context, id string) (domain.Spread, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return domain.Spread{}, s.err
	}
	for _, sp := range s.spreads {
		if sp.ID == id {
			return sp, nil
		}
	}
	return domain.Spread{}, domain.ErrSpreadNotFound
}

// CardBack returns the artwork shown for face-down cards.
func (s *EmbeddedStore) CardBack(_ context.Context) (string, error) {
	s.once.Do(s.init)
	return s.cardBack, s.err
}
