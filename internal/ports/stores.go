package ports

import (
	"context"

	"github.com/randomtoy/mysticorb/internal/domain"
)

// CardStore persists generated cards keyed by id.
type CardStore interface {
	// Create inserts or replaces the card with card.ID.
	Create(ctx context.Context, card domain.Card) error
	Get(ctx context.Context, id string) (domain.Card, error)
	ListAll(ctx context.Context) ([]domain.Card, error)
}

// DeckStore persists the full deck list as a single record. It has no
// partial-update API: callers read, transform and write back the whole list.
type DeckStore interface {
	ListAll(ctx context.Context) ([]domain.Deck, error)
	ReplaceAll(ctx context.Context, decks []domain.Deck) error
}

// Catalog provides the fixed Major Arcana and spread definitions.
type Catalog interface {
	Cards(ctx context.Context) ([]domain.Card, error)
	Spreads(ctx context.Context) ([]domain.Spread, error)
	Spread(ctx context.Context, id string) (domain.Spread, error)
	CardBack(ctx context.Context) (string, error)
}
