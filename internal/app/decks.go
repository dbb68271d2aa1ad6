package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/randomtoy/mysticorb/internal/domain"
	"github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/id"
	"github.com/randomtoy/mysticorb/internal/ports"
)

// DeckBuilder manages user decks over the unified card collection.
//
// The deck store only offers whole-list reads and writes, so every mutation
// is a read-modify-write under mu. The active selection lives here too.
type DeckBuilder struct {
	catalog ports.Catalog
	cards   ports.CardStore
	decks   ports.DeckStore
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	selected string
}

func NewDeckBuilder(catalog ports.Catalog, cards ports.CardStore, decks ports.DeckStore, logger *slog.Logger) *DeckBuilder {
	return &DeckBuilder{
		catalog: catalog,
		cards:   cards,
		decks:   decks,
		logger:  logger,
		now:     time.Now,
	}
}

// Collection assembles catalog cards followed by every generated card.
func (b *DeckBuilder) Collection(ctx context.Context) (domain.Collection, error) {
	catalog, err := b.catalog.Cards(ctx)
	if err != nil {
		return domain.Collection{}, errors.Internal("could not load the card catalog", err)
	}
	generated, err := b.cards.ListAll(ctx)
	if err != nil {
		return domain.Collection{}, errors.Storage("could not load cards", err)
	}
	return domain.NewCollection(catalog, generated), nil
}

// ListDecks returns every deck in stored order.
func (b *DeckBuilder) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	decks, err := b.decks.ListAll(ctx)
	if err != nil {
		return nil, errors.Storage("could not load decks", err)
	}
	return decks, nil
}

// CreateDeck appends a new empty deck and selects it.
func (b *DeckBuilder) CreateDeck(ctx context.Context, name string) (domain.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Deck{}, errors.Validation("deck name is required")
	}

	deckID, err := id.Generate(id.PrefixDeck)
	if err != nil {
		return domain.Deck{}, errors.Internal("could not create deck", err)
	}
	deck := domain.Deck{ID: deckID, Name: name, CardIDs: []string{}, CreatedAt: b.now().UTC()}

	b.mu.Lock()
	defer b.mu.Unlock()

	decks, err := b.load(ctx)
	if err != nil {
		return domain.Deck{}, err
	}
	if err := b.save(ctx, domain.AddDeck(decks, deck)); err != nil {
		return domain.Deck{}, err
	}
	b.selected = deck.ID

	b.logger.InfoContext(ctx, "deck created", "deck_id", deck.ID, "name", deck.Name)
	return deck, nil
}

// DeleteDeck removes a deck. Deleting the selected deck clears the selection.
func (b *DeckBuilder) DeleteDeck(ctx context.Context, deckID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	decks, err := b.load(ctx)
	if err != nil {
		return err
	}
	next, found := domain.RemoveDeck(decks, deckID)
	if !found {
		return deckNotFound(deckID)
	}
	if err := b.save(ctx, next); err != nil {
		return err
	}
	if b.selected == deckID {
		b.selected = ""
	}

	b.logger.InfoContext(ctx, "deck deleted", "deck_id", deckID)
	return nil
}

// ToggleCard adds cardID to the deck or removes it if already present.
// Only cards from the collection can be added.
func (b *DeckBuilder) ToggleCard(ctx context.Context, deckID, cardID string) (domain.Deck, error) {
	return b.mutateWithCard(ctx, deckID, cardID, domain.ToggleCard)
}

// AddCard appends cardID unless the deck already holds it.
func (b *DeckBuilder) AddCard(ctx context.Context, deckID, cardID string) (domain.Deck, error) {
	return b.mutateWithCard(ctx, deckID, cardID, domain.AddCard)
}

// AddCardToDecks adds a freshly stored card to several decks in one write.
// Decks deleted in the meantime are skipped and returned as unassigned.
func (b *DeckBuilder) AddCardToDecks(ctx context.Context, cardID string, deckIDs []string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	decks, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	var unassigned []string
	for _, deckID := range deckIDs {
		next, err := domain.AddCard(decks, deckID, cardID)
		if errors.Is(err, domain.ErrDeckNotFound) {
			unassigned = append(unassigned, deckID)
			continue
		}
		if err != nil {
			return nil, err
		}
		decks = next
	}
	if len(unassigned) == len(deckIDs) {
		return unassigned, nil
	}
	if err := b.save(ctx, decks); err != nil {
		return nil, err
	}
	return unassigned, nil
}

// MoveCard moves dragID into the slot overID occupies.
func (b *DeckBuilder) MoveCard(ctx context.Context, deckID, dragID, overID string) (domain.Deck, error) {
	return b.mutate(ctx, deckID, func(decks []domain.Deck) ([]domain.Deck, error) {
		return domain.MoveCard(decks, deckID, dragID, overID)
	})
}

func (b *DeckBuilder) mutateWithCard(ctx context.Context, deckID, cardID string,
	fn func([]domain.Deck, string, string) ([]domain.Deck, error),
) (domain.Deck, error) {
	coll, err := b.Collection(ctx)
	if err != nil {
		return domain.Deck{}, err
	}
	return b.mutate(ctx, deckID, func(decks []domain.Deck) ([]domain.Deck, error) {
		// Removing a dangling id is still allowed so stale members can be cleaned up.
		if deck, ok := domain.FindDeck(decks, deckID); ok && !deck.Contains(cardID) {
			if _, ok := coll.Lookup(cardID); !ok {
				return nil, errors.NotFoundf("card %q not found", cardID)
			}
		}
		return fn(decks, deckID, cardID)
	})
}

func (b *DeckBuilder) mutate(ctx context.Context, deckID string, fn func([]domain.Deck) ([]domain.Deck, error)) (domain.Deck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	decks, err := b.load(ctx)
	if err != nil {
		return domain.Deck{}, err
	}
	next, err := fn(decks)
	if errors.Is(err, domain.ErrDeckNotFound) {
		return domain.Deck{}, deckNotFound(deckID)
	}
	if err != nil {
		return domain.Deck{}, err
	}
	if err := b.save(ctx, next); err != nil {
		return domain.Deck{}, err
	}

	deck, _ := domain.FindDeck(next, deckID)
	return deck, nil
}

// ResolveDeck joins the deck's members against the collection, dropping
// ids with no card.
func (b *DeckBuilder) ResolveDeck(ctx context.Context, deckID string) (domain.Deck, domain.Resolution, error) {
	decks, err := b.ListDecks(ctx)
	if err != nil {
		return domain.Deck{}, domain.Resolution{}, err
	}
	deck, ok := domain.FindDeck(decks, deckID)
	if !ok {
		return domain.Deck{}, domain.Resolution{}, deckNotFound(deckID)
	}
	coll, err := b.Collection(ctx)
	if err != nil {
		return domain.Deck{}, domain.Resolution{}, err
	}
	return deck, b.resolve(ctx, coll, deck), nil
}

func (b *DeckBuilder) resolve(ctx context.Context, coll domain.Collection, deck domain.Deck) domain.Resolution {
	res := coll.Resolve(deck)
	if res.Unresolved > 0 {
		b.logger.WarnContext(ctx, "deck references unknown cards", "deck_id", deck.ID, "unresolved", res.Unresolved)
	}
	return res
}

// Select makes deckID the active view. An empty id clears the selection;
// domain.CatalogPresetID selects the catalog-only view.
func (b *DeckBuilder) Select(ctx context.Context, deckID string) error {
	if deckID != "" && deckID != domain.CatalogPresetID {
		decks, err := b.ListDecks(ctx)
		if err != nil {
			return err
		}
		if _, ok := domain.FindDeck(decks, deckID); !ok {
			return deckNotFound(deckID)
		}
	}

	b.mu.Lock()
	b.selected = deckID
	b.mu.Unlock()
	return nil
}

// Selection returns the active deck id, or "" when none is selected.
func (b *DeckBuilder) Selection() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// View is the card list shown for the current selection.
type View struct {
	Selection  string
	Cards      []domain.Card
	Unresolved int
}

// View returns the full collection when nothing is selected, the catalog for
// the preset, or the resolved members of the selected deck.
func (b *DeckBuilder) View(ctx context.Context) (View, error) {
	selected := b.Selection()

	coll, err := b.Collection(ctx)
	if err != nil {
		return View{}, err
	}

	switch selected {
	case "":
		return View{Cards: coll.Cards()}, nil
	case domain.CatalogPresetID:
		return View{Selection: selected, Cards: coll.CatalogOnly()}, nil
	}

	decks, err := b.ListDecks(ctx)
	if err != nil {
		return View{}, err
	}
	deck, ok := domain.FindDeck(decks, selected)
	if !ok {
		// Removed behind our back; fall back to the full collection.
		return View{Cards: coll.Cards()}, nil
	}
	res := b.resolve(ctx, coll, deck)
	return View{Selection: selected, Cards: res.Cards, Unresolved: res.Unresolved}, nil
}

func (b *DeckBuilder) load(ctx context.Context) ([]domain.Deck, error) {
	decks, err := b.decks.ListAll(ctx)
	if err != nil {
		return nil, errors.Storage("could not load decks", err)
	}
	return decks, nil
}

func (b *DeckBuilder) save(ctx context.Context, decks []domain.Deck) error {
	if err := b.decks.ReplaceAll(ctx, decks); err != nil {
		return errors.Storage("could not save decks", err)
	}
	return nil
}

func deckNotFound(deckID string) error {
	return errors.NotFoundf("deck %q not found", deckID).WithCause(domain.ErrDeckNotFound)
}
