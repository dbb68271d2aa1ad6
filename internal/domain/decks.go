package domain

import "slices"

// The functions below are the in-memory half of the deck store's
// read-modify-write cycle. They never mutate their inputs.

// AddDeck appends deck to decks.
func AddDeck(decks []Deck, deck Deck) []Deck {
	out := cloneDecks(decks)
	return append(out, deck)
}

// RemoveDeck drops the deck with deckID. The bool reports whether it existed.
func RemoveDeck(decks []Deck, deckID string) ([]Deck, bool) {
	out := make([]Deck, 0, len(decks))
	found := false
	for _, d := range decks {
		if d.ID == deckID {
			found = true
			continue
		}
		out = append(out, cloneDeck(d))
	}
	return out, found
}

// FindDeck returns the deck with deckID.
func FindDeck(decks []Deck, deckID string) (Deck, bool) {
	for _, d := range decks {
		if d.ID == deckID {
			return d, true
		}
	}
	return Deck{}, false
}

// ToggleCard removes cardID from the deck if present, otherwise appends it.
func ToggleCard(decks []Deck, deckID, cardID string) ([]Deck, error) {
	return updateDeck(decks, deckID, func(ids []string) []string {
		if i := slices.Index(ids, cardID); i >= 0 {
			return slices.Delete(ids, i, i+1)
		}
		return append(ids, cardID)
	})
}

// AddCard appends cardID unless the deck already holds it.
func AddCard(decks []Deck, deckID, cardID string) ([]Deck, error) {
	return updateDeck(decks, deckID, func(ids []string) []string {
		if slices.Contains(ids, cardID) {
			return ids
		}
		return append(ids, cardID)
	})
}

// MoveCard moves dragID to the slot overID occupied, shifting the cards in
// between. Unknown ids or dragID == overID leave the order unchanged.
func MoveCard(decks []Deck, deckID, dragID, overID string) ([]Deck, error) {
	return updateDeck(decks, deckID, func(ids []string) []string {
		from := slices.Index(ids, dragID)
		to := slices.Index(ids, overID)
		if from < 0 || to < 0 || from == to {
			return ids
		}
		ids = slices.Delete(ids, from, from+1)
		return slices.Insert(ids, to, dragID)
	})
}

func updateDeck(decks []Deck, deckID string, fn func([]string) []string) ([]Deck, error) {
	out := cloneDecks(decks)
	for i := range out {
		if out[i].ID == deckID {
			out[i].CardIDs = fn(out[i].CardIDs)
			return out, nil
		}
	}
	return nil, ErrDeckNotFound
}

func cloneDecks(decks []Deck) []Deck {
	out := make([]Deck, len(decks), len(decks)+1)
	for i, d := range decks {
		out[i] = cloneDeck(d)
	}
	return out
}

func cloneDeck(d Deck) Deck {
	d.CardIDs = slices.Clone(d.CardIDs)
	if d.CardIDs == nil {
		d.CardIDs = []string{}
	}
	return d
}
