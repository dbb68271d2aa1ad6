package domain

// Collection is the unified addressable set of catalog and generated cards.
type Collection struct {
	cards []Card
	index map[string]int
}

// NewCollection places catalog cards first, in catalog order, followed by
// generated cards. A generated card reusing an id already present is shadowed.
func NewCollection(catalog, generated []Card) Collection {
	c := Collection{
		cards: make([]Card, 0, len(catalog)+len(generated)),
		index: make(map[string]int, len(catalog)+len(generated)),
	}
	for _, group := range [][]Card{catalog, generated} {
		for _, card := range group {
			if _, dup := c.index[card.ID]; dup {
				continue
			}
			c.index[card.ID] = len(c.cards)
			c.cards = append(c.cards, card)
		}
	}
	return c
}

// Cards returns every card in collection order.
func (c Collection) Cards() []Card {
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	return out
}

// Lookup resolves catalog-derived and generated ids uniformly.
func (c Collection) Lookup(id string) (Card, bool) {
	i, ok := c.index[id]
	if !ok {
		return Card{}, false
	}
	return c.cards[i], true
}

// CatalogOnly returns the catalog cards.
func (c Collection) CatalogOnly() []Card {
	var out []Card
	for _, card := range c.cards {
		if card.IsCatalog() {
			out = append(out, card)
		}
	}
	return out
}

// Resolution is the result of joining a deck against the collection.
type Resolution struct {
	Cards      []Card
	Unresolved int
}

// Resolve maps deck.CardIDs through Lookup, keeping their order and dropping
// ids that are not in the collection.
func (c Collection) Resolve(deck Deck) Resolution {
	r := Resolution{Cards: make([]Card, 0, len(deck.CardIDs))}
	for _, id := range deck.CardIDs {
		card, ok := c.Lookup(id)
		if !ok {
			r.Unresolved++
			continue
		}
		r.Cards = append(r.Cards, card)
	}
	return r
}
