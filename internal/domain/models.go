package domain

import (
	"strings"
	"time"
)

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// CardKind discriminates catalog cards from generated ones.
type CardKind string

const (
	KindCatalog   CardKind = "catalog"
	KindGenerated CardKind = "generated"
)

const (
	// CatalogIDPrefix marks ids derived from the fixed catalog.
	CatalogIDPrefix = "major-arcana-"
	// CatalogPrompt is the prompt placeholder carried by catalog cards.
	CatalogPrompt = "Official Major Arcana Card"
	// CatalogPresetID selects the catalog-only view in the deck builder.
	CatalogPresetID = "major-arcana-preset"
)

// CatalogEntry is one of the 22 fixed Major Arcana entries.
type CatalogEntry struct {
	Name     string `toml:"name" json:"name"`
	ImageURL string `toml:"image_url" json:"imageUrl"`
}

// Card is either a catalog card or a generated card. Kind is set by the
// constructors and never inferred from which fields are populated.
type Card struct {
	ID         string    `json:"id"`
	Kind       CardKind  `json:"kind"`
	Name       string    `json:"name"`
	Prompt     string    `json:"prompt"`
	ArtworkURL string    `json:"artworkUrl,omitempty"`
	Image      []byte    `json:"-"`
	MIMEType   string    `json:"mimeType,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
}

// NewCatalogCard derives the addressable card for a catalog entry.
func NewCatalogCard(e CatalogEntry) Card {
	return Card{
		ID:         CatalogID(e.Name),
		Kind:       KindCatalog,
		Name:       e.Name,
		Prompt:     CatalogPrompt,
		ArtworkURL: e.ImageURL,
	}
}

// NewGeneratedCard builds a user-created card from generated artwork.
func NewGeneratedCard(id, name, prompt string, image []byte, mimeType string, createdAt time.Time) Card {
	return Card{
		ID:        id,
		Kind:      KindGenerated,
		Name:      name,
		Prompt:    prompt,
		Image:     image,
		MIMEType:  mimeType,
		CreatedAt: createdAt,
	}
}

// IsCatalog reports whether c came from the fixed catalog.
func (c Card) IsCatalog() bool { return c.Kind == KindCatalog }

// CatalogID returns the reserved-prefix slug id of a catalog card name,
// e.g. "The High Priestess" -> "major-arcana-the-high-priestess".
func CatalogID(name string) string {
	return CatalogIDPrefix + Slug(name)
}

// Slug lowercases s and replaces whitespace runs with a single hyphen.
func Slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// Deck is a user-named ordered collection of card references.
type Deck struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CardIDs   []string  `json:"cardIds"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Contains reports whether cardID is a member of d.
func (d Deck) Contains(cardID string) bool {
	for _, id := range d.CardIDs {
		if id == cardID {
			return true
		}
	}
	return false
}

// Spread is a named card layout.
type Spread struct {
	ID        string   `toml:"id" json:"id"`
	Name      string   `toml:"name" json:"name"`
	CardCount int      `toml:"card_count" json:"cardCount"`
	Positions []string `toml:"positions" json:"positions"`
}

// CardInterpretation is one parsed entry of an interpretation response.
// Position is empty for yes/no readings.
type CardInterpretation struct {
	Position       string   `json:"position,omitempty"`
	CardName       string   `json:"cardName" validate:"required"`
	Keywords       []string `json:"keywords" validate:"required,min=1,dive,required"`
	Interpretation string   `json:"interpretation" validate:"required"`
}
