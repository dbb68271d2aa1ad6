package http

import (
	"time"

	"github.com/randomtoy/mysticorb/internal/app"
	"github.com/randomtoy/mysticorb/internal/domain"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Readings int    `json:"readings"`
}

type CardResponse struct {
	ID         string          `json:"id"`
	Kind       domain.CardKind `json:"kind"`
	Name       string          `json:"name"`
	Prompt     string          `json:"prompt"`
	ArtworkURL string          `json:"artworkUrl"`
	MIMEType   string          `json:"mimeType,omitempty"`
	CreatedAt  *time.Time      `json:"createdAt,omitempty"`
}

// GeneratedCardResponse lists the requested decks the stored card could not
// be added to.
type GeneratedCardResponse struct {
	CardResponse
	UnassignedDeckIDs []string `json:"unassignedDeckIds,omitempty"`
}

type CatalogResponse struct {
	CardBack string         `json:"cardBack"`
	Cards    []CardResponse `json:"cards"`
}

type ArtOptionsResponse struct {
	Styles   []string `json:"styles"`
	Palettes []string `json:"palettes"`
}

type CollectionResponse struct {
	Selection  string         `json:"selection"`
	Cards      []CardResponse `json:"cards"`
	Unresolved int            `json:"unresolved"`
}

type DeckCardsResponse struct {
	Deck       domain.Deck    `json:"deck"`
	Cards      []CardResponse `json:"cards"`
	Unresolved int            `json:"unresolved"`
}

type ReadingResponse struct {
	ID              string                      `json:"id"`
	Kind            app.ReadingKind             `json:"kind"`
	State           app.State                   `json:"state"`
	Speech          app.SpeechState             `json:"speech"`
	Question        string                      `json:"question,omitempty"`
	Spread          *domain.Spread              `json:"spread,omitempty"`
	Cards           []CardResponse              `json:"cards"`
	Interpretations []domain.CardInterpretation `json:"interpretations"`
	Error           string                      `json:"error,omitempty"`
	RevealAt        *time.Time                  `json:"revealAt,omitempty"`
	FaceUp          bool                        `json:"faceUp"`
}

type SelectionResponse struct {
	DeckID string `json:"deckId"`
}

type CreateReadingRequest struct {
	Kind string `json:"kind"`
}

type QuestionRequest struct {
	Question string `json:"question"`
	Spread   string `json:"spread"`
}

type CreateDeckRequest struct {
	Name string `json:"name"`
}

type CardRefRequest struct {
	CardID string `json:"cardId"`
}

type MoveCardRequest struct {
	CardID     string `json:"cardId"`
	OverCardID string `json:"overCardId"`
}

type SelectionRequest struct {
	DeckID string `json:"deckId"`
}

type GenerateCardRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Style       string   `json:"style"`
	Palette     string   `json:"palette"`
	DeckIDs     []string `json:"deckIds"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func toCard(c domain.Card) CardResponse {
	out := CardResponse{
		ID:         c.ID,
		Kind:       c.Kind,
		Name:       c.Name,
		Prompt:     c.Prompt,
		ArtworkURL: c.ArtworkURL,
		MIMEType:   c.MIMEType,
	}
	if !c.IsCatalog() {
		out.ArtworkURL = "/v1/cards/" + c.ID + "/image"
	}
	if !c.CreatedAt.IsZero() {
		t := c.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

func toCards(cards []domain.Card) []CardResponse {
	out := make([]CardResponse, len(cards))
	for i, c := range cards {
		out[i] = toCard(c)
	}
	return out
}

func toReading(s app.Snapshot) ReadingResponse {
	out := ReadingResponse{
		ID:              s.ID,
		Kind:            s.Kind,
		State:           s.State,
		Speech:          s.Speech,
		Question:        s.Question,
		Spread:          s.Spread,
		Cards:           toCards(s.Cards),
		Interpretations: s.Interpretations,
		Error:           s.Error,
		FaceUp:          s.FaceUp,
	}
	if out.Interpretations == nil {
		out.Interpretations = []domain.CardInterpretation{}
	}
	if !s.RevealAt.IsZero() {
		t := s.RevealAt
		out.RevealAt = &t
	}
	return out
}
