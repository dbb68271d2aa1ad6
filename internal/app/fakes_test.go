package app_test

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/randomtoy/mysticorb/internal/audio"
	"github.com/randomtoy/mysticorb/internal/domain"
	"github.com/randomtoy/mysticorb/internal/ports"
)

var testCardNames = []string{"The Star", "The Fool", "The Magician", "The High Priestess", "The Moon"}

type fakeCatalog struct {
	cards   []domain.Card
	spreads []domain.Spread
	err     error
}

func newFakeCatalog() *fakeCatalog {
	c := &fakeCatalog{
		spreads: []domain.Spread{
			{ID: "single", Name: "Single Card", CardCount: 1, Positions: []string{"Insight"}},
			{ID: "ppf", Name: "Past, Present, Future", CardCount: 3, Positions: []string{"Past", "Present", "Future"}},
		},
	}
	for _, name := range testCardNames {
		c.cards = append(c.cards, domain.NewCatalogCard(domain.CatalogEntry{Name: name, ImageURL: "https://img/" + domain.Slug(name)}))
	}
	return c
}

func (c *fakeCatalog) Cards(context.Context) ([]domain.Card, error) {
	return slices.Clone(c.cards), c.err
}

func (c *fakeCatalog) Spreads(context.Context) ([]domain.Spread, error) {
	return slices.Clone(c.spreads), c.err
}

func (c *fakeCatalog) Spread(_ context.Context, spreadID string) (domain.Spread, error) {
	for _, s := range c.spreads {
		if s.ID == spreadID {
			return s, nil
		}
	}
	return domain.Spread{}, domain.ErrSpreadNotFound
}

func (c *fakeCatalog) CardBack(context.Context) (string, error) {
	return "https://img/back", c.err
}

type fakeCardStore struct {
	mu    sync.Mutex
	cards []domain.Card
	err   error
}

func (s *fakeCardStore) Create(_ context.Context, card domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.cards = append(s.cards, card)
	return nil
}

func (s *fakeCardStore) Get(_ context.Context, cardID string) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.ID == cardID {
			return c, nil
		}
	}
	return domain.Card{}, domain.ErrCardNotFound
}

func (s *fakeCardStore) ListAll(context.Context) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cards), s.err
}

type fakeDeckStore struct {
	mu      sync.Mutex
	decks   []domain.Deck
	readErr error
	saveErr error
}

func (s *fakeDeckStore) ListAll(context.Context) ([]domain.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]domain.Deck, len(s.decks))
	for i, d := range s.decks {
		d.CardIDs = slices.Clone(d.CardIDs)
		out[i] = d
	}
	return out, nil
}

func (s *fakeDeckStore) ReplaceAll(_ context.Context, decks []domain.Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.decks = decks
	return nil
}

type fakeInterpreter struct {
	mu    sync.Mutex
	calls []ports.InterpretInput
	fn    func(ctx context.Context, in ports.InterpretInput) (string, error)
}

func (f *fakeInterpreter) Interpret(ctx context.Context, in ports.InterpretInput) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	return f.fn(ctx, in)
}

func respond(raw string) *fakeInterpreter {
	return &fakeInterpreter{fn: func(context.Context, ports.InterpretInput) (string, error) { return raw, nil }}
}

type fakeSpeech struct {
	mu    sync.Mutex
	texts []string
	fn    func(ctx context.Context, text string) (audio.Clip, error)
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.fn == nil {
		return audio.Clip{SampleRate: audio.DefaultSampleRate, Channels: 1, Samples: []int16{1, 2, 3}}, nil
	}
	return f.fn(ctx, text)
}

type fakeImages struct {
	calls   int
	prompts []string
	err     error
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (ports.Image, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return ports.Image{}, f.err
	}
	return ports.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}, nil
}

// identityRNG makes Draw keep the input order.
type identityRNG struct{}

func (identityRNG) Intn(n int) int { return n - 1 }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}
