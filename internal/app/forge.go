package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/randomtoy/mysticorb/internal/domain"
	"github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/id"
	"github.com/randomtoy/mysticorb/internal/ports"
)

// GenerateCardRequest describes a card to create. Empty Style and Palette
// fall back to the first entry of their lists.
type GenerateCardRequest struct {
	Name        string   `validate:"required,max=80"`
	Description string   `validate:"required,max=1000"`
	Style       string   `validate:"omitempty,artstyle"`
	Palette     string   `validate:"omitempty,palette"`
	DeckIDs     []string `validate:"dive,required"`
}

// CardForge turns a name and description into a stored generated card.
type CardForge struct {
	images   ports.ImageGenerator
	cards    ports.CardStore
	builder  *DeckBuilder
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewCardForge(images ports.ImageGenerator, cards ports.CardStore, builder *DeckBuilder, logger *slog.Logger) *CardForge {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "artstyle", func(fl validator.FieldLevel) bool {
		return domain.IsArtStyle(fl.Field().String())
	})
	mustRegister(v, "palette", func(fl validator.FieldLevel) bool {
		return domain.IsColorPalette(fl.Field().String())
	})

	return &CardForge{
		images:   images,
		cards:    cards,
		builder:  builder,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// GeneratedCard is a stored card and the requested decks it could not be
// added to. The card exists even when UnassignedDeckIDs is not empty.
type GeneratedCard struct {
	Card              domain.Card
	UnassignedDeckIDs []string
}

// Generate renders the card artwork, stores the card and adds it to the
// requested decks. Once the card is stored the call succeeds; deck
// membership failures are reported in the result.
func (f *CardForge) Generate(ctx context.Context, req GenerateCardRequest) (GeneratedCard, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := f.validate.Struct(req); err != nil {
		return GeneratedCard{}, validationError(err)
	}
	if req.Style == "" {
		req.Style = domain.ArtStyles[0]
	}
	if req.Palette == "" {
		req.Palette = domain.ColorPalettes[0]
	}

	if len(req.DeckIDs) > 0 {
		decks, err := f.builder.ListDecks(ctx)
		if err != nil {
			return GeneratedCard{}, err
		}
		for _, deckID := range req.DeckIDs {
			if _, ok := domain.FindDeck(decks, deckID); !ok {
				return GeneratedCard{}, deckNotFound(deckID)
			}
		}
	}

	prompt := domain.ComposeCardPrompt(req.Name, req.Description, req.Style, req.Palette)

	start := time.Now()
	img, err := f.images.GenerateImage(ctx, prompt)
	if err != nil {
		f.logger.ErrorContext(ctx, "image generation failed", "error", err)
		return GeneratedCard{}, errors.RequestFailure("failed to generate the card image", err)
	}

	cardID, err := id.Generate(id.PrefixCard)
	if err != nil {
		return GeneratedCard{}, errors.Internal("could not create card", err)
	}
	card := domain.NewGeneratedCard(cardID, req.Name, prompt, img.Data, img.MIMEType, f.now().UTC())

	if err := f.cards.Create(ctx, card); err != nil {
		return GeneratedCard{}, errors.Storage("could not save card", err)
	}
	f.logger.InfoContext(ctx, "card generated",
		"card_id", card.ID,
		"style", req.Style,
		"palette", req.Palette,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	out := GeneratedCard{Card: card}
	if len(req.DeckIDs) > 0 {
		unassigned, err := f.builder.AddCardToDecks(ctx, card.ID, req.DeckIDs)
		if err != nil {
			f.logger.WarnContext(ctx, "generated card not added to decks", "card_id", card.ID, "deck_ids", req.DeckIDs, "error", err)
			unassigned = req.DeckIDs
		}
		out.UnassignedDeckIDs = unassigned
	}
	return out, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Validation(err.Error())
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return errors.ValidationWithDetails("invalid card request", details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "artstyle":
		return "must be one of: " + strings.Join(domain.ArtStyles, ", ")
	case "palette":
		return "must be one of: " + strings.Join(domain.ColorPalettes, ", ")
	default:
		return "is invalid"
	}
}
