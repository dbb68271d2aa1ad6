package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/randomtoy/mysticorb/internal/app"
	"github.com/randomtoy/mysticorb/internal/domain"
	"github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/ports"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Catalog  ports.Catalog
	Cards    ports.CardStore
	Builder  *app.DeckBuilder
	Forge    *app.CardForge
	Sessions *app.Sessions
	Limiter  *RateLimiter
	Logger   *slog.Logger
}

type Handler struct {
	catalog  ports.Catalog
	cards    ports.CardStore
	builder  *app.DeckBuilder
	forge    *app.CardForge
	sessions *app.Sessions
	limiter  *RateLimiter
	logger   *slog.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Limiter == nil {
		d.Limiter = NewRateLimiter(0, 1)
	}
	return &Handler{
		catalog:  d.Catalog,
		cards:    d.Cards,
		builder:  d.Builder,
		forge:    d.Forge,
		sessions: d.Sessions,
		limiter:  d.Limiter,
		logger:   d.Logger,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	v1 := e.Group("/v1")
	v1.GET("/catalog", h.Catalog)
	v1.GET("/spreads", h.Spreads)
	v1.GET("/art-options", h.ArtOptions)

	v1.POST("/readings", h.CreateReading)
	v1.GET("/readings/:id", h.GetReading)
	v1.DELETE("/readings/:id", h.CloseReading)
	v1.POST("/readings/:id/question", h.AskQuestion)
	v1.POST("/readings/:id/speech", h.ReadAloud)
	v1.DELETE("/readings/:id/speech", h.StopSpeaking)

	v1.GET("/collection", h.Collection)
	v1.POST("/cards", h.GenerateCard, RateLimitMiddleware(h.limiter, h.logger))
	v1.GET("/cards/:id/image", h.CardImage)

	v1.GET("/decks", h.ListDecks)
	v1.POST("/decks", h.CreateDeck)
	v1.DELETE("/decks/:id", h.DeleteDeck)
	v1.GET("/decks/:id/cards", h.DeckCards)
	v1.POST("/decks/:id/cards", h.AddDeckCard)
	v1.POST("/decks/:id/cards/:cardId/toggle", h.ToggleDeckCard)
	v1.PUT("/decks/:id/order", h.MoveDeckCard)

	v1.GET("/selection", h.GetSelection)
	v1.PUT("/selection", h.PutSelection)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Readings: h.sessions.Len()})
}

func (h *Handler) Catalog(c echo.Context) error {
	ctx := c.Request().Context()
	cards, err := h.catalog.Cards(ctx)
	if err != nil {
		return h.mapError(c, err)
	}
	back, err := h.catalog.CardBack(ctx)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, CatalogResponse{CardBack: back, Cards: toCards(cards)})
}

func (h *Handler) Spreads(c echo.Context) error {
	spreads, err := h.catalog.Spreads(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, spreads)
}

func (h *Handler) ArtOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, ArtOptionsResponse{Styles: domain.ArtStyles, Palettes: domain.ColorPalettes})
}

func (h *Handler) CreateReading(c echo.Context) error {
	var req CreateReadingRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	kind, err := app.ParseReadingKind(req.Kind)
	if err != nil {
		return h.mapError(c, err)
	}
	s, err := h.sessions.Open(c.Request().Context(), kind)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toReading(s.Snapshot()))
}

func (h *Handler) GetReading(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toReading(s.Snapshot()))
}

func (h *Handler) CloseReading(c echo.Context) error {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AskQuestion(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	snap, err := s.Submit(c.Request().Context(), req.Question, req.Spread)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toReading(snap))
}

func (h *Handler) ReadAloud(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	clip, err := s.ReadAloud(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}
	wav, err := clip.WAV()
	if err != nil {
		return h.mapError(c, errors.ErrInternal.WithCause(err))
	}
	return c.Blob(http.StatusOK, "audio/wav", wav)
}

func (h *Handler) StopSpeaking(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	s.StopSpeaking()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Collection(c echo.Context) error {
	view, err := h.builder.View(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, CollectionResponse{
		Selection:  view.Selection,
		Cards:      toCards(view.Cards),
		Unresolved: view.Unresolved,
	})
}

func (h *Handler) GenerateCard(c echo.Context) error {
	var req GenerateCardRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	res, err := h.forge.Generate(c.Request().Context(), app.GenerateCardRequest{
		Name:        req.Name,
		Description: req.Description,
		Style:       req.Style,
		Palette:     req.Palette,
		DeckIDs:     req.DeckIDs,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, GeneratedCardResponse{
		CardResponse:      toCard(res.Card),
		UnassignedDeckIDs: res.UnassignedDeckIDs,
	})
}

func (h *Handler) CardImage(c echo.Context) error {
	card, err := h.cards.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, domain.ErrCardNotFound) {
		return h.mapError(c, errors.NotFoundf("card %q not found", c.Param("id")))
	}
	if err != nil {
		return h.mapError(c, errors.Storage("could not load card", err))
	}
	return c.Blob(http.StatusOK, card.MIMEType, card.Image)
}

func (h *Handler) ListDecks(c echo.Context) error {
	decks, err := h.builder.ListDecks(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, decks)
}

func (h *Handler) CreateDeck(c echo.Context) error {
	var req CreateDeckRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	deck, err := h.builder.CreateDeck(c.Request().Context(), req.Name)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, deck)
}

func (h *Handler) DeleteDeck(c echo.Context) error {
	if err := h.builder.DeleteDeck(c.Request().Context(), c.Param("id")); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeckCards(c echo.Context) error {
	deck, res, err := h.builder.ResolveDeck(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, DeckCardsResponse{Deck: deck, Cards: toCards(res.Cards), Unresolved: res.Unresolved})
}

func (h *Handler) AddDeckCard(c echo.Context) error {
	var req CardRefRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if req.CardID == "" {
		return h.mapError(c, errors.Validation("cardId is required"))
	}
	deck, err := h.builder.AddCard(c.Request().Context(), c.Param("id"), req.CardID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, deck)
}

func (h *Handler) ToggleDeckCard(c echo.Context) error {
	deck, err := h.builder.ToggleCard(c.Request().Context(), c.Param("id"), c.Param("cardId"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, deck)
}

func (h *Handler) MoveDeckCard(c echo.Context) error {
	var req MoveCardRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	deck, err := h.builder.MoveCard(c.Request().Context(), c.Param("id"), req.CardID, req.OverCardID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, deck)
}

func (h *Handler) GetSelection(c echo.Context) error {
	return c.JSON(http.StatusOK, SelectionResponse{DeckID: h.builder.Selection()})
}

func (h *Handler) PutSelection(c echo.Context) error {
	var req SelectionRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := h.builder.Select(c.Request().Context(), req.DeckID); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, SelectionResponse{DeckID: req.DeckID})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
}

// mapError renders err as one user-facing message.
func (h *Handler) mapError(c echo.Context, err error) error {
	requestID, _ := c.Get("request_id").(string)
	ctx := c.Request().Context()

	var derr *errors.Error
	if !errors.As(err, &derr) {
		h.logger.ErrorContext(ctx, "internal error", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	switch derr.Code {
	case errors.CodeValidation:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: derr.Message, Details: derr.Details})
	case errors.CodeNotFound, errors.CodeConflict:
		return c.JSON(derr.HTTPStatus(), ErrorResponse{Error: derr.Message})
	case errors.CodeRequestFailure:
		h.logger.WarnContext(ctx, "upstream failure", "request_id", requestID, "error", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: derr.Message})
	case errors.CodeInterpretationParse:
		h.logger.WarnContext(ctx, "malformed interpretation", "request_id", requestID, "error", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "failed to consult the cosmos"})
	case errors.CodeStorage:
		h.logger.ErrorContext(ctx, "storage failure", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: derr.Message})
	default:
		h.logger.ErrorContext(ctx, "internal error", "request_id", requestID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
