package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/randomtoy/mysticorb/internal/audio"
	"github.com/randomtoy/mysticorb/internal/domain"
	"github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/interpretation"
	"github.com/randomtoy/mysticorb/internal/ports"
)

// DefaultSpreadID is used when a spread reading names no spread.
const DefaultSpreadID = "single"

// DefaultRevealDelay is the pause between a reading arriving and its cards
// turning face up.
const DefaultRevealDelay = 600 * time.Millisecond

// ReadingKind selects the reading flow.
type ReadingKind string

const (
	KindSpread ReadingKind = "spread"
	KindYesNo  ReadingKind = "yesno"
)

// ParseReadingKind accepts the two reading kinds.
func ParseReadingKind(s string) (ReadingKind, error) {
	switch ReadingKind(s) {
	case KindSpread, KindYesNo:
		return ReadingKind(s), nil
	default:
		return "", errors.Validation(fmt.Sprintf("unknown reading kind %q", s))
	}
}

// State is the reading lifecycle.
type State string

const (
	StateIdle                   State = "idle"
	StateDrawing                State = "drawing"
	StateAwaitingInterpretation State = "awaiting_interpretation"
	StateRevealed               State = "revealed"
	StateErrored                State = "errored"
)

// SpeechState tracks read-aloud playback.
type SpeechState string

const (
	SpeechSilent   SpeechState = "silent"
	SpeechSpeaking SpeechState = "speaking"
)

const (
	msgInterpretationFailed = "failed to consult the cosmos"
	msgYesNoFailed          = "failed to get a clear answer, the spirits are uncertain"
	msgSpeechFailed         = "failed to generate audio reading"
)

// ReadingDeps are the collaborators shared by every session.
type ReadingDeps struct {
	Catalog     ports.Catalog
	Interpreter ports.Interpreter
	Speech      ports.SpeechSynthesizer
	RNG         domain.RNG
	Now         func() time.Time
	RevealDelay time.Duration
	Logger      *slog.Logger
}

// Snapshot is a point-in-time copy of a session for rendering.
type Snapshot struct {
	ID              string
	Kind            ReadingKind
	State           State
	Speech          SpeechState
	Question        string
	Spread          *domain.Spread
	Cards           []domain.Card
	Interpretations []domain.CardInterpretation
	Error           string
	RevealAt        time.Time
	FaceUp          bool
}

// Session is one reading: draw, interpret, reveal, optionally read aloud.
// Only one submission may be in flight at a time.
type Session struct {
	id   string
	kind ReadingKind
	deps ReadingDeps

	mu              sync.Mutex
	state           State
	question        string
	spread          *domain.Spread
	cards           []domain.Card
	interpretations []domain.CardInterpretation
	errMsg          string
	revealAt        time.Time

	speech     SpeechState
	stopSpeech context.CancelFunc
	speechSeq  uint64
}

func NewSession(sessionID string, kind ReadingKind, deps ReadingDeps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		id:     sessionID,
		kind:   kind,
		deps:   deps,
		state:  StateIdle,
		speech: SpeechSilent,
	}
}

func (s *Session) ID() string { return s.id }

// Submit runs a full reading for question. spreadID is ignored by yes/no
// sessions. Validation and conflict errors leave the session untouched;
// interpretation failures move it to StateErrored and are also returned.
func (s *Session) Submit(ctx context.Context, question, spreadID string) (Snapshot, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Snapshot{}, errors.Validation("please enter a question")
	}

	spread, err := s.resolveSpread(ctx, spreadID)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.busy() {
		s.mu.Unlock()
		return Snapshot{}, errors.Conflict("a reading is already in progress")
	}
	s.stopSpeakingLocked()
	s.state = StateDrawing
	s.question = question
	s.spread = spread
	s.cards = nil
	s.interpretations = nil
	s.errMsg = ""
	s.revealAt = time.Time{}
	s.mu.Unlock()

	cards, in, err := s.draw(ctx, question, spread)
	if err != nil {
		return s.fail(ctx, err)
	}

	s.mu.Lock()
	s.cards = cards
	s.state = StateAwaitingInterpretation
	s.mu.Unlock()

	start := time.Now()
	raw, err := s.deps.Interpreter.Interpret(ctx, in)
	if err != nil {
		return s.fail(ctx, errors.RequestFailure(s.failureMessage(), err))
	}
	results, err := s.parse(raw, in)
	if err != nil {
		return s.fail(ctx, err)
	}

	s.mu.Lock()
	s.interpretations = results
	s.state = StateRevealed
	s.revealAt = s.deps.Now().Add(s.deps.RevealDelay)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.deps.Logger.InfoContext(ctx, "reading revealed",
		"session_id", s.id,
		"kind", s.kind,
		"cards", len(cards),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}

func (s *Session) resolveSpread(ctx context.Context, spreadID string) (*domain.Spread, error) {
	if s.kind == KindYesNo {
		return nil, nil
	}
	if spreadID == "" {
		spreadID = DefaultSpreadID
	}
	spread, err := s.deps.Catalog.Spread(ctx, spreadID)
	if errors.Is(err, domain.ErrSpreadNotFound) {
		return nil, errors.Validation(fmt.Sprintf("unknown spread %q", spreadID))
	}
	if err != nil {
		return nil, errors.Internal("could not load spreads", err)
	}
	return &spread, nil
}

func (s *Session) draw(ctx context.Context, question string, spread *domain.Spread) ([]domain.Card, ports.InterpretInput, error) {
	catalog, err := s.deps.Catalog.Cards(ctx)
	if err != nil {
		return nil, ports.InterpretInput{}, errors.Internal("could not load the card catalog", err)
	}

	n := 1
	if spread != nil {
		n = spread.CardCount
	}
	cards, err := domain.Draw(catalog, n, s.deps.RNG)
	if err != nil {
		return nil, ports.InterpretInput{}, errors.Internal("could not draw cards", err)
	}

	var in ports.InterpretInput
	if spread != nil {
		in, err = interpretation.BuildSpread(question, cards, *spread)
	} else {
		in, err = interpretation.BuildYesNo(question, cards[0])
	}
	if err != nil {
		return nil, ports.InterpretInput{}, err
	}
	return cards, in, nil
}

func (s *Session) parse(raw string, in ports.InterpretInput) ([]domain.CardInterpretation, error) {
	if s.kind == KindYesNo {
		rec, err := interpretation.ParseYesNo(raw, in)
		if err != nil {
			return nil, err
		}
		return []domain.CardInterpretation{rec}, nil
	}
	return interpretation.ParseSpread(raw, in)
}

func (s *Session) failureMessage() string {
	if s.kind == KindYesNo {
		return msgYesNoFailed
	}
	return msgInterpretationFailed
}

// fail discards partial results and records the user-facing message.
func (s *Session) fail(ctx context.Context, err error) (Snapshot, error) {
	msg := s.failureMessage()
	var derr *errors.Error
	if errors.As(err, &derr) && !errors.Is(err, errors.ErrRequestFailure) {
		msg = derr.Message
	}

	s.mu.Lock()
	s.state = StateErrored
	s.cards = nil
	s.interpretations = nil
	s.errMsg = msg
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.deps.Logger.ErrorContext(ctx, "reading failed", "session_id", s.id, "kind", s.kind, "error", err)
	if errors.Is(err, errors.ErrInterpretationParse) {
		err = errors.RequestFailure(msg, err)
	}
	return snap, err
}

// Reset returns a finished reading to idle.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return errors.Conflict("a reading is already in progress")
	}
	s.stopSpeakingLocked()
	s.state = StateIdle
	s.question = ""
	s.spread = nil
	s.cards = nil
	s.interpretations = nil
	s.errMsg = ""
	s.revealAt = time.Time{}
	return nil
}

// ReadAloud narrates the revealed reading. StopSpeaking or a new submission
// cancels it.
func (s *Session) ReadAloud(ctx context.Context) (audio.Clip, error) {
	s.mu.Lock()
	if s.state != StateRevealed {
		s.mu.Unlock()
		return audio.Clip{}, errors.Conflict("there is no revealed reading to read aloud")
	}
	text := s.narrationLocked()
	s.stopSpeakingLocked()

	speakCtx, cancel := context.WithCancel(ctx)
	s.speechSeq++
	seq := s.speechSeq
	s.speech = SpeechSpeaking
	s.stopSpeech = cancel
	s.mu.Unlock()

	clip, err := s.deps.Speech.Synthesize(speakCtx, text)

	s.mu.Lock()
	if s.speechSeq == seq {
		s.speech = SpeechSilent
		s.stopSpeech = nil
	}
	s.mu.Unlock()
	cancel()

	if err != nil {
		if speakCtx.Err() != nil && ctx.Err() == nil {
			return audio.Clip{}, errors.Conflict("reading aloud was stopped").WithCause(err)
		}
		s.deps.Logger.ErrorContext(ctx, "speech synthesis failed", "session_id", s.id, "error", err)
		return audio.Clip{}, errors.RequestFailure(msgSpeechFailed, err)
	}
	return clip, nil
}

// StopSpeaking cancels in-flight narration.
func (s *Session) StopSpeaking() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSpeakingLocked()
}

func (s *Session) stopSpeakingLocked() {
	if s.stopSpeech != nil {
		s.stopSpeech()
		s.stopSpeech = nil
	}
	s.speechSeq++
	s.speech = SpeechSilent
}

func (s *Session) narrationLocked() string {
	if s.kind == KindYesNo {
		return s.interpretations[0].Interpretation
	}
	lines := make([]string, len(s.interpretations))
	for i, r := range s.interpretations {
		lines[i] = r.Position + ": " + r.Interpretation
	}
	return strings.Join(lines, "\n")
}

// Snapshot returns a copy of the session for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:       s.id,
		Kind:     s.kind,
		State:    s.state,
		Speech:   s.speech,
		Question: s.question,
		Error:    s.errMsg,
		RevealAt: s.revealAt,
	}
	if s.spread != nil {
		sp := *s.spread
		sp.Positions = append([]string(nil), sp.Positions...)
		snap.Spread = &sp
	}
	if s.cards != nil {
		snap.Cards = append([]domain.Card(nil), s.cards...)
	}
	if s.interpretations != nil {
		snap.Interpretations = make([]domain.CardInterpretation, len(s.interpretations))
		for i, r := range s.interpretations {
			r.Keywords = append([]string(nil), r.Keywords...)
			snap.Interpretations[i] = r
		}
	}
	if s.state == StateRevealed {
		snap.FaceUp = !s.deps.Now().Before(s.revealAt)
	}
	return snap
}

func (s *Session) busy() bool {
	return s.state == StateDrawing || s.state == StateAwaitingInterpretation
}
