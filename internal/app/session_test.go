package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomtoy/mysticorb/internal/app"
	"github.com/randomtoy/mysticorb/internal/audio"
	domainerrors "github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/ports"
)

const starReading = `{"position":"Insight","cardName":"The Star","keywords":["hope","renewal","healing"],"interpretation":"Love is closer than you think, cher."}`

func newTestSession(kind app.ReadingKind, interp ports.Interpreter, speech ports.SpeechSynthesizer, clock *fakeClock) *app.Session {
	return app.NewSession("sess-test", kind, app.ReadingDeps{
		Catalog:     newFakeCatalog(),
		Interpreter: interp,
		Speech:      speech,
		RNG:         identityRNG{},
		Now:         clock.Now,
		RevealDelay: app.DefaultRevealDelay,
		Logger:      discardLogger(),
	})
}

func TestSession_SingleCardReading(t *testing.T) {
	clock := newFakeClock()
	var session *app.Session
	var during app.Snapshot

	interp := &fakeInterpreter{fn: func(context.Context, ports.InterpretInput) (string, error) {
		during = session.Snapshot()
		return "[" + starReading + "]", nil
	}}
	session = newTestSession(app.KindSpread, interp, &fakeSpeech{}, clock)
	assert.Equal(t, app.StateIdle, session.Snapshot().State)

	snap, err := session.Submit(context.Background(), "Will I find love?", "single")
	require.NoError(t, err)

	assert.Equal(t, app.StateAwaitingInterpretation, during.State)
	require.Len(t, during.Cards, 1)

	assert.Equal(t, app.StateRevealed, snap.State)
	require.Len(t, snap.Cards, 1)
	assert.Equal(t, "The Star", snap.Cards[0].Name)
	require.Len(t, snap.Interpretations, 1)
	assert.Equal(t, "Insight", snap.Interpretations[0].Position)
	assert.Len(t, snap.Interpretations[0].Keywords, 3)
	assert.Equal(t, "Single Card", snap.Spread.Name)

	require.Len(t, interp.calls, 1)
	assert.Equal(t, "Will I find love?", interp.calls[0].Question)
	assert.Equal(t, ports.ModeSpread, interp.calls[0].Mode)

	assert.False(t, snap.FaceUp)
	assert.Equal(t, clock.Now().Add(600*time.Millisecond), snap.RevealAt)
	clock.Advance(600 * time.Millisecond)
	assert.True(t, session.Snapshot().FaceUp)
}

func TestSession_DefaultsToSingleSpread(t *testing.T) {
	session := newTestSession(app.KindSpread, respond("["+starReading+"]"), &fakeSpeech{}, newFakeClock())

	snap, err := session.Submit(context.Background(), "Will I find love?", "")
	require.NoError(t, err)
	assert.Equal(t, "single", snap.Spread.ID)
}

func TestSession_ThreeCardSpread(t *testing.T) {
	raw := `[
		{"position":"Past","cardName":"The Star","keywords":["hope"],"interpretation":"a"},
		{"position":"Present","cardName":"The Fool","keywords":["leap"],"interpretation":"b"},
		{"position":"Future","cardName":"The Magician","keywords":["will"],"interpretation":"c"}
	]`
	session := newTestSession(app.KindSpread, respond(raw), &fakeSpeech{}, newFakeClock())

	snap, err := session.Submit(context.Background(), "What lies ahead?", "ppf")
	require.NoError(t, err)

	require.Len(t, snap.Cards, 3)
	seen := map[string]bool{}
	for _, c := range snap.Cards {
		assert.False(t, seen[c.ID], "duplicate card %s", c.ID)
		seen[c.ID] = true
	}
	assert.Equal(t, "Future", snap.Interpretations[2].Position)
}

func TestSession_YesNoIgnoresSpread(t *testing.T) {
	interp := respond(`{"cardName":"The Star","keywords":["yes","hope","light"],"interpretation":"The signs lean yes."}`)
	session := newTestSession(app.KindYesNo, interp, &fakeSpeech{}, newFakeClock())

	snap, err := session.Submit(context.Background(), "Should I move?", "ppf")
	require.NoError(t, err)

	assert.Equal(t, app.StateRevealed, snap.State)
	assert.Nil(t, snap.Spread)
	require.Len(t, snap.Cards, 1)
	require.Len(t, snap.Interpretations, 1)
	assert.Empty(t, snap.Interpretations[0].Position)
	assert.Equal(t, ports.ModeYesNo, interp.calls[0].Mode)
}

func TestSession_BlankQuestion(t *testing.T) {
	interp := respond("[]")
	session := newTestSession(app.KindSpread, interp, &fakeSpeech{}, newFakeClock())

	_, err := session.Submit(context.Background(), "   \t", "single")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, app.StateIdle, session.Snapshot().State)
	assert.Empty(t, interp.calls)
}

func TestSession_UnknownSpread(t *testing.T) {
	session := newTestSession(app.KindSpread, respond("[]"), &fakeSpeech{}, newFakeClock())

	_, err := session.Submit(context.Background(), "Where to?", "celtic-cross")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, app.StateIdle, session.Snapshot().State)
}

func TestSession_MalformedResponseErrors(t *testing.T) {
	tests := map[string]string{
		"not json":         "the stars are silent",
		"missing keywords": `[{"position":"Insight","cardName":"The Star","interpretation":"x"}]`,
		"wrong card":       `[{"position":"Insight","cardName":"The Moon","keywords":["a"],"interpretation":"x"}]`,
		"object not array": starReading,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			session := newTestSession(app.KindSpread, respond(raw), &fakeSpeech{}, newFakeClock())

			snap, err := session.Submit(context.Background(), "Will I find love?", "single")
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrInterpretationParse)
			assert.ErrorIs(t, err, domainerrors.ErrRequestFailure)

			assert.Equal(t, app.StateErrored, snap.State)
			assert.Empty(t, snap.Cards)
			assert.Empty(t, snap.Interpretations)
			assert.Equal(t, "failed to consult the cosmos", snap.Error)
		})
	}
}

func TestSession_YesNoFailureMessage(t *testing.T) {
	for name, interp := range map[string]*fakeInterpreter{
		"upstream error": {fn: func(context.Context, ports.InterpretInput) (string, error) {
			return "", errors.New("upstream status 500")
		}},
		"malformed": respond(`{"cardName":"The Star"}`),
	} {
		t.Run(name, func(t *testing.T) {
			session := newTestSession(app.KindYesNo, interp, &fakeSpeech{}, newFakeClock())

			snap, err := session.Submit(context.Background(), "Should I move?", "")
			assert.ErrorIs(t, err, domainerrors.ErrRequestFailure)
			assert.Equal(t, app.StateErrored, snap.State)
			assert.Equal(t, "failed to get a clear answer, the spirits are uncertain", snap.Error)
		})
	}
}

func TestSession_InterpreterFailureThenRetry(t *testing.T) {
	fail := true
	interp := &fakeInterpreter{fn: func(context.Context, ports.InterpretInput) (string, error) {
		if fail {
			return "", errors.New("upstream status 503")
		}
		return "[" + starReading + "]", nil
	}}
	session := newTestSession(app.KindSpread, interp, &fakeSpeech{}, newFakeClock())

	_, err := session.Submit(context.Background(), "Will I find love?", "single")
	require.ErrorIs(t, err, domainerrors.ErrRequestFailure)
	assert.NotErrorIs(t, err, domainerrors.ErrInterpretationParse)
	assert.Equal(t, app.StateErrored, session.Snapshot().State)

	fail = false
	snap, err := session.Submit(context.Background(), "Will I find love?", "single")
	require.NoError(t, err)
	assert.Equal(t, app.StateRevealed, snap.State)
	assert.Empty(t, snap.Error)
}

func TestSession_RejectsResubmissionWhileAwaiting(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	interp := &fakeInterpreter{fn: func(context.Context, ports.InterpretInput) (string, error) {
		close(entered)
		<-release
		return "[" + starReading + "]", nil
	}}
	session := newTestSession(app.KindSpread, interp, &fakeSpeech{}, newFakeClock())

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(context.Background(), "Will I find love?", "single")
		done <- err
	}()
	<-entered

	_, err := session.Submit(context.Background(), "Again?", "single")
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.ErrorIs(t, session.Reset(), domainerrors.ErrConflict)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "Will I find love?", session.Snapshot().Question)
	assert.Len(t, interp.calls, 1)
}

func TestSession_Reset(t *testing.T) {
	session := newTestSession(app.KindSpread, respond("["+starReading+"]"), &fakeSpeech{}, newFakeClock())
	_, err := session.Submit(context.Background(), "Will I find love?", "single")
	require.NoError(t, err)

	require.NoError(t, session.Reset())
	snap := session.Snapshot()
	assert.Equal(t, app.StateIdle, snap.State)
	assert.Empty(t, snap.Cards)
	assert.Empty(t, snap.Question)
}

func TestSession_ReadAloud(t *testing.T) {
	raw := `[
		{"position":"Past","cardName":"The Star","keywords":["hope"],"interpretation":"It was hard."},
		{"position":"Present","cardName":"The Fool","keywords":["leap"],"interpretation":"Jump."},
		{"position":"Future","cardName":"The Magician","keywords":["will"],"interpretation":"You make it."}
	]`
	speech := &fakeSpeech{}
	session := newTestSession(app.KindSpread, respond(raw), speech, newFakeClock())

	_, err := session.ReadAloud(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	_, err = session.Submit(context.Background(), "What lies ahead?", "ppf")
	require.NoError(t, err)

	clip, err := session.ReadAloud(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2, 3}, clip.Samples)
	require.Len(t, speech.texts, 1)
	assert.Equal(t, "Past: It was hard.\nPresent: Jump.\nFuture: You make it.", speech.texts[0])
	assert.Equal(t, app.SpeechSilent, session.Snapshot().Speech)
}

func TestSession_StopSpeakingCancels(t *testing.T) {
	started := make(chan struct{})
	speech := &fakeSpeech{fn: func(ctx context.Context, _ string) (audio.Clip, error) {
		close(started)
		<-ctx.Done()
		return audio.Clip{}, ctx.Err()
	}}
	session := newTestSession(app.KindSpread, respond("["+starReading+"]"), speech, newFakeClock())
	_, err := session.Submit(context.Background(), "Will I find love?", "single")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := session.ReadAloud(context.Background())
		done <- err
	}()
	<-started
	assert.Equal(t, app.SpeechSpeaking, session.Snapshot().Speech)

	session.StopSpeaking()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domainerrors.ErrConflict)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadAloud did not return after StopSpeaking")
	}
	assert.Equal(t, app.SpeechSilent, session.Snapshot().Speech)
	assert.Equal(t, app.StateRevealed, session.Snapshot().State)
}

func TestSession_SpeechFailure(t *testing.T) {
	speech := &fakeSpeech{fn: func(context.Context, string) (audio.Clip, error) {
		return audio.Clip{}, errors.New("tts unavailable")
	}}
	session := newTestSession(app.KindYesNo, respond(`{"cardName":"The Star","keywords":["yes"],"interpretation":"Yes, cher."}`), speech, newFakeClock())
	_, err := session.Submit(context.Background(), "Is it time?", "")
	require.NoError(t, err)

	_, err = session.ReadAloud(context.Background())
	require.ErrorIs(t, err, domainerrors.ErrRequestFailure)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "failed to generate audio reading", derr.Message)
	assert.Equal(t, []string{"Yes, cher."}, speech.texts)
}

func TestSnapshot_IsACopy(t *testing.T) {
	session := newTestSession(app.KindSpread, respond("["+starReading+"]"), &fakeSpeech{}, newFakeClock())
	snap, err := session.Submit(context.Background(), "Will I find love?", "single")
	require.NoError(t, err)

	snap.Interpretations[0].Keywords[0] = "mutated"
	snap.Cards[0].Name = "mutated"

	fresh := session.Snapshot()
	assert.Equal(t, "hope", fresh.Interpretations[0].Keywords[0])
	assert.Equal(t, "The Star", fresh.Cards[0].Name)
}

func TestParseReadingKind(t *testing.T) {
	kind, err := app.ParseReadingKind("yesno")
	require.NoError(t, err)
	assert.Equal(t, app.KindYesNo, kind)

	_, err = app.ParseReadingKind("celtic")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSessions_Registry(t *testing.T) {
	reg := app.NewSessions(app.ReadingDeps{Catalog: newFakeCatalog(), RNG: identityRNG{}, Logger: discardLogger()}, app.SessionLimits{})

	s, err := reg.Open(context.Background(), app.KindSpread)
	require.NoError(t, err)
	assert.Regexp(t, `^sess-`, s.ID())
	assert.Equal(t, 1, reg.Len())

	got, err := reg.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, reg.Close(s.ID()))
	_, err = reg.Get(s.ID())
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.ErrorIs(t, reg.Close(s.ID()), domainerrors.ErrNotFound)
}

func TestSessions_IdleSessionsExpire(t *testing.T) {
	clock := newFakeClock()
	reg := app.NewSessions(app.ReadingDeps{
		Catalog: newFakeCatalog(), RNG: identityRNG{}, Now: clock.Now, Logger: discardLogger(),
	}, app.SessionLimits{IdleTTL: time.Hour})
	ctx := context.Background()

	stale, err := reg.Open(ctx, app.KindSpread)
	require.NoError(t, err)
	kept, err := reg.Open(ctx, app.KindYesNo)
	require.NoError(t, err)

	clock.Advance(40 * time.Minute)
	_, err = reg.Get(kept.ID())
	require.NoError(t, err)

	clock.Advance(40 * time.Minute)
	_, err = reg.Get(stale.ID())
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	got, err := reg.Get(kept.ID())
	require.NoError(t, err)
	assert.Same(t, kept, got)
	assert.Equal(t, 1, reg.Len())
}

func TestSessions_CapEvictsLeastRecentlyUsed(t *testing.T) {
	clock := newFakeClock()
	reg := app.NewSessions(app.ReadingDeps{
		Catalog: newFakeCatalog(), RNG: identityRNG{}, Now: clock.Now, Logger: discardLogger(),
	}, app.SessionLimits{IdleTTL: time.Hour, Max: 3})
	ctx := context.Background()

	var ids []string
	for range 3 {
		s, err := reg.Open(ctx, app.KindSpread)
		require.NoError(t, err)
		ids = append(ids, s.ID())
		clock.Advance(time.Second)
	}
	_, err := reg.Get(ids[0])
	require.NoError(t, err)

	for range 100 {
		_, err := reg.Open(ctx, app.KindSpread)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 3, reg.Len())

	_, err = reg.Get(ids[1])
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
