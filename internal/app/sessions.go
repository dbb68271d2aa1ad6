package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randomtoy/mysticorb/internal/errors"
	"github.com/randomtoy/mysticorb/internal/id"
)

// Registry defaults.
const (
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultMaxSessions    = 1000
)

// SessionLimits bounds the registry. Zero values take the defaults.
type SessionLimits struct {
	IdleTTL time.Duration
	Max     int
}

// Sessions keeps the live reading sessions by id. Sessions untouched for
// IdleTTL are swept on access; when Max sessions are live the least recently
// used one is evicted to make room.
type Sessions struct {
	deps    ReadingDeps
	idleTTL time.Duration
	max     int

	mu        sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
}

type entry struct {
	session  *Session
	lastUsed time.Time
}

func NewSessions(deps ReadingDeps, limits SessionLimits) *Sessions {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if limits.IdleTTL <= 0 {
		limits.IdleTTL = DefaultSessionIdleTTL
	}
	if limits.Max <= 0 {
		limits.Max = DefaultMaxSessions
	}
	return &Sessions{
		deps:     deps,
		idleTTL:  limits.IdleTTL,
		max:      limits.Max,
		sessions: make(map[string]*entry),
	}
}

// Open starts an idle session of the given kind.
func (r *Sessions) Open(ctx context.Context, kind ReadingKind) (*Session, error) {
	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, errors.Internal("could not start a reading", err)
	}
	s := NewSession(sessionID, kind, r.deps)

	r.mu.Lock()
	now := r.deps.Now()
	evicted := r.sweepLocked(now)
	if len(r.sessions) >= r.max {
		evicted = append(evicted, r.evictOldestLocked())
	}
	r.sessions[sessionID] = &entry{session: s, lastUsed: now}
	live := len(r.sessions)
	r.mu.Unlock()

	for _, old := range evicted {
		old.StopSpeaking()
	}
	if len(evicted) > 0 {
		r.deps.Logger.InfoContext(ctx, "reading sessions expired", "count", len(evicted), "live", live)
	}
	r.deps.Logger.DebugContext(ctx, "reading session opened", "session_id", sessionID, "kind", kind, "live", live)
	return s, nil
}

// Get returns the session and marks it used.
func (r *Sessions) Get(sessionID string) (*Session, error) {
	r.mu.Lock()
	now := r.deps.Now()
	evicted := r.sweepLocked(now)
	e, ok := r.sessions[sessionID]
	if ok {
		e.lastUsed = now
	}
	r.mu.Unlock()

	for _, old := range evicted {
		old.StopSpeaking()
	}
	if !ok {
		return nil, errors.NotFoundf("reading %q not found", sessionID)
	}
	return e.session, nil
}

// Close stops any narration and forgets the session.
func (r *Sessions) Close(sessionID string) error {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return errors.NotFoundf("reading %q not found", sessionID)
	}
	e.session.StopSpeaking()
	return nil
}

// Len reports the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Sessions) sweepLocked(now time.Time) []*Session {
	if now.Sub(r.lastSweep) < r.idleTTL/4 {
		return nil
	}
	r.lastSweep = now

	var evicted []*Session
	for sid, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.idleTTL {
			delete(r.sessions, sid)
			evicted = append(evicted, e.session)
		}
	}
	return evicted
}

func (r *Sessions) evictOldestLocked() *Session {
	var (
		oldestID string
		oldest   *entry
	)
	for sid, e := range r.sessions {
		if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = sid, e
		}
	}
	delete(r.sessions, oldestID)
	return oldest.session
}
