// Package registry is the process-wide table of active transcription
// sessions, keyed by telephony session id. It is the only mutable state
// shared between concurrent call streams.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/logging"
	"github.com/coachline/coachline/pkg/metrics"
)

// ErrNoSession reports an audio frame for an unknown telephony session.
var ErrNoSession = errors.New("no active session")

// Session is the per-call transcription session as the registry and
// bridge see it.
type Session interface {
	Connect(ctx context.Context) error
	SendAudio(p []byte) error
	Close(ctx context.Context) error
}

// Factory builds the session for a call. Injected so tests can supply
// fakes and production wires the speech client.
type Factory func(call coach.CallRef) Session

type Registry struct {
	factory Factory
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]Session
}

func New(factory Factory, logger *slog.Logger) *Registry {
	return &Registry{
		factory:  factory,
		logger:   logging.NewComponentLogger(logger, "session_registry"),
		sessions: make(map[string]Session),
	}
}

// Start creates and connects the session for a call, storing it under the
// telephony session id. A second Start for the same id returns the
// existing session without creating another.
func (r *Registry) Start(ctx context.Context, callID, telephonySessionID string) (Session, error) {
	r.mu.Lock()
	if existing, ok := r.sessions[telephonySessionID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	sess := r.factory(coach.CallRef{CallID: callID, TelephonySessionID: telephonySessionID})
	r.sessions[telephonySessionID] = sess
	r.mu.Unlock()

	if err := sess.Connect(ctx); err != nil {
		r.remove(telephonySessionID, sess)
		return nil, err
	}
	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	r.logger.Info("session_started",
		slog.String("call_id", callID),
		slog.String("stream_id", telephonySessionID))
	return sess, nil
}

// Get looks up the active session for a telephony session id.
func (r *Registry) Get(telephonySessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[telephonySessionID]
	return sess, ok
}

// FeedAudio forwards one audio frame to the session for the given id.
func (r *Registry) FeedAudio(telephonySessionID string, frame []byte) error {
	sess, ok := r.Get(telephonySessionID)
	if !ok {
		return ErrNoSession
	}
	return sess.SendAudio(frame)
}

// Stop closes and removes the session. Absence is not an error, so
// teardown is idempotent.
func (r *Registry) Stop(ctx context.Context, telephonySessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[telephonySessionID]
	delete(r.sessions, telephonySessionID)
	r.mu.Unlock()
	if !ok {
		return
	}
	_ = sess.Close(ctx)
	metrics.SessionsActive.Dec()
	r.logger.Info("session_stopped", slog.String("stream_id", telephonySessionID))
}

// CloseAll stops every active session; used on shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Stop(ctx, id)
	}
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// remove deletes the entry only if it still maps to sess, so a failed
// connect never evicts a newer session racing under the same id.
func (r *Registry) remove(telephonySessionID string, sess Session) {
	r.mu.Lock()
	if current, ok := r.sessions[telephonySessionID]; ok && current == sess {
		delete(r.sessions, telephonySessionID)
	}
	r.mu.Unlock()
}
