package registry

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/coachline/coachline/pkg/coach"
)

type stubSession struct {
	connectErr error

	mu     sync.Mutex
	frames [][]byte
	closed int
}

func (s *stubSession) Connect(ctx context.Context) error { return s.connectErr }

func (s *stubSession) SendAudio(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, append([]byte(nil), p...))
	return nil
}

func (s *stubSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func newStubRegistry(connectErr error) (*Registry, *[]*stubSession) {
	var created []*stubSession
	var mu sync.Mutex
	factory := func(call coach.CallRef) Session {
		mu.Lock()
		defer mu.Unlock()
		sess := &stubSession{connectErr: connectErr}
		created = append(created, sess)
		return sess
	}
	return New(factory, nil), &created
}

func TestStartReturnsExistingSessionForDuplicateID(t *testing.T) {
	reg, created := newStubRegistry(nil)

	first, err := reg.Start(context.Background(), "rec-1", "MZ1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := reg.Start(context.Background(), "rec-1", "MZ1")
	if err != nil {
		t.Fatalf("duplicate start: %v", err)
	}
	if first != second {
		t.Fatalf("expected duplicate start to return the existing session")
	}
	if len(*created) != 1 {
		t.Fatalf("expected 1 session created, got %d", len(*created))
	}
	if reg.Count() != 1 {
		t.Fatalf("expected 1 active session, got %d", reg.Count())
	}
}

func TestStartConnectFailureLeavesNoEntry(t *testing.T) {
	reg, _ := newStubRegistry(errors.New("dial failed"))

	if _, err := reg.Start(context.Background(), "rec-1", "MZ1"); err == nil {
		t.Fatalf("expected connect error")
	}
	if reg.Count() != 0 {
		t.Fatalf("expected failed session removed, got %d active", reg.Count())
	}
	if _, ok := reg.Get("MZ1"); ok {
		t.Fatalf("expected no session under MZ1")
	}
}

func TestFeedAudioRoutesToTheRightSession(t *testing.T) {
	reg, created := newStubRegistry(nil)

	if _, err := reg.Start(context.Background(), "rec-1", "MZ1"); err != nil {
		t.Fatalf("start MZ1: %v", err)
	}
	if _, err := reg.Start(context.Background(), "rec-2", "MZ2"); err != nil {
		t.Fatalf("start MZ2: %v", err)
	}

	if err := reg.FeedAudio("MZ2", []byte{0x01, 0x02}); err != nil {
		t.Fatalf("feed audio: %v", err)
	}
	if err := reg.FeedAudio("MZ9", []byte{0xff}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for unknown stream, got %v", err)
	}

	first, second := (*created)[0], (*created)[1]
	first.mu.Lock()
	firstFrames := len(first.frames)
	first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()
	if firstFrames != 0 {
		t.Fatalf("expected no frames on MZ1, got %d", firstFrames)
	}
	if len(second.frames) != 1 || !bytes.Equal(second.frames[0], []byte{0x01, 0x02}) {
		t.Fatalf("unexpected frames on MZ2: %v", second.frames)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	reg, created := newStubRegistry(nil)

	if _, err := reg.Start(context.Background(), "rec-1", "MZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	reg.Stop(context.Background(), "MZ1")
	reg.Stop(context.Background(), "MZ1")

	if reg.Count() != 0 {
		t.Fatalf("expected 0 active sessions, got %d", reg.Count())
	}
	sess := (*created)[0]
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed != 1 {
		t.Fatalf("expected session closed exactly once, got %d", sess.closed)
	}
}

func TestCloseAllStopsEverySession(t *testing.T) {
	reg, created := newStubRegistry(nil)

	for _, id := range []string{"MZ1", "MZ2", "MZ3"} {
		if _, err := reg.Start(context.Background(), "rec-"+id, id); err != nil {
			t.Fatalf("start %s: %v", id, err)
		}
	}
	reg.CloseAll(context.Background())

	if reg.Count() != 0 {
		t.Fatalf("expected all sessions stopped, %d remain", reg.Count())
	}
	for i, sess := range *created {
		sess.mu.Lock()
		closed := sess.closed
		sess.mu.Unlock()
		if closed != 1 {
			t.Fatalf("session %d closed %d times", i, closed)
		}
	}
}
