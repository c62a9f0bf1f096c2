package channels

import (
	"context"
	"errors"
	"testing"
)

type stubChannel struct {
	name     string
	startErr error
	running  bool
	stopped  int
}

func (s *stubChannel) Name() string { return s.name }
func (s *stubChannel) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.running = true
	return nil
}
func (s *stubChannel) Stop(context.Context) error {
	s.running = false
	s.stopped++
	return nil
}
func (s *stubChannel) IsRunning() bool { return s.running }

func TestManager_StartStop(t *testing.T) {
	m := NewManager()
	ch := &stubChannel{name: "discord"}
	m.RegisterChannel(ch)

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if got, ok := m.GetChannel("discord"); !ok || !got.IsRunning() {
		t.Fatal("channel not running")
	}
	m.StopAll(context.Background())
	if ch.running || ch.stopped != 1 {
		t.Errorf("running=%v stopped=%d", ch.running, ch.stopped)
	}
}

func TestManager_StartFailure(t *testing.T) {
	m := NewManager()
	m.RegisterChannel(&stubChannel{name: "bad", startErr: errors.New("no token")})
	if err := m.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
}

func TestManager_NoChannels(t *testing.T) {
	if err := NewManager().StartAll(context.Background()); err == nil {
		t.Fatal("expected error with no channels")
	}
}
