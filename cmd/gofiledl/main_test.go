package main

import (
	"context"
	"testing"
	"time"

	"github.com/ulukaya/gofiledl/internal/engine"
	"github.com/ulukaya/gofiledl/internal/hooks"
)

// recordingHook forwards every payload event to a channel.
type recordingHook struct {
	events chan hooks.Event
}

func (h *recordingHook) Name() string { return "recording" }

func (h *recordingHook) Execute(_ context.Context, p *hooks.Payload) error {
	h.events <- p.Event
	return nil
}

func newHookedCallbacks(t *testing.T) (engine.Callbacks, chan hooks.Event) {
	t.Helper()

	rec := &recordingHook{events: make(chan hooks.Event, 8)}
	mgr := hooks.NewManager()
	mgr.Add(rec)

	return withFileHooks(context.Background(), engine.Callbacks{}, mgr, "abc123"), rec.events
}

func waitEvent(t *testing.T, events chan hooks.Event) hooks.Event {
	t.Helper()

	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no hook event fired")
		return ""
	}
}

func TestWithFileHooks_CompleteEventOnSuccess(t *testing.T) {
	cb, events := newHookedCallbacks(t)

	cb.FileProgress("/dl/a.txt", 0, 10)
	cb.FileProgress("/dl/a.txt", 100, 10)

	if ev := waitEvent(t, events); ev != hooks.EventFileComplete {
		t.Errorf("event = %s, want %s", ev, hooks.EventFileComplete)
	}
}

func TestWithFileHooks_FailureSuppressesCompleteEvent(t *testing.T) {
	cb, events := newHookedCallbacks(t)

	cb.FileProgress("/dl/a.txt", 0, 10)
	cb.FileProgress("/dl/a.txt", engine.ProgressFailed, 10)
	// The trailing 100 the engine emits once the file is fully processed
	cb.FileProgress("/dl/a.txt", 100, 10)

	if ev := waitEvent(t, events); ev != hooks.EventFileFailed {
		t.Errorf("event = %s, want %s", ev, hooks.EventFileFailed)
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected %s event after a permanent failure", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
