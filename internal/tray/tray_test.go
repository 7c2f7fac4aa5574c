package tray

import (
	"context"
	"testing"
	"time"

	"github.com/ayusman/handtune/internal/app"
)

func TestTitles(t *testing.T) {
	if got := toggleTitle(true); got != "● Enabled" {
		t.Errorf("toggleTitle(true) = %q", got)
	}
	if got := toggleTitle(false); got != "○ Disabled" {
		t.Errorf("toggleTitle(false) = %q", got)
	}
	if got := lastTitle(""); got != "Last: none" {
		t.Errorf("lastTitle(\"\") = %q", got)
	}
	if got := lastTitle("NEXT TRACK"); got != "Last: NEXT TRACK" {
		t.Errorf("lastTitle() = %q", got)
	}
	if got := volumeTitle(30, true); got != "Volume: 30%" {
		t.Errorf("volumeTitle(30) = %q", got)
	}
	if got := volumeTitle(30, false); got != "Volume: unknown" {
		t.Errorf("volumeTitle(unknown) = %q", got)
	}
}

func TestTray_Toggle(t *testing.T) {
	tr := New(true, "media")

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("expected enabled after two toggles")
	}
}

func TestTray_OpenStatus(t *testing.T) {
	tr := New(true, "spotify")
	called := false
	tr.OnOpenStatus(func() { called = true })
	tr.handleOpenStatus()
	if !called {
		t.Error("open status callback not called")
	}
}

func TestTray_Follow(t *testing.T) {
	tr := New(true, "media")
	updates := make(chan app.Status, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Follow(ctx, updates)
		close(done)
	}()

	updates <- app.Status{Enabled: false, Label: "PAUSE"}

	deadline := time.Now().Add(2 * time.Second)
	for tr.IsEnabled() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if tr.IsEnabled() {
		t.Error("Follow should apply the disabled state")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}
