package store

import (
	"errors"
	"testing"
	"time"
)

func TestEventRepository_CreateAndGet(t *testing.T) {
	events := newTestStore(t).Events()

	e := &Event{
		Gesture: "thumbs_down",
		Command: "pause",
		Label:   "PAUSE",
		Sink:    "spotify",
		Success: false,
		Error:   "no active device",
	}
	if err := events.Create(e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == "" {
		t.Fatal("Create() should assign an ID")
	}
	if e.CreatedAt.IsZero() {
		t.Fatal("Create() should stamp CreatedAt")
	}

	got, err := events.GetByID(e.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Gesture != e.Gesture || got.Command != e.Command || got.Label != e.Label ||
		got.Sink != e.Sink || got.Success != e.Success || got.Error != e.Error {
		t.Errorf("GetByID() = %+v, want %+v", got, e)
	}
	if got.CreatedAt.UnixMilli() != e.CreatedAt.UnixMilli() {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestEventRepository_GetByID_NotFound(t *testing.T) {
	_, err := newTestStore(t).Events().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestEventRepository_List(t *testing.T) {
	events := newTestStore(t).Events()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, cmd := range []string{"play", "volume_up", "volume_up", "next_track"} {
		err := events.Create(&Event{
			Gesture:   "x",
			Command:   cmd,
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := events.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("List(0) returned %d events, want 4", len(all))
	}
	if all[0].Command != "next_track" || all[3].Command != "play" {
		t.Errorf("List() not newest first: %s ... %s", all[0].Command, all[3].Command)
	}

	two, err := events.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(two) != 2 {
		t.Errorf("List(2) returned %d events", len(two))
	}
}

func TestEventRepository_ListEmpty(t *testing.T) {
	got, err := newTestStore(t).Events().List(10)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List() on empty table = %#v, want empty slice", got)
	}
}

func TestEventRepository_CountByCommand(t *testing.T) {
	events := newTestStore(t).Events()
	for _, cmd := range []string{"play", "volume_up", "volume_up", "pause"} {
		if err := events.Create(&Event{Gesture: "x", Command: cmd}); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := events.CountByCommand()
	if err != nil {
		t.Fatalf("CountByCommand() error = %v", err)
	}
	want := map[string]int{"play": 1, "volume_up": 2, "pause": 1}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	for cmd, n := range want {
		if counts[cmd] != n {
			t.Errorf("counts[%s] = %d, want %d", cmd, counts[cmd], n)
		}
	}
}

func TestEventRepository_DeleteOlderThan(t *testing.T) {
	events := newTestStore(t).Events()
	now := time.Now()

	old := &Event{Gesture: "x", Command: "play", CreatedAt: now.Add(-48 * time.Hour)}
	recent := &Event{Gesture: "x", Command: "pause", CreatedAt: now}
	for _, e := range []*Event{old, recent} {
		if err := events.Create(e); err != nil {
			t.Fatal(err)
		}
	}

	n, err := events.DeleteOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d events, want 1", n)
	}
	if _, err := events.GetByID(old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("old event should be gone")
	}
	if _, err := events.GetByID(recent.ID); err != nil {
		t.Errorf("recent event should remain: %v", err)
	}
}

func TestEventRepository_Clear(t *testing.T) {
	events := newTestStore(t).Events()
	for i := 0; i < 3; i++ {
		if err := events.Create(&Event{Gesture: "x", Command: "play"}); err != nil {
			t.Fatal(err)
		}
	}

	if err := events.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, err := events.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("List() after Clear = %d events", len(got))
	}
}
