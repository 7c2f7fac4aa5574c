package playback

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ayusman/handtune/internal/gesture"
	"github.com/ayusman/handtune/internal/plugin"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingSink records every call made through Dispatch.
type recordingSink struct {
	calls []string
	delta int
	err   error
}

func (r *recordingSink) Name() string { return "recording" }
func (r *recordingSink) Play(context.Context) error {
	r.calls = append(r.calls, "play")
	return r.err
}
func (r *recordingSink) Pause(context.Context) error {
	r.calls = append(r.calls, "pause")
	return r.err
}
func (r *recordingSink) Next(context.Context) error {
	r.calls = append(r.calls, "next")
	return r.err
}
func (r *recordingSink) Previous(context.Context) error {
	r.calls = append(r.calls, "previous")
	return r.err
}
func (r *recordingSink) AdjustVolume(_ context.Context, delta int) error {
	r.calls = append(r.calls, "volume")
	r.delta = delta
	return r.err
}
func (r *recordingSink) Status() Status { return Status{} }
func (r *recordingSink) Close() error   { return nil }

func TestDispatch(t *testing.T) {
	tests := []struct {
		cmd       gesture.Command
		wantCall  string
		wantDelta int
	}{
		{gesture.CommandPlay, "play", 0},
		{gesture.CommandPause, "pause", 0},
		{gesture.CommandNextTrack, "next", 0},
		{gesture.CommandPreviousTrack, "previous", 0},
		{gesture.CommandVolumeUp, "volume", 10},
		{gesture.CommandVolumeDown, "volume", -10},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			sink := &recordingSink{}
			if err := Dispatch(context.Background(), sink, tt.cmd, 10); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if len(sink.calls) != 1 || sink.calls[0] != tt.wantCall {
				t.Errorf("calls = %v, want [%s]", sink.calls, tt.wantCall)
			}
			if sink.delta != tt.wantDelta {
				t.Errorf("delta = %d, want %d", sink.delta, tt.wantDelta)
			}
		})
	}

	t.Run("cue-only commands", func(t *testing.T) {
		sink := &recordingSink{}
		for _, cmd := range []gesture.Command{gesture.CommandVolumeModeOn, gesture.CommandVolumeModeOff, gesture.CommandNone} {
			if err := Dispatch(context.Background(), sink, cmd, 10); !errors.Is(err, ErrUnsupportedCommand) {
				t.Errorf("Dispatch(%q) error = %v, want ErrUnsupportedCommand", cmd, err)
			}
		}
		if len(sink.calls) != 0 {
			t.Errorf("unexpected calls %v", sink.calls)
		}
	})

	t.Run("sink errors are wrapped", func(t *testing.T) {
		sink := &recordingSink{err: ErrNoActiveDevice}
		err := Dispatch(context.Background(), sink, gesture.CommandPlay, 10)
		if !errors.Is(err, ErrNoActiveDevice) {
			t.Errorf("Dispatch() error = %v, want ErrNoActiveDevice", err)
		}
	})
}

// fakeCaller stands in for the media-control plugin.
type fakeCaller struct {
	mu      sync.Mutex
	volume  int
	noVol   bool
	actions []string
	params  []any
}

func (f *fakeCaller) Call(_ context.Context, action, _ string, params any) (*plugin.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.actions = append(f.actions, action)
	f.params = append(f.params, params)

	switch action {
	case actionVolumeGet:
		if f.noVol {
			return nil, plugin.ErrActionFailed
		}
		return volumeResponse(f.volume), nil
	case actionVolumeUp, actionVolumeDown:
		step := params.(volumeParams).Step
		if action == actionVolumeDown {
			step = -step
		}
		f.volume = clampVolume(f.volume + step)
		return volumeResponse(f.volume), nil
	}
	return &plugin.Response{Success: true}, nil
}

func (f *fakeCaller) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.actions {
		if a == action {
			n++
		}
	}
	return n
}

func volumeResponse(v int) *plugin.Response {
	data, _ := json.Marshal(map[string]int{"volume": v})
	return &plugin.Response{Success: true, Data: data}
}

func TestMediaKeySink(t *testing.T) {
	caller := &fakeCaller{volume: 40}
	sink := NewMediaKeySink(caller, time.Hour, nil)

	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sink.Close()

	if st := sink.Status(); !st.VolumeKnown || st.Volume != 40 {
		t.Fatalf("status after start = %+v", st)
	}

	ctx := context.Background()
	if err := sink.Play(ctx); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !sink.Status().Playing {
		t.Error("expected playing after Play")
	}
	if err := sink.Pause(ctx); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if sink.Status().Playing {
		t.Error("expected paused after Pause")
	}
	if got := caller.count(actionPlayPause); got != 2 {
		t.Errorf("play-pause presses = %d, want 2", got)
	}

	sink.Next(ctx)
	sink.Previous(ctx)
	if caller.count(actionNext) != 1 || caller.count(actionPrev) != 1 {
		t.Errorf("actions = %v", caller.actions)
	}

	if err := sink.AdjustVolume(ctx, 10); err != nil {
		t.Fatalf("AdjustVolume() error = %v", err)
	}
	if st := sink.Status(); st.Volume != 50 {
		t.Errorf("volume = %d, want 50", st.Volume)
	}
	if err := sink.AdjustVolume(ctx, -70); err != nil {
		t.Fatalf("AdjustVolume() error = %v", err)
	}
	if st := sink.Status(); st.Volume != 0 {
		t.Errorf("volume = %d, want clamped 0", st.Volume)
	}
}

func TestMediaKeySink_PollsVolume(t *testing.T) {
	caller := &fakeCaller{volume: 10}
	sink := NewMediaKeySink(caller, 10*time.Millisecond, nil)
	sink.Start(context.Background())

	caller.mu.Lock()
	caller.volume = 70
	caller.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for sink.Status().Volume != 70 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := sink.Status().Volume; got != 70 {
		t.Errorf("polled volume = %d, want 70", got)
	}

	if err := sink.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// A second Close is a no-op.
	sink.Close()
}

func TestMediaKeySink_VolumeUnknown(t *testing.T) {
	sink := NewMediaKeySink(&fakeCaller{noVol: true}, time.Hour, nil)
	sink.Start(context.Background())
	defer sink.Close()

	if sink.Status().VolumeKnown {
		t.Error("expected VolumeKnown=false when the plugin cannot read volume")
	}
}

func TestMediaKeySink_CloseWithoutStart(t *testing.T) {
	if err := NewMediaKeySink(&fakeCaller{}, 0, nil).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
