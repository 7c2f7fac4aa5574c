// Package playback carries gesture commands to a music player.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/handtune/internal/gesture"
)

var (
	// ErrUnsupportedCommand is returned by Dispatch for commands with no
	// playback call, such as entering volume mode.
	ErrUnsupportedCommand = errors.New("command has no playback action")
	// ErrNoActiveDevice is returned when the player has nothing to control.
	ErrNoActiveDevice = errors.New("no active playback device")
	// ErrClosed is returned by a sink after Close.
	ErrClosed = errors.New("sink closed")
)

// Status is the sink's last known player state.
type Status struct {
	Playing     bool   `json:"playing"`
	Volume      int    `json:"volume"`
	VolumeKnown bool   `json:"volume_known"`
	Device      string `json:"device,omitempty"`
}

// Sink is a playback backend.
type Sink interface {
	Name() string
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	// AdjustVolume changes the volume by delta percentage points.
	AdjustVolume(ctx context.Context, delta int) error
	// Status must not block; it returns cached state.
	Status() Status
	Close() error
}

// Dispatch runs cmd against sink. step is the volume change for the
// volume commands.
func Dispatch(ctx context.Context, sink Sink, cmd gesture.Command, step int) error {
	var err error
	switch cmd {
	case gesture.CommandPlay:
		err = sink.Play(ctx)
	case gesture.CommandPause:
		err = sink.Pause(ctx)
	case gesture.CommandNextTrack:
		err = sink.Next(ctx)
	case gesture.CommandPreviousTrack:
		err = sink.Previous(ctx)
	case gesture.CommandVolumeUp:
		err = sink.AdjustVolume(ctx, step)
	case gesture.CommandVolumeDown:
		err = sink.AdjustVolume(ctx, -step)
	default:
		return ErrUnsupportedCommand
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", sink.Name(), cmd, err)
	}
	return nil
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
