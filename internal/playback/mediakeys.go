package playback

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handtune/internal/plugin"
)

// MediaControlPlugin is the plugin name MediaKeySink drives.
const MediaControlPlugin = "media-control"

// DefaultVolumePoll is how often the OS volume is re-read.
const DefaultVolumePoll = time.Second

// Plugin actions.
const (
	actionPlayPause  = "media-play-pause"
	actionNext       = "media-next"
	actionPrev       = "media-prev"
	actionVolumeUp   = "volume-up"
	actionVolumeDown = "volume-down"
	actionVolumeGet  = "volume-get"
)

type volumeParams struct {
	Step int `json:"step"`
}

type volumeData struct {
	Volume *int `json:"volume"`
}

// MediaKeySink sends OS media keys through the media-control plugin.
// Play and Pause press the same toggle key, so Playing is a best guess.
type MediaKeySink struct {
	caller plugin.Caller
	logger *zap.Logger
	poll   time.Duration

	mu     sync.RWMutex
	status Status

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMediaKeySink creates a sink over caller. poll <= 0 uses DefaultVolumePoll.
func NewMediaKeySink(caller plugin.Caller, poll time.Duration, logger *zap.Logger) *MediaKeySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poll <= 0 {
		poll = DefaultVolumePoll
	}
	return &MediaKeySink{
		caller: caller,
		logger: logger.Named("mediakeys"),
		poll:   poll,
	}
}

// Name implements Sink.
func (s *MediaKeySink) Name() string { return "media" }

// Start reads the volume once and begins polling it. It never fails on an
// unreadable volume; the status then reports VolumeKnown=false.
func (s *MediaKeySink) Start(ctx context.Context) error {
	s.refreshVolume(ctx)

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.pollLoop(ctx)
	return nil
}

func (s *MediaKeySink) pollLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshVolume(ctx)
		}
	}
}

func (s *MediaKeySink) refreshVolume(ctx context.Context) {
	resp, err := s.caller.Call(ctx, actionVolumeGet, "", nil)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug("volume unavailable", zap.Error(err))
		}
		s.mu.Lock()
		s.status.VolumeKnown = false
		s.mu.Unlock()
		return
	}
	s.applyVolume(resp)
}

func (s *MediaKeySink) applyVolume(resp *plugin.Response) {
	var data volumeData
	if err := resp.Decode(&data); err != nil || data.Volume == nil {
		return
	}
	s.mu.Lock()
	s.status.Volume = clampVolume(*data.Volume)
	s.status.VolumeKnown = true
	s.mu.Unlock()
}

func (s *MediaKeySink) press(ctx context.Context, action, gesture string) error {
	_, err := s.caller.Call(ctx, action, gesture, nil)
	return err
}

// Play implements Sink.
func (s *MediaKeySink) Play(ctx context.Context) error {
	if err := s.press(ctx, actionPlayPause, "play"); err != nil {
		return err
	}
	s.setPlaying(true)
	return nil
}

// Pause implements Sink.
func (s *MediaKeySink) Pause(ctx context.Context) error {
	if err := s.press(ctx, actionPlayPause, "pause"); err != nil {
		return err
	}
	s.setPlaying(false)
	return nil
}

// Next implements Sink.
func (s *MediaKeySink) Next(ctx context.Context) error {
	return s.press(ctx, actionNext, "next_track")
}

// Previous implements Sink.
func (s *MediaKeySink) Previous(ctx context.Context) error {
	return s.press(ctx, actionPrev, "previous_track")
}

// AdjustVolume implements Sink.
func (s *MediaKeySink) AdjustVolume(ctx context.Context, delta int) error {
	if delta == 0 {
		return nil
	}
	action, gesture, step := actionVolumeUp, "volume_up", delta
	if delta < 0 {
		action, gesture, step = actionVolumeDown, "volume_down", -delta
	}

	resp, err := s.caller.Call(ctx, action, gesture, volumeParams{Step: step})
	if err != nil {
		return err
	}
	s.applyVolume(resp)
	return nil
}

// Status implements Sink.
func (s *MediaKeySink) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *MediaKeySink) setPlaying(v bool) {
	s.mu.Lock()
	s.status.Playing = v
	s.mu.Unlock()
}

// Close stops the volume poller.
func (s *MediaKeySink) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	return nil
}

