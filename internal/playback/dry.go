package playback

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DrySink simulates a player without touching the OS or any service. It is
// used by `handtune preview` to rehearse gestures.
type DrySink struct {
	logger *zap.Logger

	mu     sync.RWMutex
	status Status
}

// NewDrySink returns a paused player at volume 50.
func NewDrySink(logger *zap.Logger) *DrySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DrySink{
		logger: logger.Named("dry"),
		status: Status{Volume: 50, VolumeKnown: true, Device: "preview"},
	}
}

// Name implements Sink.
func (s *DrySink) Name() string { return "dry" }

func (s *DrySink) setPlaying(v bool, call string) error {
	s.mu.Lock()
	s.status.Playing = v
	s.mu.Unlock()
	s.logger.Info("simulated", zap.String("call", call))
	return nil
}

// Play implements Sink.
func (s *DrySink) Play(context.Context) error { return s.setPlaying(true, "play") }

// Pause implements Sink.
func (s *DrySink) Pause(context.Context) error { return s.setPlaying(false, "pause") }

// Next implements Sink.
func (s *DrySink) Next(context.Context) error {
	s.logger.Info("simulated", zap.String("call", "next"))
	return nil
}

// Previous implements Sink.
func (s *DrySink) Previous(context.Context) error {
	s.logger.Info("simulated", zap.String("call", "previous"))
	return nil
}

// AdjustVolume implements Sink.
func (s *DrySink) AdjustVolume(_ context.Context, delta int) error {
	s.mu.Lock()
	s.status.Volume = clampVolume(s.status.Volume + delta)
	v := s.status.Volume
	s.mu.Unlock()
	s.logger.Info("simulated", zap.String("call", "volume"), zap.Int("volume", v))
	return nil
}

// Status implements Sink.
func (s *DrySink) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Close implements Sink.
func (s *DrySink) Close() error { return nil }
