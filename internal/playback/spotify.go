package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
)

// DefaultRefresh is how often the Spotify worker re-reads playback state.
const DefaultRefresh = time.Second

// PlayerAPI is the subset of *spotify.Client the sink uses.
type PlayerAPI interface {
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Volume(ctx context.Context, percent int) error
	CurrentUser(ctx context.Context) (*spotify.PrivateUser, error)
}

var _ PlayerAPI = (*spotify.Client)(nil)

type spotifyJob struct {
	name string
	run  func(ctx context.Context) error
	done chan error
}

// SpotifySink controls Spotify Connect through the Web API. A single worker
// goroutine owns the API client: it runs queued commands in order and
// refreshes playback state between them.
type SpotifySink struct {
	api     PlayerAPI
	logger  *zap.Logger
	refresh time.Duration

	queue chan spotifyJob

	mu     sync.RWMutex
	status Status
	user   string

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// NewSpotifySink wraps api. refresh <= 0 uses DefaultRefresh.
func NewSpotifySink(api PlayerAPI, refresh time.Duration, logger *zap.Logger) *SpotifySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return &SpotifySink{
		api:     api,
		logger:  logger.Named("spotify"),
		refresh: refresh,
		queue:   make(chan spotifyJob, 8),
		closed:  make(chan struct{}),
	}
}

// Name implements Sink.
func (s *SpotifySink) Name() string { return "spotify" }

// User returns the display name of the authenticated account once started.
func (s *SpotifySink) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Start verifies the credentials by fetching the current user, reads the
// playback state once and launches the worker.
func (s *SpotifySink) Start(ctx context.Context) error {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("spotify: verify credentials: %w", err)
	}
	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	s.mu.Lock()
	s.user = name
	s.mu.Unlock()
	s.logger.Info("connected", zap.String("user", name))

	if err := s.refreshState(ctx); err != nil {
		s.logger.Warn("initial playback state", zap.Error(err))
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.worker(ctx)
	return nil
}

func (s *SpotifySink) worker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			err := job.run(ctx)
			if err != nil {
				s.logger.Warn("command failed", zap.String("command", job.name), zap.Error(err))
			}
			job.done <- err
		case <-ticker.C:
			if err := s.refreshState(ctx); err != nil && ctx.Err() == nil {
				s.logger.Debug("refresh playback state", zap.Error(err))
			}
		}
	}
}

// refreshState reads the current playback and caches is_playing and volume.
func (s *SpotifySink) refreshState(ctx context.Context) error {
	state, err := s.api.PlayerState(ctx)
	if err != nil {
		return err
	}
	s.applyState(state)
	return nil
}

func (s *SpotifySink) applyState(state *spotify.PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !hasDevice(state) {
		s.status = Status{}
		return
	}
	s.status = Status{
		Playing:     state.Playing,
		Volume:      clampVolume(int(state.Device.Volume)),
		VolumeKnown: true,
		Device:      state.Device.Name,
	}
}

func hasDevice(state *spotify.PlayerState) bool {
	return state != nil && state.Device.ID != ""
}

// submit hands a job to the worker and waits for its result.
func (s *SpotifySink) submit(ctx context.Context, name string, run func(ctx context.Context) error) error {
	job := spotifyJob{name: name, run: run, done: make(chan error, 1)}

	select {
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.queue <- job:
	}

	select {
	case err := <-job.done:
		return err
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play resumes playback unless the player is already playing.
func (s *SpotifySink) Play(ctx context.Context) error {
	return s.submit(ctx, "play", func(ctx context.Context) error {
		state, err := s.api.PlayerState(ctx)
		if err != nil {
			return err
		}
		if !hasDevice(state) {
			s.applyState(state)
			return ErrNoActiveDevice
		}
		if !state.Playing {
			if err := s.api.Play(ctx); err != nil {
				return err
			}
			state.Playing = true
		}
		s.applyState(state)
		return nil
	})
}

// Pause pauses playback if the player is playing.
func (s *SpotifySink) Pause(ctx context.Context) error {
	return s.submit(ctx, "pause", func(ctx context.Context) error {
		state, err := s.api.PlayerState(ctx)
		if err != nil {
			return err
		}
		if !hasDevice(state) {
			s.applyState(state)
			return ErrNoActiveDevice
		}
		if state.Playing {
			if err := s.api.Pause(ctx); err != nil {
				return err
			}
			state.Playing = false
		}
		s.applyState(state)
		return nil
	})
}

// Next skips to the next track.
func (s *SpotifySink) Next(ctx context.Context) error {
	return s.submit(ctx, "next", s.api.Next)
}

// Previous goes back to the previous track.
func (s *SpotifySink) Previous(ctx context.Context) error {
	return s.submit(ctx, "previous", s.api.Previous)
}

// AdjustVolume sets the device volume to the cached volume plus delta,
// clamped to 0..100.
func (s *SpotifySink) AdjustVolume(ctx context.Context, delta int) error {
	return s.submit(ctx, "volume", func(ctx context.Context) error {
		s.mu.RLock()
		st := s.status
		s.mu.RUnlock()

		if !st.VolumeKnown {
			return ErrNoActiveDevice
		}
		target := clampVolume(st.Volume + delta)
		if err := s.api.Volume(ctx, target); err != nil {
			return err
		}

		s.mu.Lock()
		s.status.Volume = target
		s.mu.Unlock()
		return nil
	})
}

// Status implements Sink.
func (s *SpotifySink) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Close stops the worker and waits for it to exit.
func (s *SpotifySink) Close() error {
	s.once.Do(func() {
		close(s.closed)
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
	return nil
}
