// Package app wires camera, detector, gesture controller and playback sink
// into the running handtune pipeline.
package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handtune/internal/capture"
	"github.com/ayusman/handtune/internal/detector"
	"github.com/ayusman/handtune/internal/gesture"
	"github.com/ayusman/handtune/internal/metrics"
	"github.com/ayusman/handtune/internal/playback"
	"github.com/ayusman/handtune/internal/sound"
	"github.com/ayusman/handtune/internal/store"
)

// Pipeline timing constants.
const (
	// FrameInterval is the frame loop period.
	FrameInterval = 15 * time.Millisecond
	// ActionQueueSize bounds commands waiting for the sink.
	ActionQueueSize = 8
	// ActionTimeout bounds a single sink call.
	ActionTimeout = 10 * time.Second
)

// settingEnabled is the settings key that remembers the Enabled toggle.
const settingEnabled = "enabled"

// ErrAlreadyRunning is returned by Start when the pipeline is running.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Config holds the components the pipeline drives.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Controller *gesture.Controller
	Sink       playback.Sink

	// Optional.
	Cues    sound.Player
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// Preview enables the HUD JPEG served by Frame.
	Preview bool
	// FrameInterval overrides the loop period.
	FrameInterval time.Duration
	// Now overrides the clock passed to the controller.
	Now func() time.Time
}

// Status is what the status page, tray and websocket clients see.
type Status struct {
	Enabled     bool            `json:"enabled"`
	Running     bool            `json:"running"`
	Profile     gesture.Profile `json:"profile"`
	Pose        gesture.Pose    `json:"pose"`
	Label       string          `json:"label"`
	Command     gesture.Command `json:"last_command,omitempty"`
	Volume      int             `json:"volume"`
	VolumeKnown bool            `json:"volume_known"`
	VolumeMode  bool            `json:"volume_mode"`
	Playing     bool            `json:"playing"`
	Sink        string          `json:"sink"`
	Device      string          `json:"device,omitempty"`
	FPS         float64         `json:"fps"`
	Timestamp   time.Time       `json:"timestamp"`
}

type action struct {
	cmd   gesture.Command
	pose  gesture.Pose
	label string
}

// App is the running pipeline.
type App struct {
	config  Config
	logger  *zap.Logger
	cues    sound.Player
	metrics *metrics.Metrics
	now     func() time.Time
	hub     *hub

	enabled bool
	running bool
	mu      sync.RWMutex

	status  Status
	frame   []byte
	frameNo uint64
	stateMu sync.RWMutex

	actions chan action
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates cfg and builds an App. Detection starts enabled unless the
// store remembers it was switched off.
func New(cfg Config) (*App, error) {
	switch {
	case cfg.Camera == nil:
		return nil, errors.New("app: camera is required")
	case cfg.Detector == nil:
		return nil, errors.New("app: detector is required")
	case cfg.Controller == nil:
		return nil, errors.New("app: controller is required")
	case cfg.Sink == nil:
		return nil, errors.New("app: playback sink is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Cues == nil {
		cfg.Cues = sound.Silent{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = FrameInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	a := &App{
		config:  cfg,
		logger:  cfg.Logger.Named("app"),
		cues:    cfg.Cues,
		metrics: cfg.Metrics,
		now:     cfg.Now,
		hub:     newHub(),
		enabled: true,
	}

	if cfg.Store != nil {
		if v, err := cfg.Store.Settings().Get(settingEnabled); err == nil {
			if b, err := strconv.ParseBool(v); err == nil {
				a.enabled = b
			}
		}
	}

	a.status = Status{
		Enabled: a.enabled,
		Profile: cfg.Controller.Profile(),
		Sink:    cfg.Sink.Name(),
	}
	return a, nil
}

// SetEnabled turns gesture processing on or off. The preview keeps
// running while disabled. Toggling clears volume mode and any swipe in
// progress.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	a.config.Controller.Reset()
	a.logger.Info("gesture control toggled", zap.Bool("enabled", enabled))

	if st := a.config.Store; st != nil {
		if err := st.Settings().Set(settingEnabled, strconv.FormatBool(enabled)); err != nil {
			a.logger.Warn("persist enabled flag", zap.Error(err))
		}
	}

	a.stateMu.Lock()
	a.status.Enabled = enabled
	if !enabled {
		a.status.Pose = gesture.PoseNone
		a.status.VolumeMode = false
	}
	snapshot := a.status
	a.stateMu.Unlock()
	a.hub.publish(snapshot)
}

// IsEnabled returns whether gesture processing is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning reports whether the frame loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Start opens the camera and launches the frame loop and action worker.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return ErrAlreadyRunning
	}
	if err := a.config.Camera.Open(); err != nil {
		return err
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.actions = make(chan action, ActionQueueSize)
	a.running = true

	a.wg.Add(2)
	go a.runPipeline(ctx)
	go a.runActions(ctx)

	a.stateMu.Lock()
	a.status.Running = true
	a.stateMu.Unlock()

	a.logger.Info("pipeline started",
		zap.String("profile", string(a.config.Controller.Profile())),
		zap.String("sink", a.config.Sink.Name()),
		zap.Bool("enabled", a.enabled),
	)
	return nil
}

// Run starts the pipeline and blocks until ctx is done, then stops it.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.Stop()
	return nil
}

// Stop halts the pipeline and releases camera, detector, sink and cues.
// It is safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.cancel()
	a.mu.Unlock()

	a.wg.Wait()

	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("close camera", zap.Error(err))
	}
	if err := a.config.Detector.Close(); err != nil {
		a.logger.Warn("close detector", zap.Error(err))
	}
	if err := a.config.Sink.Close(); err != nil {
		a.logger.Warn("close sink", zap.Error(err))
	}
	if err := a.cues.Close(); err != nil {
		a.logger.Warn("close sound", zap.Error(err))
	}

	a.stateMu.Lock()
	a.status.Running = false
	snapshot := a.status
	a.stateMu.Unlock()
	a.hub.publish(snapshot)

	a.logger.Info("pipeline stopped")
}

// Status returns the latest pipeline status.
func (a *App) Status() Status {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.status
}

// Subscribe returns a channel that receives status updates. Slow readers
// only see the newest status. Call the returned func to unsubscribe.
func (a *App) Subscribe() (<-chan Status, func()) {
	return a.hub.subscribe()
}

// Frame returns the latest preview JPEG and its sequence number. The
// sequence is zero until the first frame is encoded.
func (a *App) Frame() ([]byte, uint64) {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.frame, a.frameNo
}

// Controller returns the gesture state machine.
func (a *App) Controller() *gesture.Controller {
	return a.config.Controller
}

// SetTuning applies new controller thresholds, for config hot reload.
func (a *App) SetTuning(t gesture.Tuning) {
	a.config.Controller.SetTuning(t)
	a.logger.Info("gesture tuning updated",
		zap.Duration("cooldown", t.Cooldown),
		zap.Float64("swipe_threshold", t.SwipeThreshold),
	)
}

// Store returns the history store, or nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Metrics returns the pipeline metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}
