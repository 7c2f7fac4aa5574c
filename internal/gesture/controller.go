package gesture

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/handtune/internal/detector"
)

// Profile selects the gesture rules for a playback backend.
type Profile string

const (
	// ProfileMediaKeys drives OS media keys. Play and pause are one toggle key.
	ProfileMediaKeys Profile = "media"
	// ProfileSpotify drives the Spotify Web API and knows the playing state.
	ProfileSpotify Profile = "spotify"
)

// ErrUnknownProfile is returned by ParseProfile for unrecognised names.
var ErrUnknownProfile = errors.New("unknown profile")

// ParseProfile parses a profile name, case-insensitively.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case ProfileMediaKeys:
		return ProfileMediaKeys, nil
	case ProfileSpotify:
		return ProfileSpotify, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

// PlayPose returns the pose that starts playback under p.
func (p Profile) PlayPose() Pose {
	if p == ProfileSpotify {
		return PoseOpenPalm
	}
	return PoseFist
}

// Tuning holds the timing and distance thresholds of the controller.
// Distances are in pixels of a 640x480 frame.
type Tuning struct {
	Cooldown           time.Duration `yaml:"cooldown" json:"cooldown"`
	VolumeModeDuration time.Duration `yaml:"volume_mode_duration" json:"volume_mode_duration"`
	VolumeStep         int           `yaml:"volume_step" json:"volume_step"`
	SwipeWindow        int           `yaml:"swipe_window" json:"swipe_window"`
	SwipeHistoryCap    int           `yaml:"swipe_history_cap" json:"swipe_history_cap"`
	SwipeThreshold     float64       `yaml:"swipe_threshold" json:"swipe_threshold"`
}

// DefaultTuning returns the thresholds for a profile.
func DefaultTuning(p Profile) Tuning {
	t := Tuning{
		Cooldown:           1500 * time.Millisecond,
		VolumeModeDuration: 4 * time.Second,
		VolumeStep:         10,
		SwipeWindow:        10,
		SwipeHistoryCap:    20,
		SwipeThreshold:     80,
	}
	if p == ProfileSpotify {
		t.SwipeThreshold = 50
	}
	return t
}

// Validate reports the first out-of-range field.
func (t Tuning) Validate() error {
	switch {
	case t.Cooldown <= 0:
		return errors.New("cooldown must be positive")
	case t.VolumeModeDuration <= 0:
		return errors.New("volume_mode_duration must be positive")
	case t.VolumeStep <= 0 || t.VolumeStep > 100:
		return errors.New("volume_step must be between 1 and 100")
	case t.SwipeWindow <= 0:
		return errors.New("swipe_window must be positive")
	case t.SwipeHistoryCap <= t.SwipeWindow:
		return errors.New("swipe_history_cap must exceed swipe_window")
	case t.SwipeThreshold <= 0:
		return errors.New("swipe_threshold must be positive")
	}
	return nil
}

// Result is the outcome of one frame.
type Result struct {
	Pose    Pose    `json:"pose"`
	Label   string  `json:"label"`
	Command Command `json:"command"`
}

// State is a point-in-time view of the controller.
type State struct {
	Profile         Profile   `json:"profile"`
	VolumeMode      bool      `json:"volume_mode"`
	VolumeModeUntil time.Time `json:"volume_mode_until,omitempty"`
	SwipeLatched    bool      `json:"swipe_latched"`
	SwipeSamples    int       `json:"swipe_samples"`
}

// Controller is the gesture state machine. It holds no clock: callers pass
// the frame time to Update.
type Controller struct {
	mu      sync.Mutex
	profile Profile
	tuning  Tuning

	lastAction  time.Time
	volumeMode  bool
	volumeUntil time.Time
	history     []float64
	latched     bool
}

// NewController creates a controller for profile with the given tuning.
func NewController(profile Profile, tuning Tuning) *Controller {
	return &Controller{
		profile: profile,
		tuning:  tuning,
		history: make([]float64, 0, tuning.SwipeHistoryCap+1),
	}
}

// Profile returns the controller's profile.
func (c *Controller) Profile() Profile {
	return c.profile
}

// Tuning returns the active thresholds.
func (c *Controller) Tuning() Tuning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tuning
}

// SetTuning replaces the thresholds. Buffered swipe samples are kept.
func (c *Controller) SetTuning(t Tuning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tuning = t
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Profile:      c.profile,
		VolumeMode:   c.volumeMode,
		SwipeLatched: c.latched,
		SwipeSamples: len(c.history),
	}
	if c.volumeMode {
		s.VolumeModeUntil = c.volumeUntil
	}
	return s
}

// Reset drops volume mode and any swipe in progress. The cooldown is kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volumeMode = false
	c.volumeUntil = time.Time{}
	c.resetSwipe()
}

// Update advances the state machine by one frame. hand must be in pixel
// coordinates; nil means no hand is visible. playing is the sink's last
// known playback state and only matters to the Spotify profile.
func (c *Controller) Update(now time.Time, hand *detector.HandLandmarks, playing bool) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := Result{Pose: Classify(hand)}

	if c.volumeMode && now.After(c.volumeUntil) {
		c.volumeMode = false
		r.Label = LabelVolumeModeOff
		r.Command = CommandVolumeModeOff
	}

	if hand == nil {
		c.resetSwipe()
		return r
	}

	if c.profile == ProfileSpotify {
		c.updateSpotify(now, hand, playing, &r)
	} else {
		c.updateMediaKeys(now, hand, &r)
	}
	return r
}

func (c *Controller) updateMediaKeys(now time.Time, hand *detector.HandLandmarks, r *Result) {
	if c.volumeMode {
		c.adjustVolume(now, r)
		return
	}

	ready := c.offCooldown(now)
	switch {
	case ready && r.Pose == PoseThreeFingers:
		c.enterVolumeMode(now, r)
	case ready && r.Pose == c.profile.PlayPose():
		c.fire(now, r, CommandPlay, LabelPlay)
	case ready && r.Pose == PoseThumbsDown:
		c.fire(now, r, CommandPause, LabelPause)
	case ready && r.Pose == PosePeace:
		c.trackSwipe(now, hand, r)
	default:
		c.history = c.history[:0]
	}
}

func (c *Controller) updateSpotify(now time.Time, hand *detector.HandLandmarks, playing bool, r *Result) {
	if r.Pose == PosePeace {
		switch {
		case c.latched:
			r.Label = LabelSwipeDone
		case !c.volumeMode:
			if c.trackSwipe(now, hand, r) {
				c.latched = true
			}
		}
		return
	}

	c.resetSwipe()

	if c.volumeMode {
		c.adjustVolume(now, r)
		return
	}

	if !c.offCooldown(now) {
		return
	}
	switch {
	case r.Pose == PoseThreeFingers:
		c.enterVolumeMode(now, r)
	case r.Pose == c.profile.PlayPose() && !playing:
		c.fire(now, r, CommandPlay, LabelPlay)
	case r.Pose == PoseThumbsDown && playing:
		c.fire(now, r, CommandPause, LabelPause)
	}
}

// adjustVolume handles a frame while volume mode is active.
func (c *Controller) adjustVolume(now time.Time, r *Result) {
	r.Label = LabelVolumeMode
	if !c.offCooldown(now) {
		return
	}

	switch r.Pose {
	case PoseThumbsUp:
		c.fire(now, r, CommandVolumeUp, fmt.Sprintf("Vol +%d", c.tuning.VolumeStep))
	case PoseThumbsDown:
		c.fire(now, r, CommandVolumeDown, fmt.Sprintf("Vol -%d", c.tuning.VolumeStep))
	default:
		return
	}
	c.volumeUntil = now.Add(c.tuning.VolumeModeDuration)
}

func (c *Controller) enterVolumeMode(now time.Time, r *Result) {
	c.volumeMode = true
	c.volumeUntil = now.Add(c.tuning.VolumeModeDuration)
	c.fire(now, r, CommandVolumeModeOn, LabelVolumeModeOn)
}

// trackSwipe buffers the hand centre and reports whether a track change fired.
func (c *Controller) trackSwipe(now time.Time, hand *detector.HandLandmarks, r *Result) bool {
	c.history = append(c.history, hand.Center().X)
	if limit := c.tuning.SwipeHistoryCap; limit > 0 && len(c.history) > limit {
		c.history = append(c.history[:0], c.history[len(c.history)-limit:]...)
	}

	if len(c.history) > c.tuning.SwipeWindow {
		dx := c.history[len(c.history)-1] - c.history[0]
		switch {
		case dx > c.tuning.SwipeThreshold:
			c.fire(now, r, CommandNextTrack, LabelNextTrack)
		case dx < -c.tuning.SwipeThreshold:
			c.fire(now, r, CommandPreviousTrack, LabelPreviousTrack)
		}
		if r.Command == CommandNextTrack || r.Command == CommandPreviousTrack {
			c.history = c.history[:0]
			return true
		}
	}

	if r.Label == "" {
		r.Label = LabelReadyToSwipe
	}
	return false
}

func (c *Controller) fire(now time.Time, r *Result, cmd Command, label string) {
	r.Command = cmd
	r.Label = label
	c.lastAction = now
}

// offCooldown reports whether strictly more than Cooldown has passed since
// the last action.
func (c *Controller) offCooldown(now time.Time) bool {
	return now.Sub(c.lastAction) > c.tuning.Cooldown
}

func (c *Controller) resetSwipe() {
	c.history = c.history[:0]
	c.latched = false
}
