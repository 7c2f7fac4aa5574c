package gesture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/handtune/internal/detector"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

const frameMs = 15

// swipe feeds n peace frames starting at start, moving the hand centre by
// step (normalized) each frame, and returns every result.
func swipe(c *Controller, startMs int, from, step float64, n int, playing bool) []Result {
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		hand := px(detector.PeaceLandmarks(from + float64(i)*step))
		results[i] = c.Update(at(startMs+i*frameMs), hand, playing)
	}
	return results
}

func commands(results []Result) []Command {
	var out []Command
	for _, r := range results {
		if r.Command != CommandNone {
			out = append(out, r.Command)
		}
	}
	return out
}

func newMedia() *Controller {
	return NewController(ProfileMediaKeys, DefaultTuning(ProfileMediaKeys))
}

func newSpotify() *Controller {
	return NewController(ProfileSpotify, DefaultTuning(ProfileSpotify))
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"media", ProfileMediaKeys, false},
		{"Spotify", ProfileSpotify, false},
		{" spotify ", ProfileSpotify, false},
		{"winamp", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProfile(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProfile) {
					t.Errorf("ParseProfile() error = %v, want ErrUnknownProfile", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProfile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseProfile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultTuning(t *testing.T) {
	media := DefaultTuning(ProfileMediaKeys)
	if media.Cooldown != 1500*time.Millisecond || media.VolumeModeDuration != 4*time.Second {
		t.Errorf("unexpected media timings: %+v", media)
	}
	if media.SwipeThreshold != 80 {
		t.Errorf("media swipe threshold = %v, want 80", media.SwipeThreshold)
	}
	if got := DefaultTuning(ProfileSpotify).SwipeThreshold; got != 50 {
		t.Errorf("spotify swipe threshold = %v, want 50", got)
	}
	if err := media.Validate(); err != nil {
		t.Errorf("default tuning invalid: %v", err)
	}
}

func TestTuning_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"zero cooldown", func(t *Tuning) { t.Cooldown = 0 }},
		{"negative volume mode", func(t *Tuning) { t.VolumeModeDuration = -time.Second }},
		{"volume step too large", func(t *Tuning) { t.VolumeStep = 101 }},
		{"zero window", func(t *Tuning) { t.SwipeWindow = 0 }},
		{"cap not above window", func(t *Tuning) { t.SwipeHistoryCap = t.SwipeWindow }},
		{"zero threshold", func(t *Tuning) { t.SwipeThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tun := DefaultTuning(ProfileMediaKeys)
			tt.mutate(&tun)
			if err := tun.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestController_NoHand(t *testing.T) {
	c := newMedia()

	r := c.Update(at(0), nil, false)
	if r.Pose != PoseNone || r.Label != "" || r.Command != CommandNone {
		t.Errorf("unexpected result for empty frame: %+v", r)
	}
}

func TestController_MediaPlayPause(t *testing.T) {
	c := newMedia()
	fist := px(detector.FistLandmarks())
	thumbsDown := px(detector.ThumbsDownLandmarks())

	r := c.Update(at(0), fist, true)
	if r.Command != CommandPlay || r.Label != LabelPlay {
		t.Fatalf("first fist = %+v, want PLAY", r)
	}

	// Cooldown is strict: exactly 1.5s later nothing fires.
	if r := c.Update(at(100), fist, false); r.Command != CommandNone || r.Label != "" {
		t.Errorf("fist during cooldown = %+v", r)
	}
	if r := c.Update(at(1500), thumbsDown, false); r.Command != CommandNone {
		t.Errorf("thumbs down at cooldown boundary = %+v", r)
	}

	r = c.Update(at(1501), thumbsDown, false)
	if r.Command != CommandPause || r.Label != LabelPause {
		t.Errorf("thumbs down after cooldown = %+v, want PAUSE", r)
	}
}

func TestController_MediaOpenPalmDoesNothing(t *testing.T) {
	c := newMedia()
	if r := c.Update(at(0), px(detector.OpenPalmLandmarks()), false); r.Command != CommandNone {
		t.Errorf("open palm under media profile = %+v", r)
	}
}

func TestController_VolumeMode(t *testing.T) {
	for _, profile := range []Profile{ProfileMediaKeys, ProfileSpotify} {
		t.Run(string(profile), func(t *testing.T) {
			c := NewController(profile, DefaultTuning(profile))
			three := px(detector.ThreeFingersLandmarks())
			up := px(detector.ThumbsUpLandmarks())
			down := px(detector.ThumbsDownLandmarks())

			r := c.Update(at(0), three, false)
			if r.Command != CommandVolumeModeOn || r.Label != LabelVolumeModeOn {
				t.Fatalf("three fingers = %+v, want volume mode on", r)
			}
			if s := c.Snapshot(); !s.VolumeMode || !s.VolumeModeUntil.Equal(at(4000)) {
				t.Fatalf("snapshot = %+v", s)
			}

			// On cooldown: label only.
			if r := c.Update(at(500), up, false); r.Command != CommandNone || r.Label != LabelVolumeMode {
				t.Errorf("thumbs up during cooldown = %+v", r)
			}

			r = c.Update(at(1600), up, false)
			if r.Command != CommandVolumeUp || r.Label != "Vol +10" {
				t.Errorf("thumbs up = %+v, want Vol +10", r)
			}
			if s := c.Snapshot(); !s.VolumeModeUntil.Equal(at(5600)) {
				t.Errorf("deadline = %v, want extended to %v", s.VolumeModeUntil, at(5600))
			}

			// Thumbs down inside volume mode is volume, never pause.
			r = c.Update(at(3200), down, true)
			if r.Command != CommandVolumeDown || r.Label != "Vol -10" {
				t.Errorf("thumbs down = %+v, want Vol -10", r)
			}

			// Deadline is now 7200; exactly at it the mode is still active.
			if r := c.Update(at(7200), nil, false); r.Command != CommandNone {
				t.Errorf("frame at deadline = %+v", r)
			}
			r = c.Update(at(7201), nil, false)
			if r.Command != CommandVolumeModeOff || r.Label != LabelVolumeModeOff {
				t.Errorf("frame after deadline = %+v, want volume mode off", r)
			}
			if c.Snapshot().VolumeMode {
				t.Error("volume mode should be off")
			}
		})
	}
}

func TestController_VolumeModeIgnoresOtherPoses(t *testing.T) {
	c := newMedia()
	c.Update(at(0), px(detector.ThreeFingersLandmarks()), false)

	for i, hand := range []*detector.HandLandmarks{
		px(detector.FistLandmarks()),
		px(detector.ThreeFingersLandmarks()),
		px(detector.PeaceLandmarks(0.5)),
	} {
		r := c.Update(at(2000+i*frameMs), hand, false)
		if r.Command != CommandNone || r.Label != LabelVolumeMode {
			t.Errorf("frame %d = %+v, want VOL MODE label only", i, r)
		}
	}
	if n := c.Snapshot().SwipeSamples; n != 0 {
		t.Errorf("swipe samples in volume mode = %d, want 0", n)
	}
}

func TestController_CustomVolumeStepLabel(t *testing.T) {
	tun := DefaultTuning(ProfileMediaKeys)
	tun.VolumeStep = 5
	c := NewController(ProfileMediaKeys, tun)

	c.Update(at(0), px(detector.ThreeFingersLandmarks()), false)
	r := c.Update(at(2000), px(detector.ThumbsUpLandmarks()), false)
	if r.Label != "Vol +5" {
		t.Errorf("label = %q, want Vol +5", r.Label)
	}
}

func TestController_MediaSwipe(t *testing.T) {
	tests := []struct {
		name string
		from float64
		step float64
		want Command
	}{
		{"right", 0.30, 0.015, CommandNextTrack},
		{"left", 0.70, -0.015, CommandPreviousTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMedia()
			results := swipe(c, 0, tt.from, tt.step, 11, false)

			for i, r := range results[:10] {
				if r.Command != CommandNone || r.Label != LabelReadyToSwipe {
					t.Errorf("frame %d = %+v, want Ready to Swipe", i, r)
				}
			}
			last := results[10]
			if last.Command != tt.want {
				t.Fatalf("frame 10 command = %q, want %q", last.Command, tt.want)
			}
			if c.Snapshot().SwipeSamples != 0 {
				t.Error("history should be cleared after a swipe")
			}

			// Swipes are cooldown-gated: the next frames only clear history.
			more := swipe(c, 11*frameMs, tt.from, tt.step, 20, false)
			if got := commands(more); len(got) != 0 {
				t.Errorf("commands during cooldown = %v", got)
			}
			if c.Snapshot().SwipeSamples != 0 {
				t.Error("peace on cooldown should clear history")
			}
		})
	}
}

func TestController_SwipeBelowThreshold(t *testing.T) {
	c := newMedia()

	// 2px per frame never reaches 80px within the capped window.
	results := swipe(c, 0, 0.5, 2.0/640, 40, false)
	if got := commands(results); len(got) != 0 {
		t.Errorf("commands = %v, want none", got)
	}
	if n := c.Snapshot().SwipeSamples; n != 20 {
		t.Errorf("swipe samples = %d, want cap of 20", n)
	}
}

func TestController_SwipeHistoryClearedByOtherPose(t *testing.T) {
	c := newMedia()
	swipe(c, 0, 0.5, 0, 5, false)
	if n := c.Snapshot().SwipeSamples; n != 5 {
		t.Fatalf("swipe samples = %d, want 5", n)
	}

	c.Update(at(100), px(detector.OpenPalmLandmarks()), false)
	if n := c.Snapshot().SwipeSamples; n != 0 {
		t.Errorf("swipe samples after open palm = %d, want 0", n)
	}

	swipe(c, 200, 0.5, 0, 5, false)
	c.Update(at(300), nil, false)
	if n := c.Snapshot().SwipeSamples; n != 0 {
		t.Errorf("swipe samples after hand lost = %d, want 0", n)
	}
}

func TestController_VolumeModeOffLabelKept(t *testing.T) {
	c := newMedia()
	c.Update(at(0), px(detector.ThreeFingersLandmarks()), false)

	r := c.Update(at(4001), px(detector.PeaceLandmarks(0.5)), false)
	if r.Command != CommandVolumeModeOff || r.Label != LabelVolumeModeOff {
		t.Errorf("result = %+v, want volume mode off label", r)
	}
}

func TestController_SpotifyPlayPause(t *testing.T) {
	palm := px(detector.OpenPalmLandmarks())
	down := px(detector.ThumbsDownLandmarks())
	fist := px(detector.FistLandmarks())

	tests := []struct {
		name    string
		hand    *detector.HandLandmarks
		playing bool
		want    Command
	}{
		{"palm while paused plays", palm, false, CommandPlay},
		{"palm while playing is ignored", palm, true, CommandNone},
		{"thumbs down while playing pauses", down, true, CommandPause},
		{"thumbs down while paused is ignored", down, false, CommandNone},
		{"fist is not a spotify gesture", fist, false, CommandNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newSpotify()
			if got := c.Update(at(0), tt.hand, tt.playing).Command; got != tt.want {
				t.Errorf("command = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestController_SpotifySwipeLatch(t *testing.T) {
	c := newSpotify()

	// A play first: swipes ignore the cooldown.
	if r := c.Update(at(0), px(detector.OpenPalmLandmarks()), false); r.Command != CommandPlay {
		t.Fatalf("open palm = %+v", r)
	}

	results := swipe(c, frameMs, 0.30, 0.015, 11, true)
	if results[10].Command != CommandNextTrack {
		t.Fatalf("swipe command = %q, want next", results[10].Command)
	}
	if !c.Snapshot().SwipeLatched {
		t.Fatal("expected latch after swipe")
	}

	// Holding the peace sign can't trigger again.
	more := swipe(c, 12*frameMs, 0.40, 0.015, 30, true)
	if got := commands(more); len(got) != 0 {
		t.Errorf("commands while latched = %v", got)
	}
	for i, r := range more {
		if r.Label != LabelSwipeDone {
			t.Errorf("frame %d label = %q, want Swipe Done", i, r.Label)
			break
		}
	}

	// Any other pose releases the latch.
	c.Update(at(1000), px(detector.FistLandmarks()), true)
	if s := c.Snapshot(); s.SwipeLatched || s.SwipeSamples != 0 {
		t.Errorf("snapshot after fist = %+v", s)
	}

	again := swipe(c, 1100, 0.70, -0.015, 11, true)
	if got := commands(again); len(got) != 1 || got[0] != CommandPreviousTrack {
		t.Errorf("commands after release = %v, want [previous_track]", got)
	}
}

func TestController_SpotifyLatchReleasedWithoutHand(t *testing.T) {
	c := newSpotify()
	swipe(c, 0, 0.30, 0.015, 11, false)
	if !c.Snapshot().SwipeLatched {
		t.Fatal("expected latch")
	}

	c.Update(at(500), nil, false)
	if c.Snapshot().SwipeLatched {
		t.Error("latch should release when the hand disappears")
	}
}

func TestController_SpotifySwipeIgnoredInVolumeMode(t *testing.T) {
	c := newSpotify()
	c.Update(at(0), px(detector.ThreeFingersLandmarks()), false)

	results := swipe(c, frameMs, 0.30, 0.015, 15, false)
	if got := commands(results); len(got) != 0 {
		t.Errorf("commands in volume mode = %v", got)
	}
	for _, r := range results {
		if r.Label != "" {
			t.Errorf("label = %q, want none", r.Label)
			break
		}
	}
	if n := c.Snapshot().SwipeSamples; n != 0 {
		t.Errorf("swipe samples = %d, want 0", n)
	}
}

func TestController_SpotifySmallerThreshold(t *testing.T) {
	// 6px per frame: 60px after 11 samples fires for spotify (50) but not media (80).
	step := 6.0 / 640

	spotify := newSpotify()
	if got := commands(swipe(spotify, 0, 0.5, step, 11, false)); len(got) != 1 {
		t.Errorf("spotify commands = %v, want one", got)
	}

	media := newMedia()
	if got := commands(swipe(media, 0, 0.5, step, 11, false)); len(got) != 0 {
		t.Errorf("media commands = %v, want none", got)
	}
}

func TestController_Reset(t *testing.T) {
	c := newSpotify()
	c.Update(at(0), px(detector.ThreeFingersLandmarks()), false)

	c.Reset()

	if s := c.Snapshot(); s.VolumeMode || s.SwipeLatched || s.SwipeSamples != 0 {
		t.Errorf("snapshot after reset = %+v", s)
	}
	// Cooldown survives a reset.
	if r := c.Update(at(100), px(detector.OpenPalmLandmarks()), false); r.Command != CommandNone {
		t.Errorf("command right after reset = %q", r.Command)
	}
}

func TestController_SetTuningConcurrent(t *testing.T) {
	c := newMedia()
	tun := DefaultTuning(ProfileMediaKeys)
	tun.Cooldown = 100 * time.Millisecond

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			c.SetTuning(tun)
		}
	}()
	for i := 0; i < 100; i++ {
		c.Update(at(i*frameMs), px(detector.PeaceLandmarks(0.5)), false)
	}
	wg.Wait()

	if got := c.Tuning().Cooldown; got != 100*time.Millisecond {
		t.Errorf("cooldown = %v", got)
	}
}

func TestGuide(t *testing.T) {
	media := Guide(ProfileMediaKeys)
	if len(media) != 7 {
		t.Fatalf("len(Guide) = %d, want 7", len(media))
	}
	if media[0].Pose != PoseFist || media[0].Command != CommandPlay {
		t.Errorf("media play entry = %+v", media[0])
	}

	spotify := Guide(ProfileSpotify)
	if spotify[0].Pose != PoseOpenPalm {
		t.Errorf("spotify play pose = %q, want open palm", spotify[0].Pose)
	}

	seen := map[Command]bool{}
	for _, e := range spotify {
		seen[e.Command] = true
	}
	for _, cmd := range []Command{CommandPlay, CommandPause, CommandVolumeModeOn, CommandVolumeUp, CommandVolumeDown, CommandNextTrack, CommandPreviousTrack} {
		if !seen[cmd] {
			t.Errorf("guide misses %q", cmd)
		}
	}
}
