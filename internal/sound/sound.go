// Package sound plays short feedback cues when a gesture fires.
package sound

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"go.uber.org/zap"

	"github.com/ayusman/handtune/internal/gesture"
)

// SampleRate of the output context. Clips are resampled to it on load.
const SampleRate = 44100

// Cue identifies a feedback sound.
type Cue int

const (
	CueVolume Cue = iota
	CuePlayPause
	CueTrack
)

// Files maps each cue to its file name in the sounds directory.
var Files = map[Cue]string{
	CueVolume:    "sfx-1.wav",
	CuePlayPause: "sfx-2.wav",
	CueTrack:     "sfx-3.wav",
}

func (c Cue) String() string {
	switch c {
	case CueVolume:
		return "volume"
	case CuePlayPause:
		return "play_pause"
	case CueTrack:
		return "track"
	}
	return fmt.Sprintf("cue(%d)", int(c))
}

// CueFor returns the cue played for cmd. Leaving volume mode is silent.
func CueFor(cmd gesture.Command) (Cue, bool) {
	switch cmd {
	case gesture.CommandVolumeUp, gesture.CommandVolumeDown, gesture.CommandVolumeModeOn:
		return CueVolume, true
	case gesture.CommandPlay, gesture.CommandPause:
		return CuePlayPause, true
	case gesture.CommandNextTrack, gesture.CommandPreviousTrack:
		return CueTrack, true
	}
	return 0, false
}

// Player plays cues without blocking the caller.
type Player interface {
	Play(c Cue)
	Close() error
}

// Silent is a Player that does nothing.
type Silent struct{}

func (Silent) Play(Cue)     {}
func (Silent) Close() error { return nil }

// OtoPlayer plays decoded PCM clips through an oto context.
type OtoPlayer struct {
	ctx    *oto.Context
	clips  map[Cue][]byte
	logger *zap.Logger

	mu     sync.Mutex
	active []*oto.Player
}

// Load decodes the cue files in dir and opens the audio device. Cues whose
// file is missing stay silent. When nothing loads, or there is no audio
// device, a Silent player is returned and a warning logged.
func Load(dir string, logger *zap.Logger) Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sound")

	clips := loadClips(dir, logger)
	if len(clips) == 0 {
		logger.Warn("no sound cues loaded, continuing silently", zap.String("dir", dir))
		return Silent{}
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		logger.Warn("audio output unavailable, continuing silently", zap.Error(err))
		return Silent{}
	}
	<-ready

	return &OtoPlayer{ctx: ctx, clips: clips, logger: logger}
}

func loadClips(dir string, logger *zap.Logger) map[Cue][]byte {
	clips := make(map[Cue][]byte, len(Files))
	for cue, name := range Files {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			logger.Warn("sound cue missing", zap.Stringer("cue", cue), zap.String("path", path))
			continue
		}
		pcm, err := decodeClip(f)
		f.Close()
		if err != nil {
			logger.Warn("sound cue unreadable", zap.Stringer("cue", cue), zap.String("path", path), zap.Error(err))
			continue
		}
		clips[cue] = pcm
	}
	return clips
}

// decodeClip returns 16-bit little-endian stereo PCM at SampleRate.
func decodeClip(r io.Reader) ([]byte, error) {
	stream, err := wav.DecodeWithSampleRate(SampleRate, r)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return pcm, nil
}

// Play starts c and returns immediately. Finished players are reaped on
// the next call.
func (p *OtoPlayer) Play(c Cue) {
	clip, ok := p.clips[c]
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	live := p.active[:0]
	for _, pl := range p.active {
		if pl.IsPlaying() {
			live = append(live, pl)
		} else {
			pl.Close()
		}
	}
	p.active = live

	pl := p.ctx.NewPlayer(bytes.NewReader(clip))
	pl.Play()
	p.active = append(p.active, pl)
}

// Close stops every playing cue.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pl := range p.active {
		pl.Close()
	}
	p.active = nil
	return nil
}
