// Package gesture turns per-frame hand landmarks into debounced playback
// commands.
package gesture

import (
	"strings"

	"github.com/ayusman/handtune/internal/detector"
)

// Fingers holds the extended state of each finger in the order thumb,
// index, middle, ring, pinky.
type Fingers [5]bool

// FingersUp reports which fingers are extended. Coordinates are expected in
// pixel space of a mirrored frame. ok is false when hand is nil.
func FingersUp(hand *detector.HandLandmarks) (f Fingers, ok bool) {
	if hand == nil {
		return f, false
	}
	p := hand.Points

	// Mirrored frame: an extended right thumb sits left of its IP joint.
	f[0] = p[detector.ThumbTip].X < p[detector.ThumbIP].X

	for i := 1; i < 5; i++ {
		tip := detector.TipIDs[i]
		f[i] = p[tip].Y < p[tip-2].Y
	}
	return f, true
}

// Count returns how many fingers are extended.
func (f Fingers) Count() int {
	n := 0
	for _, up := range f {
		if up {
			n++
		}
	}
	return n
}

// String renders the states like [0 1 1 0 0].
func (f Fingers) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, up := range f {
		if i > 0 {
			b.WriteByte(' ')
		}
		if up {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte(']')
	return b.String()
}
