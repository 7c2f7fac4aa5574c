// Package detector provides hand detection interfaces and landmark types.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// TipIDs lists the fingertip landmarks from thumb to pinky.
var TipIDs = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// Connections are the bone segments of the hand skeleton, palm first.
var Connections = [][2]int{
	{Wrist, ThumbCMC}, {Wrist, IndexMCP}, {IndexMCP, MiddleMCP}, {MiddleMCP, RingMCP}, {RingMCP, PinkyMCP}, {Wrist, PinkyMCP},
	{ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
// Coordinates coming from the detector are normalized to 0..1 of the frame.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// ToPixels returns a copy of the landmarks with X and Y scaled to a frame of
// the given size. Z is left untouched.
func (h *HandLandmarks) ToPixels(width, height int) *HandLandmarks {
	if h == nil {
		return nil
	}

	scaled := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := 0; i < NumLandmarks; i++ {
		scaled.Points[i] = Point3D{
			X: h.Points[i].X * float64(width),
			Y: h.Points[i].Y * float64(height),
			Z: h.Points[i].Z,
		}
	}
	return scaled
}

// Center is the hand position used for swipe tracking: the middle
// finger knuckle, which stays put while the fingers move.
func (h *HandLandmarks) Center() Point3D {
	return h.Points[MiddleMCP]
}

// Bounds returns the smallest X/Y rectangle holding every landmark as
// min and max corners.
func (h *HandLandmarks) Bounds() (lo, hi Point3D) {
	lo, hi = h.Points[0], h.Points[0]
	for _, p := range h.Points[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}
