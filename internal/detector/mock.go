package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetSequence queues per-call results. Once the queue drains Detect falls
// back to the hands set with SetHands.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fixture geometry, normalized to the frame. Y grows downward.
const (
	fixtureWristY    = 0.80
	fixtureMCPY      = 0.65
	fixturePIPY      = 0.55
	fixtureTipUpY    = 0.40
	fixtureTipDownY  = 0.62
	fixtureThumbMCPY = 0.70
)

// thumbTip positions relative to the hand centre.
type thumbShape int

const (
	thumbFolded thumbShape = iota
	thumbSideways
	thumbPointingUp
	thumbPointingDown
)

// buildHand lays out a right hand centred at cx with the given fingers
// (index, middle, ring, pinky) extended and the thumb in the given shape.
func buildHand(cx float64, thumb thumbShape, fingers [4]bool) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: cx, Y: fixtureWristY}

	// Thumb joints sit on the index side of the palm.
	h.Points[ThumbCMC] = Point3D{X: cx + 0.05, Y: 0.75}
	h.Points[ThumbMCP] = Point3D{X: cx + 0.08, Y: fixtureThumbMCPY}
	h.Points[ThumbIP] = Point3D{X: cx + 0.10, Y: 0.66}
	switch thumb {
	case thumbFolded:
		h.Points[ThumbTip] = Point3D{X: cx + 0.13, Y: 0.68}
	case thumbSideways:
		h.Points[ThumbTip] = Point3D{X: cx + 0.06, Y: 0.62}
	case thumbPointingUp:
		h.Points[ThumbTip] = Point3D{X: cx + 0.07, Y: 0.52}
	case thumbPointingDown:
		h.Points[ThumbTip] = Point3D{X: cx + 0.07, Y: 0.88}
	}

	offsets := [4]float64{0.04, 0.0, -0.04, -0.08}
	for i, up := range fingers {
		mcp := IndexMCP + i*4
		x := cx + offsets[i]
		h.Points[mcp] = Point3D{X: x, Y: fixtureMCPY}
		h.Points[mcp+1] = Point3D{X: x, Y: fixturePIPY}
		if up {
			h.Points[mcp+2] = Point3D{X: x, Y: 0.47}
			h.Points[mcp+3] = Point3D{X: x, Y: fixtureTipUpY}
		} else {
			h.Points[mcp+2] = Point3D{X: x, Y: 0.59}
			h.Points[mcp+3] = Point3D{X: x, Y: fixtureTipDownY}
		}
	}

	return h
}

// FistLandmarks returns a closed hand with every finger folded.
func FistLandmarks() HandLandmarks {
	return buildHand(0.5, thumbFolded, [4]bool{})
}

// OpenPalmLandmarks returns an open hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return buildHand(0.5, thumbSideways, [4]bool{true, true, true, true})
}

// ThumbsUpLandmarks returns a hand with only the thumb raised above its base.
func ThumbsUpLandmarks() HandLandmarks {
	return buildHand(0.5, thumbPointingUp, [4]bool{})
}

// ThumbsDownLandmarks returns a hand with only the thumb, pointing below its base.
func ThumbsDownLandmarks() HandLandmarks {
	return buildHand(0.5, thumbPointingDown, [4]bool{})
}

// ThreeFingersLandmarks returns index, middle and ring raised.
func ThreeFingersLandmarks() HandLandmarks {
	return buildHand(0.5, thumbFolded, [4]bool{true, true, true, false})
}

// PeaceLandmarks returns a V sign centred at cx (normalized 0..1).
func PeaceLandmarks(cx float64) HandLandmarks {
	return buildHand(cx, thumbFolded, [4]bool{true, true, false, false})
}
