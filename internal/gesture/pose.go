package gesture

import "github.com/ayusman/handtune/internal/detector"

// Pose is a named static hand shape.
type Pose string

const (
	PoseNone         Pose = "none"
	PoseUnknown      Pose = "unknown"
	PoseFist         Pose = "fist"
	PoseOpenPalm     Pose = "open_palm"
	PoseThreeFingers Pose = "three_fingers"
	PosePeace        Pose = "peace"
	PoseThumbsUp     Pose = "thumbs_up"
	PoseThumbsDown   Pose = "thumbs_down"
)

var (
	fingersFist      = Fingers{false, false, false, false, false}
	fingersOpen      = Fingers{true, true, true, true, true}
	fingersThree     = Fingers{false, true, true, true, false}
	fingersPeace     = Fingers{false, true, true, false, false}
	fingersThumbOnly = Fingers{true, false, false, false, false}
)

// Classify maps a hand to its pose. A nil hand yields PoseNone.
func Classify(hand *detector.HandLandmarks) Pose {
	f, ok := FingersUp(hand)
	if !ok {
		return PoseNone
	}

	switch f {
	case fingersFist:
		return PoseFist
	case fingersOpen:
		return PoseOpenPalm
	case fingersThree:
		return PoseThreeFingers
	case fingersPeace:
		return PosePeace
	case fingersThumbOnly:
		tip := hand.Points[detector.ThumbTip].Y
		mcp := hand.Points[detector.ThumbMCP].Y
		switch {
		case tip < mcp:
			return PoseThumbsUp
		case tip > mcp:
			return PoseThumbsDown
		}
	}
	return PoseUnknown
}
