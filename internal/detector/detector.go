package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int `yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_detection_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// ScriptPath overrides discovery of mediapipe_service.py.
	ScriptPath string `yaml:"script,omitempty"`

	// PythonPath overrides discovery of the Python interpreter.
	PythonPath string `yaml:"python,omitempty"`

	// ReplyTimeout bounds one frame round trip (default: 10s).
	ReplyTimeout time.Duration `yaml:"reply_timeout,omitempty"`
}

// DefaultConfig returns the detection settings used by the controller:
// a single hand at 0.75 detection confidence.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.75,
		MinTrackingConf: 0.5,
	}
}
