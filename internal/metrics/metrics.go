// Package metrics exposes pipeline counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline metrics.
type Metrics struct {
	FramesProcessed prometheus.Counter
	FrameErrors     prometheus.Counter
	HandsDetected   prometheus.Counter
	Commands        *prometheus.CounterVec
	CommandErrors   *prometheus.CounterVec
	CommandsDropped prometheus.Counter

	// Gauges read by GaugeFuncs so the frame loop only stores atomics.
	volumeMode atomic.Bool
	volume     atomic.Int64
	fps        atomic.Uint64 // frames per second times 100

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.volume.Store(-1)

	m.FramesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handtune_frames_processed_total",
		Help: "Frames read from the camera and run through the detector",
	})
	m.FrameErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handtune_frame_errors_total",
		Help: "Frames dropped because capture or detection failed",
	})
	m.HandsDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handtune_hands_detected_total",
		Help: "Frames in which a hand was found",
	})
	m.Commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handtune_commands_total",
		Help: "Commands fired by the gesture controller",
	}, []string{"command"})
	m.CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handtune_command_errors_total",
		Help: "Commands the playback sink failed to carry out",
	}, []string{"command"})
	m.CommandsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handtune_commands_dropped_total",
		Help: "Commands dropped because the action queue was full",
	})

	m.registry.MustRegister(
		m.FramesProcessed,
		m.FrameErrors,
		m.HandsDetected,
		m.Commands,
		m.CommandErrors,
		m.CommandsDropped,
	)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "handtune_volume_mode_active",
			Help: "Volume mode active (0=inactive, 1=active)",
		},
		func() float64 {
			if m.volumeMode.Load() {
				return 1
			}
			return 0
		},
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "handtune_volume_percent",
			Help: "Last known playback volume, -1 when unknown",
		},
		func() float64 { return float64(m.volume.Load()) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "handtune_pipeline_fps",
			Help: "Measured frame loop rate",
		},
		func() float64 { return float64(m.fps.Load()) / 100 },
	))

	return m
}

// SetVolumeMode records whether volume mode is active.
func (m *Metrics) SetVolumeMode(active bool) {
	m.volumeMode.Store(active)
}

// SetVolume records the playback volume. known=false reports -1.
func (m *Metrics) SetVolume(volume int, known bool) {
	if !known {
		volume = -1
	}
	m.volume.Store(int64(volume))
}

// SetFPS records the measured frame rate.
func (m *Metrics) SetFPS(fps float64) {
	m.fps.Store(uint64(fps * 100))
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
