package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.FramesProcessed.Add(3)
	m.HandsDetected.Inc()
	m.Commands.WithLabelValues("play").Inc()
	m.Commands.WithLabelValues("play").Inc()
	m.CommandErrors.WithLabelValues("next_track").Inc()

	families := gather(t, m)

	if got := families["handtune_frames_processed_total"].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Errorf("frames processed = %v, want 3", got)
	}
	cmds := families["handtune_commands_total"].GetMetric()
	if len(cmds) != 1 || cmds[0].GetCounter().GetValue() != 2 {
		t.Errorf("commands = %v", cmds)
	}
	if cmds[0].GetLabel()[0].GetValue() != "play" {
		t.Errorf("command label = %q", cmds[0].GetLabel()[0].GetValue())
	}
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()

	gauge := func(name string) float64 {
		return gather(t, m)[name].GetMetric()[0].GetGauge().GetValue()
	}

	if got := gauge("handtune_volume_percent"); got != -1 {
		t.Errorf("initial volume = %v, want -1", got)
	}

	m.SetVolume(42, true)
	m.SetVolumeMode(true)
	m.SetFPS(29.5)

	if got := gauge("handtune_volume_percent"); got != 42 {
		t.Errorf("volume = %v, want 42", got)
	}
	if got := gauge("handtune_volume_mode_active"); got != 1 {
		t.Errorf("volume mode = %v, want 1", got)
	}
	if got := gauge("handtune_pipeline_fps"); got != 29.5 {
		t.Errorf("fps = %v, want 29.5", got)
	}

	m.SetVolume(80, false)
	if got := gauge("handtune_volume_percent"); got != -1 {
		t.Errorf("unknown volume = %v, want -1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.CommandsDropped.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "handtune_commands_dropped_total 1") {
		t.Errorf("metrics output missing dropped counter:\n%s", body)
	}
}

func TestMetrics_Independent(t *testing.T) {
	// Each instance owns its registry, so two can coexist.
	a, b := New(), New()
	a.FramesProcessed.Inc()
	if got := gather(t, b)["handtune_frames_processed_total"].GetMetric()[0].GetCounter().GetValue(); got != 0 {
		t.Errorf("second instance saw %v frames", got)
	}
}
