package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/ayusman/handtune/internal/config"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "(unset)"},
		{"abc", "***"},
		{"abcd", "****"},
		{"0123456789", "******6789"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyOptions(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	opts := pipelineOptions{}
	addPipelineFlags(cmd, &opts)

	if err := cmd.Flags().Parse([]string{"--mode", "spotify", "--camera", "0", "--no-sound"}); err != nil {
		t.Fatal(err)
	}

	c := config.Default()
	c.Camera.Device = 3
	applyOptions(cmd, c, opts)

	if c.Mode != "spotify" {
		t.Errorf("mode = %q", c.Mode)
	}
	if c.Camera.Device != 0 {
		t.Errorf("camera = %d, want explicit 0", c.Camera.Device)
	}
	if c.Sounds.Enabled {
		t.Error("sounds should be disabled")
	}
}

func TestApplyOptions_Defaults(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	opts := pipelineOptions{}
	addPipelineFlags(cmd, &opts)
	if err := cmd.Flags().Parse(nil); err != nil {
		t.Fatal(err)
	}

	c := config.Default()
	c.Camera.Device = 2
	applyOptions(cmd, c, opts)

	if c.Mode != "media" || c.Camera.Device != 2 || !c.Sounds.Enabled {
		t.Errorf("config changed without flags: mode=%q camera=%d sounds=%v", c.Mode, c.Camera.Device, c.Sounds.Enabled)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "preview", "cameras", "manual", "history", "credentials", "auth"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
