package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writePlugin creates dir/name with a manifest and a shell executable.
func writePlugin(t *testing.T, dir, name, script string, actions ...string) *Plugin {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	pluginDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifest := Manifest{
		Name:        name,
		Version:     "1.0.0",
		Description: "test plugin " + name,
		Executable:  "run.sh",
		Actions:     actions,
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	exe := filepath.Join(pluginDir, "run.sh")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{Manifest: manifest, Path: pluginDir, Executable: exe}
}
