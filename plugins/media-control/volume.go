package main

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

var errNoVolumeControl = errors.New("absolute volume not available on " + runtime.GOOS)

// volumeControl reads and writes the master output volume in percent.
type volumeControl interface {
	Get() (int, error)
	Set(percent int) error
}

var volumeBackend volumeControl = newVolumeControl()

func newVolumeControl() volumeControl {
	switch runtime.GOOS {
	case "darwin":
		return osascriptVolume{}
	case "linux":
		return pactlVolume{}
	}
	return unsupportedVolume{}
}

type osascriptVolume struct{}

func (osascriptVolume) Get() (int, error) {
	out, err := exec.Command("osascript", "-e", "output volume of (get volume settings)").Output()
	if err != nil {
		return 0, fmt.Errorf("osascript: %w", err)
	}
	return strconv.Atoi(strings.TrimSpace(string(out)))
}

func (osascriptVolume) Set(percent int) error {
	script := fmt.Sprintf("set volume output volume %d", percent)
	if out, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}

type pactlVolume struct{}

var percentRE = regexp.MustCompile(`(\d+)%`)

func (pactlVolume) Get() (int, error) {
	out, err := exec.Command("pactl", "get-sink-volume", "@DEFAULT_SINK@").Output()
	if err != nil {
		return 0, fmt.Errorf("pactl: %w", err)
	}
	return parsePactlVolume(string(out))
}

func (pactlVolume) Set(percent int) error {
	arg := strconv.Itoa(percent) + "%"
	if out, err := exec.Command("pactl", "set-sink-volume", "@DEFAULT_SINK@", arg).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}

// parsePactlVolume extracts the first channel percentage, e.g. from
// "Volume: front-left: 42598 /  65% / -11.23 dB, ...".
func parsePactlVolume(out string) (int, error) {
	m := percentRE.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no volume in pactl output %q", strings.TrimSpace(out))
	}
	return strconv.Atoi(m[1])
}

type unsupportedVolume struct{}

func (unsupportedVolume) Get() (int, error) { return 0, errNoVolumeControl }
func (unsupportedVolume) Set(int) error     { return errNoVolumeControl }
