// Package main provides the media-control plugin for handtune.
// It presses OS media keys and reads or changes the master volume.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-vgo/robotgo"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type volumeParams struct {
	Step int `json:"step"`
}

type volumeData struct {
	Volume int `json:"volume"`
}

// actionHandler returns optional result data.
type actionHandler func(params json.RawMessage) (any, error)

var actionHandlers = map[string]actionHandler{
	"media-play-pause": tapKey("audio_play"),
	"media-next":       tapKey("audio_next"),
	"media-prev":       tapKey("audio_prev"),
	"volume-up":        changeVolume(+1),
	"volume-down":      changeVolume(-1),
	"volume-get":       getVolume,
}

// keyTap is replaced in tests.
var keyTap = func(key string) error {
	return robotgo.KeyTap(key)
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(nil, fmt.Errorf("failed to decode request: %w", err))
		return
	}
	writeResponse(handle(req))
}

func handle(req Request) (any, error) {
	handler, ok := actionHandlers[req.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
	data, err := handler(req.Params)
	if err != nil {
		return nil, fmt.Errorf("action %s failed: %w", req.Action, err)
	}
	return data, nil
}

func writeResponse(data any, err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if data != nil {
		if raw, mErr := json.Marshal(data); mErr == nil {
			resp.Data = raw
		}
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func tapKey(key string) actionHandler {
	return func(json.RawMessage) (any, error) {
		return nil, keyTap(key)
	}
}

func changeVolume(sign int) actionHandler {
	return func(raw json.RawMessage) (any, error) {
		p := volumeParams{Step: 10}
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("invalid params: %w", err)
			}
		}
		if p.Step <= 0 {
			return nil, fmt.Errorf("step must be positive, got %d", p.Step)
		}

		vol, err := volumeBackend.Get()
		if err != nil {
			// No absolute control: fall back to media key taps.
			return nil, tapVolumeKeys(sign, p.Step)
		}

		target := clamp(vol+sign*p.Step, 0, 100)
		if err := volumeBackend.Set(target); err != nil {
			return nil, err
		}
		return volumeData{Volume: target}, nil
	}
}

func getVolume(json.RawMessage) (any, error) {
	vol, err := volumeBackend.Get()
	if err != nil {
		return nil, err
	}
	return volumeData{Volume: clamp(vol, 0, 100)}, nil
}

// tapVolumeKeys approximates a step with volume keys, one tap per 2%.
func tapVolumeKeys(sign, step int) error {
	key := "audio_vol_up"
	if sign < 0 {
		key = "audio_vol_down"
	}
	taps := step / 2
	if taps < 1 {
		taps = 1
	}
	for i := 0; i < taps; i++ {
		if err := keyTap(key); err != nil {
			return err
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
