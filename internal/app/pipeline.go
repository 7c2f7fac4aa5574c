package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/handtune/internal/detector"
	"github.com/ayusman/handtune/internal/gesture"
	"github.com/ayusman/handtune/internal/playback"
	"github.com/ayusman/handtune/internal/sound"
	"github.com/ayusman/handtune/internal/store"
)

// errQueueFull is recorded when a command is dropped.
var errQueueFull = errors.New("action queue full")

// runPipeline is the frame loop.
//
// Per tick:
// 1. Read a frame (the camera mirrors it when configured)
// 2. When enabled, detect hands and convert the first one to pixels
// 3. Advance the controller with the sink's playing state
// 4. Hand any command to the cue player and the action queue
// 5. Publish status and encode the HUD preview
func (a *App) runPipeline(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.FrameInterval)
	defer ticker.Stop()

	var lastFrame time.Time
	var fps float64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			a.metrics.FrameErrors.Inc()
			a.logger.Debug("read frame", zap.Error(err))
			continue
		}

		now := a.now()
		if !lastFrame.IsZero() {
			if dt := now.Sub(lastFrame).Seconds(); dt > 0 {
				inst := 1 / dt
				if fps == 0 {
					fps = inst
				} else {
					fps = 0.9*fps + 0.1*inst
				}
			}
		}
		lastFrame = now
		a.metrics.SetFPS(fps)

		res, hand, ok := a.processFrame(frame, now)
		status := a.updateStatus(res, ok, fps, now)

		if a.config.Preview {
			a.encodePreview(frame, status, hand)
		}
		frame.Close()
	}
}

// processFrame runs detection and the controller and returns the first
// hand in pixels. ok is false when gesture control is disabled or
// detection failed.
func (a *App) processFrame(frame *gocv.Mat, now time.Time) (gesture.Result, *detector.HandLandmarks, bool) {
	if !a.IsEnabled() {
		return gesture.Result{Pose: gesture.PoseNone}, nil, false
	}

	hands, err := a.config.Detector.Detect(frame)
	if err != nil {
		a.metrics.FrameErrors.Inc()
		a.logger.Debug("detect hands", zap.Error(err))
		return gesture.Result{}, nil, false
	}
	a.metrics.FramesProcessed.Inc()

	var hand *detector.HandLandmarks
	if len(hands) > 0 {
		a.metrics.HandsDetected.Inc()
		hand = hands[0].ToPixels(frame.Cols(), frame.Rows())
	}

	res := a.config.Controller.Update(now, hand, a.config.Sink.Status().Playing)
	if res.Command != gesture.CommandNone {
		a.handleCommand(res)
	}
	return res, hand, true
}

// handleCommand plays the cue and queues the sink call. Volume-mode
// toggles have no sink call and are recorded immediately.
func (a *App) handleCommand(res gesture.Result) {
	cmd := res.Command
	a.metrics.Commands.WithLabelValues(string(cmd)).Inc()
	a.logger.Info("gesture command",
		zap.String("command", string(cmd)),
		zap.String("pose", string(res.Pose)),
		zap.String("label", res.Label),
	)

	if cue, ok := sound.CueFor(cmd); ok {
		a.cues.Play(cue)
	}

	if cmd == gesture.CommandVolumeModeOn || cmd == gesture.CommandVolumeModeOff {
		a.record(action{cmd: cmd, pose: res.Pose, label: res.Label}, nil)
		return
	}

	job := action{cmd: cmd, pose: res.Pose, label: res.Label}
	select {
	case a.actions <- job:
	default:
		a.metrics.CommandsDropped.Inc()
		a.metrics.CommandErrors.WithLabelValues(string(cmd)).Inc()
		a.logger.Warn("dropping command, sink is busy", zap.String("command", string(cmd)))
		a.record(job, errQueueFull)
	}
}

// runActions executes queued commands against the sink in order.
func (a *App) runActions(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-a.actions:
			a.execute(ctx, job)
		}
	}
}

func (a *App) execute(ctx context.Context, job action) {
	ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
	defer cancel()

	step := a.config.Controller.Tuning().VolumeStep
	err := playback.Dispatch(ctx, a.config.Sink, job.cmd, step)
	if err != nil {
		a.metrics.CommandErrors.WithLabelValues(string(job.cmd)).Inc()
		a.logger.Warn("playback command failed",
			zap.String("command", string(job.cmd)),
			zap.String("sink", a.config.Sink.Name()),
			zap.Error(err),
		)
	}
	a.record(job, err)
}

// record appends the command to the history store.
func (a *App) record(job action, err error) {
	if a.config.Store == nil {
		return
	}
	e := &store.Event{
		Gesture: string(job.pose),
		Command: string(job.cmd),
		Label:   job.label,
		Sink:    a.config.Sink.Name(),
		Success: err == nil,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if err := a.config.Store.Events().Create(e); err != nil {
		a.logger.Warn("record history", zap.Error(err))
	}
}

// updateStatus folds the frame result and sink state into the published
// status. The label persists until a new one arrives.
func (a *App) updateStatus(res gesture.Result, processed bool, fps float64, now time.Time) Status {
	sink := a.config.Sink.Status()
	state := a.config.Controller.Snapshot()

	a.metrics.SetVolume(sink.Volume, sink.VolumeKnown)
	a.metrics.SetVolumeMode(state.VolumeMode)

	enabled := a.IsEnabled()

	a.stateMu.Lock()
	s := &a.status
	s.Enabled = enabled
	s.Volume = sink.Volume
	s.VolumeKnown = sink.VolumeKnown
	s.Playing = sink.Playing
	s.Device = sink.Device
	s.VolumeMode = state.VolumeMode
	s.FPS = fps
	s.Timestamp = now
	if processed {
		s.Pose = res.Pose
		if res.Label != "" {
			s.Label = res.Label
		}
		if res.Command != gesture.CommandNone {
			s.Command = res.Command
		}
	} else if !s.Enabled {
		s.Pose = gesture.PoseNone
	}
	snapshot := *s
	a.stateMu.Unlock()

	a.hub.publish(snapshot)
	return snapshot
}

func (a *App) encodePreview(frame *gocv.Mat, status Status, hand *detector.HandLandmarks) {
	if hand != nil {
		drawHand(frame, hand)
	}
	drawHUD(frame, status)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.logger.Debug("encode preview", zap.Error(err))
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.stateMu.Lock()
	a.frame = data
	a.frameNo++
	a.stateMu.Unlock()
}
