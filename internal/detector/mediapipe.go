package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
	"gocv.io/x/gocv"
)

var (
	// ErrScriptNotFound is returned when mediapipe_service.py cannot be located.
	ErrScriptNotFound = errors.New("mediapipe_service.py not found")
	// ErrTimeout is returned when the service does not answer a frame in time.
	// The process is killed and restarted on the next call.
	ErrTimeout = errors.New("mediapipe service did not reply in time")
	// ErrServiceUnavailable is returned while the service is backing off
	// after it failed to start.
	ErrServiceUnavailable = errors.New("mediapipe service unavailable")
	// ErrDetectorClosed is returned by a Detect call interrupted by Close.
	ErrDetectorClosed = errors.New("detector closed")
)

const (
	// DefaultIdleShutdown is how long the Python service may sit unused before
	// it is stopped. It is restarted on the next Detect call.
	DefaultIdleShutdown = 30 * time.Second
	// DefaultReplyTimeout bounds one frame round trip.
	DefaultReplyTimeout = 10 * time.Second
	// DefaultRestartBackoff is how long a service that died before answering
	// its first frame is left down before it is spawned again.
	DefaultRestartBackoff = 5 * time.Second

	shutdownGrace = 2 * time.Second
)

// service is one running Python process.
type service struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr io.WriteCloser
	served int
}

// stop closes stdin and waits up to grace for the process to exit, then
// kills it. Only a clean exit reports its status.
func (s *service) stop(grace time.Duration) error {
	s.stdin.Close()

	exited := make(chan error, 1)
	go func() { exited <- s.cmd.Wait() }()
	defer s.stderr.Close()

	if grace > 0 {
		select {
		case err := <-exited:
			return err
		case <-time.After(grace):
		}
	}
	s.cmd.Process.Kill()
	<-exited
	return nil
}

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Wire format: each request is a 4-byte big-endian length followed by a JPEG
// frame on stdin; each response is a single JSON line on stdout.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	pythonPath string
	idle       time.Duration
	timeout    time.Duration
	backoff    time.Duration
	logger     *zap.Logger

	// interrupt is closed by Close to abort a round trip in flight.
	interrupt   chan struct{}
	interruptMu sync.Mutex

	mu        sync.Mutex
	proc      *service
	gen       uint64
	idleTimer *time.Timer
	starts    atomic.Int32
	lastErr   error
	failedAt  time.Time
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection. Its stderr is
// forwarded to logger at debug level.
func NewMediaPipeDetector(config Config, logger *zap.Logger) (*MediaPipeDetector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findMediaPipeScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScriptNotFound, err)
	}

	pythonPath := config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	timeout := config.ReplyTimeout
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		pythonPath: pythonPath,
		idle:       DefaultIdleShutdown,
		timeout:    timeout,
		backoff:    DefaultRestartBackoff,
		logger:     logger.Named("mediapipe"),
		interrupt:  make(chan struct{}),
	}, nil
}

// Args returns the command line passed to the Python service.
func (d *MediaPipeDetector) Args() []string {
	return []string{
		d.scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	}
}

// Detect analyzes a frame and returns detected hand landmarks. A service
// that dies after serving frames is restarted and the frame retried once.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := buf.GetBytes()

	interrupt := d.interruptCh()

	d.mu.Lock()
	defer d.mu.Unlock()

	for attempt := 0; ; attempt++ {
		proc, err := d.ensureStarted()
		if err != nil {
			return nil, err
		}

		hands, err := d.roundTrip(proc, data, interrupt)
		if err == nil {
			proc.served++
			d.lastErr = nil
			d.armIdleTimer()
			return hands, nil
		}

		// A failed exchange leaves the service in an unknown state.
		d.stopLocked(proc, 0)

		switch {
		case errors.Is(err, ErrDetectorClosed):
			return nil, err
		case proc.served == 0:
			d.markFailed(err)
			return nil, err
		case attempt > 0, errors.Is(err, ErrTimeout):
			return nil, err
		}
		d.logger.Warn("hand detector exited, restarting", zap.Error(err))
	}
}

func (d *MediaPipeDetector) interruptCh() chan struct{} {
	d.interruptMu.Lock()
	defer d.interruptMu.Unlock()
	return d.interrupt
}

// roundTrip sends one frame and waits for the reply, the timeout or an
// interrupt. On timeout or interrupt the process is killed so the pending
// read returns.
func (d *MediaPipeDetector) roundTrip(proc *service, data []byte, interrupt <-chan struct{}) ([]HandLandmarks, error) {
	type reply struct {
		hands []HandLandmarks
		err   error
	}
	done := make(chan reply, 1)
	go func() {
		hands, err := exchange(proc.stdin, proc.stdout, data)
		done <- reply{hands, err}
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	var err error
	select {
	case r := <-done:
		return r.hands, r.err
	case <-timer.C:
		err = ErrTimeout
	case <-interrupt:
		err = ErrDetectorClosed
	}
	proc.cmd.Process.Kill()
	<-done
	return nil, err
}

func exchange(w io.Writer, r *bufio.Reader, data []byte) ([]HandLandmarks, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseResponse([]byte(line))
}

// parseResponse decodes one JSON line from the Python service.
func parseResponse(line []byte) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error,omitempty"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

// Close shuts down the Python process, aborting a Detect in flight. The
// detector can be used again afterwards.
func (d *MediaPipeDetector) Close() error {
	d.interruptMu.Lock()
	close(d.interrupt)
	d.interruptMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.interruptMu.Lock()
	d.interrupt = make(chan struct{})
	d.interruptMu.Unlock()

	if d.proc == nil {
		return nil
	}
	return d.stopLocked(d.proc, shutdownGrace)
}

func (d *MediaPipeDetector) ensureStarted() (*service, error) {
	if d.proc != nil {
		return d.proc, nil
	}
	if d.lastErr != nil && time.Since(d.failedAt) < d.backoff {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, d.lastErr)
	}

	cmd := exec.Command(d.pythonPath, d.Args()...)
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	stderr := &zapio.Writer{Log: d.logger, Level: zap.DebugLevel}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stderr.Close()
		err = fmt.Errorf("start mediapipe service: %w", err)
		d.markFailed(err)
		return nil, err
	}

	n := d.starts.Add(1)
	fields := []zap.Field{
		zap.String("python", d.pythonPath),
		zap.String("script", d.scriptPath),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int32("starts", n),
	}
	if n == 1 {
		d.logger.Info("hand detector started", fields...)
	} else {
		d.logger.Debug("hand detector restarted", fields...)
	}

	d.proc = &service{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stderr: stderr,
	}
	d.gen++
	return d.proc, nil
}

func (d *MediaPipeDetector) markFailed(err error) {
	d.lastErr = err
	d.failedAt = time.Now()
	d.logger.Warn("hand detector unavailable",
		zap.Duration("retry_in", d.backoff),
		zap.Error(err),
	)
}

// stopLocked stops proc and forgets it. Any armed idle timer goes stale.
func (d *MediaPipeDetector) stopLocked(proc *service, grace time.Duration) error {
	if d.proc == proc {
		d.proc = nil
	}
	d.gen++
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	err := proc.stop(grace)
	d.logger.Debug("hand detector stopped", zap.Int("frames", proc.served), zap.Error(err))
	return err
}

// armIdleTimer schedules an idle shutdown. The callback only acts if
// nothing started, stopped or re-armed since.
func (d *MediaPipeDetector) armIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.gen++
	gen := d.gen
	d.idleTimer = time.AfterFunc(d.idle, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.gen != gen || d.proc == nil {
			return
		}
		d.idleTimer = nil
		d.stopLocked(d.proc, shutdownGrace)
	})
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".handtune/scripts/mediapipe_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handtune/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
