package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/handtune/internal/app"
	"github.com/ayusman/handtune/internal/capture"
	"github.com/ayusman/handtune/internal/config"
	"github.com/ayusman/handtune/internal/detector"
	"github.com/ayusman/handtune/internal/gesture"
	"github.com/ayusman/handtune/internal/metrics"
	"github.com/ayusman/handtune/internal/playback"
	"github.com/ayusman/handtune/internal/plugin"
	"github.com/ayusman/handtune/internal/server"
	"github.com/ayusman/handtune/internal/sound"
	"github.com/ayusman/handtune/internal/store"
	"github.com/ayusman/handtune/internal/tray"
)

// pipelineOptions are the flags shared by run and preview.
type pipelineOptions struct {
	mode    string
	camera  int
	noSound bool
	tray    bool
	// dry replaces the playback sink with a simulation and opens the
	// status page.
	dry bool
}

var (
	runOpts     pipelineOptions
	previewOpts = pipelineOptions{dry: true}
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start gesture control",
	Long: `Start the camera pipeline and send recognized gestures to the player.

The status page, MJPEG preview and metrics are served on server.addr.
Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, runOpts)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Rehearse gestures without controlling playback",
	Long: `Run the pipeline against a simulated player and open the status page
with the camera preview. Nothing is sent to the OS or to Spotify.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, previewOpts)
	},
}

func addPipelineFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Playback mode: media or spotify (default from config)")
	cmd.Flags().IntVar(&opts.camera, "camera", 0, "Camera device index (default from config)")
	cmd.Flags().BoolVar(&opts.noSound, "no-sound", false, "Disable feedback sounds")
}

// applyOptions folds command-line overrides into cfg.
func applyOptions(cmd *cobra.Command, c *config.Config, opts pipelineOptions) {
	if opts.mode != "" {
		c.Mode = opts.mode
	}
	if cmd.Flags().Changed("camera") {
		c.Camera.Device = opts.camera
	}
	if opts.noSound {
		c.Sounds.Enabled = false
	}
}

func runPipeline(cmd *cobra.Command, opts pipelineOptions) error {
	applyOptions(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		// A rehearsal never talks to Spotify.
		if !opts.dry || !errors.Is(err, config.ErrMissingCredentials) {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	profile, _ := cfg.Profile()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer st.Close()
	pruneHistory(st, cfg.Store.Retention)

	sink, err := openSink(ctx, profile, opts.dry)
	if err != nil {
		return err
	}

	det, err := detector.NewMediaPipeDetector(cfg.Detector, logger)
	if err != nil {
		sink.Close()
		return fmt.Errorf("start detector: %w", err)
	}

	cam := capture.NewCamera(capture.Options{
		DeviceID: cfg.Camera.Device,
		FPS:      cfg.Camera.FPS,
		Mirror:   cfg.Camera.Mirror,
	})

	var cues sound.Player = sound.Silent{}
	if cfg.Sounds.Enabled {
		cues = sound.Load(findDir(cfg.Sounds.Dir), logger)
	}

	m := metrics.New()
	application, err := app.New(app.Config{
		Camera:     cam,
		Detector:   det,
		Controller: gesture.NewController(profile, cfg.TuningFor(profile)),
		Sink:       sink,
		Cues:       cues,
		Store:      st,
		Metrics:    m,
		Logger:     logger,
		Preview:    true,
	})
	if err != nil {
		sink.Close()
		det.Close()
		cues.Close()
		return err
	}

	srv := server.New(server.Config{
		StaticDir: findDir(cfg.Server.StaticDir, "web"),
		App:       application,
		Store:     st,
		Profile:   profile,
		Metrics:   m.Handler(),
		Logger:    logger,
	})
	statusURL := "http://" + cfg.Server.Addr + "/"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := application.Run(gctx); err != nil {
			sink.Close()
			det.Close()
			cues.Close()
			return fmt.Errorf("pipeline: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.Run(gctx, cfg.Server.Addr); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return config.Watch(gctx, configPath, logger, func(next *config.Config) {
			application.SetTuning(next.TuningFor(profile))
			logger.Info("gesture tuning reloaded", zap.String("profile", string(profile)))
		})
	})

	fmt.Printf("handtune %s mode, status page at %s\n", profile, statusURL)
	if opts.dry {
		go func() {
			// Give the server a moment to bind.
			select {
			case <-gctx.Done():
			case <-time.After(500 * time.Millisecond):
				if err := openBrowser(statusURL); err != nil {
					logger.Warn("open browser", zap.Error(err))
				}
			}
		}()
	}

	if opts.tray {
		runTray(gctx, cancel, application, profile, statusURL)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runTray blocks on the tray event loop until the user quits or ctx ends.
// systray requires the calling goroutine to be the main one.
func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, profile gesture.Profile, statusURL string) {
	t := tray.New(a.IsEnabled(), string(profile))
	t.OnToggle(a.SetEnabled)
	t.OnOpenStatus(func() {
		if err := openBrowser(statusURL); err != nil {
			logger.Warn("open browser", zap.Error(err))
		}
	})
	t.OnQuit(quit)

	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go t.Follow(ctx, updates)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	quit()
}

// openSink builds and starts the playback backend for profile.
func openSink(ctx context.Context, profile gesture.Profile, dry bool) (playback.Sink, error) {
	if dry {
		return playback.NewDrySink(logger), nil
	}

	switch profile {
	case gesture.ProfileSpotify:
		client, err := playback.NewClient(ctx, cfg.SpotifyAuth(), logger)
		if err != nil {
			return nil, err
		}
		sink := playback.NewSpotifySink(client, cfg.Spotify.Refresh, logger)
		if err := sink.Start(ctx); err != nil {
			sink.Close()
			return nil, err
		}
		return sink, nil

	default:
		dir := findDir(cfg.Plugins.Dir)
		if dir == "" {
			dir = cfg.Plugins.Dir
		}
		mgr := plugin.NewManager(dir, logger.Named("plugins"))
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins in %s: %w", dir, err)
		}
		if _, err := mgr.Get(playback.MediaControlPlugin); err != nil {
			return nil, fmt.Errorf("%s plugin not found in %s: %w", playback.MediaControlPlugin, dir, err)
		}
		client := plugin.NewClient(mgr, plugin.NewExecutor(cfg.Plugins.Timeout), playback.MediaControlPlugin)
		sink := playback.NewMediaKeySink(client, cfg.Plugins.VolumePoll, logger)
		if err := sink.Start(ctx); err != nil {
			return nil, err
		}
		return sink, nil
	}
}

// pruneHistory drops events older than retention. Zero keeps everything.
func pruneHistory(st *store.Store, retention time.Duration) {
	if retention <= 0 {
		return
	}
	n, err := st.Events().DeleteOlderThan(time.Now().Add(-retention))
	if err != nil {
		logger.Warn("prune history", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("pruned history", zap.Int64("events", n))
	}
}
