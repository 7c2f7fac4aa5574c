// Command handtune controls music playback with webcam hand gestures.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/handtune/internal/config"
	"github.com/ayusman/handtune/internal/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "handtune",
	Short: "handtune - hand gesture music control",
	Long: `handtune watches a webcam, recognizes hand poses and turns them into
playback commands for OS media keys or the Spotify Web API.

Run "handtune manual" to see the gestures for each mode.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(level, cfg.Logging.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	addPipelineFlags(runCmd, &runOpts)
	runCmd.Flags().BoolVar(&runOpts.tray, "tray", false, "Show the system tray menu")
	addPipelineFlags(previewCmd, &previewOpts)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of events to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all recorded events")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Show command counts instead of events")

	manualCmd.Flags().StringVar(&manualMode, "mode", "", "Mode to describe: media or spotify (default from config)")

	credentialsSetCmd.Flags().StringVar(&credID, "id", "", "Spotify client id")
	credentialsSetCmd.Flags().StringVar(&credSecret, "secret", "", "Spotify client secret")
	credentialsSetCmd.Flags().StringVar(&credRedirect, "redirect", "", "Spotify redirect URL")
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)

	authCmd.AddCommand(authSpotifyCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(camerasCmd)
	rootCmd.AddCommand(manualCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(authCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
