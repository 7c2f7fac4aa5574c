// Package config loads handtune settings from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/handtune/internal/detector"
	"github.com/ayusman/handtune/internal/gesture"
	"github.com/ayusman/handtune/internal/playback"
)

// Environment variables that override the file.
const (
	EnvSpotifyID     = "SPOTIFY_ID"
	EnvSpotifySecret = "SPOTIFY_SECRET"
	EnvSpotifyRedir  = "SPOTIFY_REDIRECT_URI"
	EnvMode          = "HANDTUNE_MODE"
	EnvCamera        = "HANDTUNE_CAMERA"
)

// ErrMissingCredentials is returned by Validate in spotify mode when the
// client id or secret is empty.
var ErrMissingCredentials = errors.New("spotify client id and secret are required")

// Config holds all handtune configuration.
type Config struct {
	// Mode selects the playback profile: media or spotify.
	Mode string `yaml:"mode"`

	Camera   CameraConfig    `yaml:"camera"`
	Detector detector.Config `yaml:"detector"`
	Tuning   TuningConfig    `yaml:"tuning"`
	Spotify  SpotifyConfig   `yaml:"spotify"`
	Plugins  PluginConfig    `yaml:"plugins"`
	Sounds   SoundConfig     `yaml:"sounds"`
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// CameraConfig selects and shapes the capture device.
type CameraConfig struct {
	Device int  `yaml:"device"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"`
}

// TuningConfig holds controller thresholds per profile.
type TuningConfig struct {
	Media   gesture.Tuning `yaml:"media"`
	Spotify gesture.Tuning `yaml:"spotify"`
}

// SpotifyConfig holds the Web API client settings.
type SpotifyConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RedirectURL  string        `yaml:"redirect_url"`
	TokenPath    string        `yaml:"token_path"`
	Refresh      time.Duration `yaml:"refresh"`
}

// PluginConfig locates the media-control plugin.
type PluginConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
	// VolumePoll is how often the OS volume is re-read in media mode.
	VolumePoll time.Duration `yaml:"volume_poll"`
}

// SoundConfig controls feedback cues.
type SoundConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// ServerConfig controls the local status server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir,omitempty"`
}

// StoreConfig controls the command history database.
type StoreConfig struct {
	Path string `yaml:"path"`
	// Retention prunes history older than this on startup. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Dir returns ~/.handtune, or .handtune when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handtune"
	}
	return filepath.Join(home, ".handtune")
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dir := Dir()
	return &Config{
		Mode: string(gesture.ProfileMediaKeys),
		Camera: CameraConfig{
			Device: 0,
			FPS:    30,
			Mirror: true,
		},
		Detector: detector.DefaultConfig(),
		Tuning: TuningConfig{
			Media:   gesture.DefaultTuning(gesture.ProfileMediaKeys),
			Spotify: gesture.DefaultTuning(gesture.ProfileSpotify),
		},
		Spotify: SpotifyConfig{
			RedirectURL: playback.DefaultRedirectURL,
			TokenPath:   filepath.Join(dir, "spotify_token.json"),
			Refresh:     playback.DefaultRefresh,
		},
		Plugins: PluginConfig{
			Dir:        "plugins",
			Timeout:    5 * time.Second,
			VolumePoll: playback.DefaultVolumePoll,
		},
		Sounds: SoundConfig{
			Enabled: true,
			Dir:     "sounds",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Store: StoreConfig{
			Path:      filepath.Join(dir, "handtune.db"),
			Retention: 30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, then loads .env files and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads ./.env and the one next to the config file. Variables
// already set in the environment win.
func loadDotEnv(beside string) {
	for _, p := range []string{".env", beside} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvSpotifyID); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvSpotifySecret); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv(EnvSpotifyRedir); v != "" {
		c.Spotify.RedirectURL = v
	}
	if v := os.Getenv(EnvMode); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(EnvCamera); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid camera index %q", EnvCamera, v)
		}
		c.Camera.Device = n
	}
	return nil
}

// Save writes the configuration to path. The file may hold the Spotify
// secret, so it is owner-only.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Profile returns the parsed playback profile.
func (c *Config) Profile() (gesture.Profile, error) {
	return gesture.ParseProfile(c.Mode)
}

// TuningFor returns the thresholds for p.
func (c *Config) TuningFor(p gesture.Profile) gesture.Tuning {
	if p == gesture.ProfileSpotify {
		return c.Tuning.Spotify
	}
	return c.Tuning.Media
}

// SpotifyAuth converts the Spotify section for the playback package.
func (c *Config) SpotifyAuth() playback.AuthConfig {
	return playback.AuthConfig{
		ClientID:     c.Spotify.ClientID,
		ClientSecret: c.Spotify.ClientSecret,
		RedirectURL:  c.Spotify.RedirectURL,
		TokenPath:    c.Spotify.TokenPath,
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	profile, err := c.Profile()
	if err != nil {
		return err
	}
	if c.Camera.Device < 0 {
		return fmt.Errorf("camera device must be >= 0, got %d", c.Camera.Device)
	}
	if c.Camera.FPS < 0 {
		return fmt.Errorf("camera fps must be >= 0, got %d", c.Camera.FPS)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector min_detection_confidence must be within 0..1")
	}
	if c.Detector.MinTrackingConf < 0 || c.Detector.MinTrackingConf > 1 {
		return fmt.Errorf("detector min_tracking_confidence must be within 0..1")
	}
	if c.Detector.ReplyTimeout < 0 {
		return fmt.Errorf("detector reply_timeout must not be negative")
	}
	if err := c.Tuning.Media.Validate(); err != nil {
		return fmt.Errorf("tuning.media: %w", err)
	}
	if err := c.Tuning.Spotify.Validate(); err != nil {
		return fmt.Errorf("tuning.spotify: %w", err)
	}
	if c.Plugins.Timeout <= 0 {
		return fmt.Errorf("plugins timeout must be positive")
	}
	if profile == gesture.ProfileSpotify {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
			return ErrMissingCredentials
		}
		if c.Spotify.TokenPath == "" {
			return fmt.Errorf("spotify token_path is required")
		}
	}
	return nil
}
