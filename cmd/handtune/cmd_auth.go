package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/handtune/internal/config"
	"github.com/ayusman/handtune/internal/playback"
)

var (
	credID       string
	credSecret   string
	credRedirect string
)

// credentialsCmd manages the stored Spotify client credentials
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage Spotify client credentials",
	Long: `Store or show the Spotify client id and secret.

Credentials can also come from SPOTIFY_ID and SPOTIFY_SECRET, either in the
environment or in a .env file.`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save the Spotify client id and secret to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if credID == "" || credSecret == "" {
			return fmt.Errorf("both --id and --secret are required")
		}

		// Save what is on disk, not the environment overrides.
		onDisk, err := config.Load(configPath)
		if err != nil {
			return err
		}
		onDisk.Spotify.ClientID = credID
		onDisk.Spotify.ClientSecret = credSecret
		if credRedirect != "" {
			onDisk.Spotify.RedirectURL = credRedirect
		}
		if err := onDisk.Save(configPath); err != nil {
			return err
		}
		fmt.Printf("Credentials saved to %s\n", configPath)
		return nil
	},
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured Spotify credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("client id:     %s\n", orUnset(cfg.Spotify.ClientID))
		fmt.Printf("client secret: %s\n", maskSecret(cfg.Spotify.ClientSecret))
		fmt.Printf("redirect url:  %s\n", orUnset(cfg.Spotify.RedirectURL))

		status := "not authorized"
		if _, err := playback.LoadToken(cfg.Spotify.TokenPath); err == nil {
			status = "authorized"
		}
		fmt.Printf("token:         %s (%s)\n", cfg.Spotify.TokenPath, status)
		return nil
	},
}

// authCmd groups the authorization flows
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize playback backends",
}

var authSpotifyCmd = &cobra.Command{
	Use:   "spotify",
	Short: "Authorize handtune with your Spotify account",
	Long: `Open the Spotify consent page and wait for the redirect. The token is
cached at spotify.token_path and refreshed automatically afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
			return fmt.Errorf("%w: run `handtune credentials set` first", config.ErrMissingCredentials)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		show := func(authURL string) {
			fmt.Println("Open this URL to authorize handtune:")
			fmt.Println()
			fmt.Println("  " + authURL)
			fmt.Println()
			_ = openBrowser(authURL)
		}

		if _, err := playback.Authorize(ctx, cfg.SpotifyAuth(), show, logger); err != nil {
			if ctx.Err() == context.Canceled {
				return fmt.Errorf("authorization cancelled")
			}
			return err
		}
		fmt.Printf("Authorized. Token saved to %s\n", cfg.Spotify.TokenPath)
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

// maskSecret keeps the last four characters.
func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
