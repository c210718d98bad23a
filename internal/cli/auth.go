package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaa/playlist-mirror/internal/auth"
)

func newLoginCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify Spotify credentials and cache an access token",
		Long:  "Login reads SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET from the environment (or a .env file), requests a token and caches it for later runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return err
			}
			creds := auth.Credentials{
				ClientID:     cfg.SpotifyClientID,
				ClientSecret: cfg.SpotifyClientSecret,
			}
			if creds.ClientID == "" || creds.ClientSecret == "" {
				return auth.ErrCredentialsNotFound
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), apiTimeout)
			defer cancel()

			status, err := auth.Login(ctx, creds, tokenCache(), &http.Client{Timeout: apiTimeout})
			if err != nil {
				return err
			}
			fmt.Fprintf(app.IO.Out, "Logged in as client %s (token valid until %s)\n",
				status.ClientID, status.Expiry.Local().Format(time.RFC1123))
			return nil
		},
	}
}

func newLogoutCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached Spotify token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := tokenCache().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(app.IO.Out, "Logged out.")
			return nil
		},
	}
}

func newStatusCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := tokenCache().Status()
			if !status.Authenticated {
				fmt.Fprintln(app.IO.Out, "Not logged in. Run `plmr login`.")
				return nil
			}
			state := "valid"
			if status.Expired {
				state = "expired, refreshes on next sync"
			}
			fmt.Fprintf(app.IO.Out, "Logged in as client %s\nToken: %s (expires %s)\n",
				status.ClientID, state, status.Expiry.Local().Format(time.RFC1123))
			return nil
		},
	}
}
