package cli

import (
	"github.com/spf13/cobra"

	"github.com/jaa/playlist-mirror/internal/engine"
)

func newLyricsCommand(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lyrics",
		Short: "Lyrics operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "download <playlist>",
		Short: "Fetch missing lyrics for already-downloaded tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(app, args[0], engine.SyncOptions{
				DryRun:     app.Opts.DryRun,
				LyricsOnly: true,
			})
		},
	})

	return cmd
}
