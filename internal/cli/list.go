package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/engine"
)

func newListCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mirrored playlists under the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(cfg.Output.Directory)
			if err != nil {
				return err
			}

			mirrors, err := engine.ListMirrors(root)
			if err != nil {
				return err
			}

			if app.Opts.JSON {
				enc := json.NewEncoder(app.IO.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(mirrors)
			}

			if len(mirrors) == 0 {
				fmt.Fprintln(app.IO.Out, "No mirrored playlists found in", root)
				return nil
			}

			w := tabwriter.NewWriter(app.IO.Out, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTRACKS\tDOWNLOADED\tLYRICS\tLAST SYNC\tDIRECTORY")
			for _, m := range mirrors {
				lastSync := "-"
				if !m.LastModified.IsZero() {
					lastSync = m.LastModified.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
					m.Name, m.TotalTracks, m.Downloaded, m.LyricsCount, lastSync, m.Dir)
			}
			return w.Flush()
		},
	}
}
