package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/hako/durafmt"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jaa/playlist-mirror/internal/downloader"
	"github.com/jaa/playlist-mirror/internal/engine"
	"github.com/jaa/playlist-mirror/internal/exitcode"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/spotify"
)

func newSyncCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <playlist>",
		Short: "Sync a playlist into its local mirror directory",
		Long:  "Sync fetches the playlist, downloads missing tracks, applies remote reorderings and removals to the tracklist, and fills in missing lyrics.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(app, args[0], engine.SyncOptions{DryRun: app.Opts.DryRun})
		},
	}
}

func newDownloadCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <playlist>",
		Short: "Alias for sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(app, args[0], engine.SyncOptions{DryRun: app.Opts.DryRun})
		},
	}
}

func newCheckCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <playlist>",
		Short: "Show what a sync would do without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(app, args[0], engine.SyncOptions{DryRun: true})
		},
	}
}

func runSync(app *AppContext, ref string, opts engine.SyncOptions) error {
	playlistID, err := spotify.ParsePlaylistRef(ref)
	if err != nil {
		return withExitCode(exitcode.InvalidUsage, err)
	}

	cfg, err := loadConfig(app)
	if err != nil {
		return err
	}

	warn := func(msg string) {
		if !app.Opts.Quiet {
			fmt.Fprintln(app.IO.ErrOut, "WARN:", msg)
		}
	}
	eng, err := buildEngine(cfg, warn)
	if err != nil {
		return err
	}
	eng.Emitter = newEmitter(app)

	interactive := !app.Opts.JSON && !app.Opts.Quiet && isTTY(os.Stdout)
	if interactive && cfg.Output.Concurrency <= 1 {
		eng.OnProgress = newDownloadProgress(app).update
	}

	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals()...)
	defer stop()

	result, runErr := eng.Sync(ctx, playlistID, opts)
	if runErr != nil {
		if errors.Is(runErr, engine.ErrInterrupted) {
			return withExitCode(exitcode.Interrupted, runErr)
		}
		return runErr
	}

	if !app.Opts.JSON {
		printSummary(app, result, opts.DryRun)
	}
	return nil
}

func printSummary(app *AppContext, result engine.SyncResult, dryRun bool) {
	if dryRun {
		return
	}
	elapsed := durafmt.Parse(result.Elapsed.Round(time.Second)).LimitFirstN(2)
	fmt.Fprintf(app.IO.Out, "Done: %d downloaded, %d failed, %d moved, %d skipped, %d lyrics in %s\n",
		result.Downloaded, result.Failed, result.Moved, result.Skipped, result.LyricsFound, elapsed)
}

// downloadProgress renders one byte-level bar per track. Only wired at
// concurrency 1; interleaved bars from parallel downloads are unreadable.
type downloadProgress struct {
	app *AppContext

	mu      sync.Mutex
	videoID string
	bar     *progressbar.ProgressBar
}

func newDownloadProgress(app *AppContext) *downloadProgress {
	return &downloadProgress{app: app}
}

func (d *downloadProgress) update(track *model.PlaylistTrack, p downloader.Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.Status != downloader.StatusDownloading {
		if d.bar != nil {
			_ = d.bar.Finish()
			d.bar = nil
			d.videoID = ""
		}
		return
	}
	if d.bar == nil || d.videoID != p.VideoID {
		total := p.TotalBytes
		if total <= 0 {
			total = -1
		}
		d.videoID = p.VideoID
		d.bar = progressbar.DefaultBytes(total, fmt.Sprintf("%02d %s", track.Position, track.Title))
	}
	_ = d.bar.Set64(p.Bytes)
}
