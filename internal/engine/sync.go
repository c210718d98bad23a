package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jaa/playlist-mirror/internal/downloader"
	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/lyrics"
	"github.com/jaa/playlist-mirror/internal/manifest"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/output"
	"github.com/jaa/playlist-mirror/internal/resolver"
	"github.com/jaa/playlist-mirror/internal/tagger"
)

// run carries the mutable state of one sync execution. Workers own their
// track exclusively; only the shared counters need the mutex.
type run struct {
	e    *Engine
	plan *Plan
	opts SyncOptions
	log  zerolog.Logger

	mu     sync.Mutex
	result SyncResult
}

func (r *run) tally(f func(*SyncResult)) {
	r.mu.Lock()
	f(&r.result)
	r.mu.Unlock()
}

func (r *run) emit(level output.Level, event output.EventName, track *model.PlaylistTrack, msg string, details map[string]any) {
	ev := output.Event{
		Timestamp: r.e.now(),
		Level:     level,
		Event:     event,
		Message:   msg,
		Details:   details,
	}
	if track != nil {
		ev.TrackID = track.ID
		ev.Position = track.Position
	}
	_ = r.e.Emitter.Emit(ev)

	entry := r.log.WithLevel(zlevel(level)).Str("event", string(event))
	if track != nil {
		entry = entry.Str("track_id", track.ID).Int("position", track.Position)
	}
	if len(details) > 0 {
		entry = entry.Fields(details)
	}
	entry.Msg(msg)
}

func zlevel(level output.Level) zerolog.Level {
	switch level {
	case output.LevelError:
		return zerolog.ErrorLevel
	case output.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Sync plans and executes one run against the remote playlist. Per-track
// failures are counted and the run continues; critical failures (config,
// manifest, auth) abort it.
func (e *Engine) Sync(ctx context.Context, playlistID string, opts SyncOptions) (SyncResult, error) {
	started := e.now()

	plan, err := e.Plan(ctx, playlistID)
	if err != nil {
		return SyncResult{}, err
	}

	r := &run{e: e, plan: plan, opts: opts, log: zerolog.Nop()}
	r.result.Total = len(plan.Playlist.Tracks)
	r.result.Skipped = len(plan.Skipped)

	// a dry run must leave the filesystem untouched, so the playlist
	// directory and run log only come into being for a real run
	if !opts.DryRun {
		if err := os.MkdirAll(plan.Dir, 0o755); err != nil {
			return SyncResult{}, errkind.New(errkind.Config, fmt.Errorf("create playlist directory: %w", err))
		}
		runLog, closeLog := openRunLog(plan.Dir, started)
		defer closeLog()
		r.log = runLog
	}

	for _, warning := range plan.Warnings {
		r.log.Warn().Msg(warning)
	}

	r.emit(output.LevelInfo, output.EventSyncStarted, nil,
		fmt.Sprintf("syncing %q (%d tracks)", plan.Playlist.Name, r.result.Total),
		map[string]any{"playlist_id": plan.Playlist.ID, "total": r.result.Total, "dry_run": opts.DryRun})
	r.emit(output.LevelInfo, output.EventPlanReady, nil,
		fmt.Sprintf("plan: %d to download, %d moved, %d removed, %d up to date, %d skipped",
			len(plan.Downloads), len(plan.Moves), len(plan.Removed), len(plan.UpToDate), len(plan.Skipped)),
		map[string]any{
			"downloads":  len(plan.Downloads),
			"moves":      len(plan.Moves),
			"removed":    len(plan.Removed),
			"up_to_date": len(plan.UpToDate),
			"skipped":    len(plan.Skipped),
			"initial":    plan.Initial,
		})

	if opts.DryRun {
		r.result.Elapsed = e.now().Sub(started)
		r.emit(output.LevelInfo, output.EventSyncFinished, nil, "dry run complete", nil)
		return r.result, nil
	}

	if e.Downloader != nil && !opts.LyricsOnly {
		e.Downloader.SweepStaging()
	}

	waitErr := r.runWorkers(ctx)
	interrupted := errors.Is(waitErr, context.Canceled) || errors.Is(waitErr, context.DeadlineExceeded)
	critical := waitErr != nil && !interrupted

	var manifestErr error
	if !critical {
		for _, mv := range plan.Moves {
			r.tally(func(res *SyncResult) { res.Moved++ })
			r.emit(output.LevelInfo, output.EventTrackMoved, mv.Track,
				fmt.Sprintf("moved from position %d to %d", mv.FromPosition, mv.Track.Position),
				map[string]any{"from": mv.FromPosition, "to": mv.Track.Position})
		}
		for _, entry := range plan.Removed {
			r.log.Info().Str("track_id", entry.SourceID).
				Msgf("%q removed from remote playlist, local file kept", entry.Title)
		}
		manifestErr = r.writeManifest()
	}

	r.result.Elapsed = e.now().Sub(started)

	switch {
	case interrupted:
		r.result.Interrupted = true
		r.emit(output.LevelError, output.EventSyncFinished, nil, "sync interrupted", r.summaryDetails())
		return r.result, ErrInterrupted
	case critical:
		r.emit(output.LevelError, output.EventSyncFinished, nil, fmt.Sprintf("sync aborted: %v", waitErr), r.summaryDetails())
		return r.result, waitErr
	case manifestErr != nil:
		return r.result, manifestErr
	}

	r.emit(output.LevelInfo, output.EventSyncFinished, nil,
		fmt.Sprintf("sync finished: %d downloaded, %d failed, %d moved, %d skipped, %d lyrics",
			r.result.Downloaded, r.result.Failed, r.result.Moved, r.result.Skipped, r.result.LyricsFound),
		r.summaryDetails())
	return r.result, nil
}

func (r *run) summaryDetails() map[string]any {
	return map[string]any{
		"total":        r.result.Total,
		"downloaded":   r.result.Downloaded,
		"failed":       r.result.Failed,
		"skipped":      r.result.Skipped,
		"moved":        r.result.Moved,
		"lyrics_found": r.result.LyricsFound,
	}
}

func (r *run) runWorkers(ctx context.Context) error {
	concurrency := r.e.Config.Output.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	if !r.opts.LyricsOnly {
		for _, track := range r.plan.Downloads {
			track := track
			g.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				return r.syncTrack(groupCtx, track)
			})
		}
	}

	if r.e.lyricsEnabled() {
		backfill := r.plan.UpToDate
		if r.opts.LyricsOnly {
			backfill = r.plan.Playlist.Tracks
		}
		for _, track := range backfill {
			if !needsLyrics(track) {
				continue
			}
			track := track
			g.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				res := r.syncLyrics(groupCtx, track)
				if res != nil && r.e.Config.Lyrics.EmbedInAudio && track.LocalPath != "" {
					r.tagTrack(groupCtx, track, res)
				}
				return nil
			})
		}
	}

	return g.Wait()
}

func (e *Engine) lyricsEnabled() bool {
	return e.Lyrics != nil && e.Config.Lyrics.Enabled && e.Config.Sync.SyncLyrics
}

func needsLyrics(track *model.PlaylistTrack) bool {
	return track.LyricsStatus == model.LyricsPending || track.LyricsStatus == model.LyricsFailed
}

// syncTrack runs the per-track pipeline: resolve, download, validate,
// post-process, lyrics, tag. A nil return means the run should continue;
// only critical errors propagate.
func (r *run) syncTrack(ctx context.Context, track *model.PlaylistTrack) error {
	e := r.e
	artists := strings.Join(track.Artists, ", ")

	r.emit(output.LevelInfo, output.EventTrackStarted, track,
		fmt.Sprintf("%s - %s", artists, track.Title), nil)

	track.AudioAttempts++
	track.LastAttempt = e.now()
	track.AudioStatus = model.AudioDownloading

	match, err := e.Resolver.Resolve(ctx, resolver.Request{
		Artist:    artists,
		Title:     track.Title,
		Album:     track.Album.Name,
		DurationS: track.DurationSeconds(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.failTrack(track, err)
	}
	if match == nil {
		return r.failTrack(track, errkind.New(errkind.Resolver,
			fmt.Errorf("no candidate matched %q by %s", track.Title, track.PrimaryArtist())))
	}
	track.MatchVideoID = match.Candidate.ID
	track.MatchScore = match.Score
	r.emit(output.LevelInfo, output.EventTrackResolved, track,
		fmt.Sprintf("matched %q (score %.0f)", match.Candidate.Title, match.Score),
		map[string]any{"video_id": match.Candidate.ID, "score": match.Score})

	base := filepath.Join(r.plan.Dir, TrackFileBase(e.Config.Naming, track))
	var progress func(downloader.Progress)
	if e.OnProgress != nil {
		progress = func(p downloader.Progress) { e.OnProgress(track, p) }
	}

	path, err := e.Downloader.Download(ctx, match.Candidate.ID, base, progress)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.failTrack(track, err)
	}
	if err := e.validate(path); err != nil {
		_ = os.Remove(path)
		return r.failTrack(track, err)
	}

	if e.Processor != nil {
		if err := e.Processor.Process(ctx, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.warnTrack(track, fmt.Sprintf("post-processing failed: %v", err))
		}
	}

	track.LocalPath = path
	track.AudioStatus = model.AudioDownloaded
	track.LastError = ""

	lyricsResult := r.syncLyrics(ctx, track)
	r.tagTrack(ctx, track, lyricsResult)

	r.tally(func(res *SyncResult) { res.Downloaded++ })
	r.emit(output.LevelInfo, output.EventTrackFinished, track,
		fmt.Sprintf("downloaded %s", filepath.Base(path)), nil)
	return nil
}

func (r *run) failTrack(track *model.PlaylistTrack, err error) error {
	track.AudioStatus = model.AudioFailed
	track.LastError = err.Error()
	r.tally(func(res *SyncResult) { res.Failed++ })
	r.emit(output.LevelError, output.EventTrackFailed, track, err.Error(), map[string]any{
		"kind":     errkind.Of(err).String(),
		"attempts": track.AudioAttempts,
	})
	if errkind.Of(err).Critical() {
		return err
	}
	return nil
}

func (r *run) warnTrack(track *model.PlaylistTrack, msg string) {
	r.emit(output.LevelWarn, output.EventTrackFailed, track, msg, nil)
}

// syncLyrics fetches, writes and records lyrics for one track. Lyrics
// failures never fail the track.
func (r *run) syncLyrics(ctx context.Context, track *model.PlaylistTrack) *lyrics.Result {
	e := r.e
	if !e.lyricsEnabled() {
		if track.LyricsStatus == model.LyricsPending {
			track.LyricsStatus = model.LyricsSkipped
		}
		return nil
	}
	if track.LyricsStatus == model.LyricsDownloaded || track.LyricsStatus == model.LyricsInstrumental {
		return nil
	}

	track.LyricsAttempts++
	track.LyricsStatus = model.LyricsDownloading
	res, err := e.Lyrics.Search(ctx, lyrics.Request{
		Artist: track.PrimaryArtist(),
		Title:  track.Title,
		Album:  track.Album.Name,
	})
	switch {
	case errors.Is(err, lyrics.ErrInstrumental):
		track.LyricsStatus = model.LyricsInstrumental
		r.log.Info().Str("track_id", track.ID).Msg("track is instrumental")
		return nil
	case err != nil:
		track.LyricsStatus = model.LyricsFailed
		r.warnTrack(track, fmt.Sprintf("lyrics lookup failed: %v", err))
		return nil
	case res == nil:
		track.LyricsStatus = model.LyricsNotFound
		return nil
	}

	if e.Config.Lyrics.DownloadSeparate && e.LyricsFile != nil {
		txt, lrc, err := e.LyricsFile.Write(r.plan.Dir, track.Position,
			strings.Join(track.Artists, ", "), track.Title, res)
		if err != nil {
			track.LyricsStatus = model.LyricsFailed
			r.warnTrack(track, fmt.Sprintf("writing lyrics failed: %v", err))
			return nil
		}
		track.LyricsPath = txt
		track.SyncedLyricsPath = lrc
	}

	track.LyricsStatus = model.LyricsDownloaded
	track.LyricsSource = res.Source
	r.tally(func(result *SyncResult) { result.LyricsFound++ })
	r.emit(output.LevelInfo, output.EventLyricsFound, track,
		fmt.Sprintf("lyrics found via %s (confidence %.2f)", res.Source, res.Confidence),
		map[string]any{"source": res.Source, "confidence": res.Confidence})
	return res
}

// tagTrack embeds metadata into the finished file. Tagging failures keep the
// audio and downgrade to a warning.
func (r *run) tagTrack(ctx context.Context, track *model.PlaylistTrack, lyricsResult *lyrics.Result) {
	e := r.e
	if e.Tagger == nil || track.LocalPath == "" {
		return
	}

	meta := tagger.FromTrack(track, e.Config.Metadata.AddComment)
	if !e.Config.Metadata.IncludeSourceTags {
		meta.Album = ""
		meta.AlbumArtist = ""
		meta.Year = ""
		meta.Genre = ""
		meta.DiscNumber = 0
	}
	if lyricsResult != nil && e.Config.Lyrics.EmbedInAudio {
		meta.Lyrics = lyricsResult.Plain
		meta.SyncedLRC = lyricsResult.Synced
	}
	if e.Config.Metadata.IncludeAlbumArt && e.FetchCover != nil {
		cover, err := e.FetchCover(ctx, track.Album)
		if err != nil {
			r.warnTrack(track, fmt.Sprintf("album art fetch failed: %v", err))
		} else {
			meta.Cover = cover
		}
	}

	if err := e.Tagger.Tag(ctx, track.LocalPath, string(e.Config.Output.Format), meta); err != nil {
		r.warnTrack(track, fmt.Sprintf("tagging failed: %v", err))
	}
}

// writeManifest rewrites the tracklist from the post-run snapshot, ordered
// by playlist position. Only this goroutine touches the file; workers have
// drained by the time it runs.
func (r *run) writeManifest() error {
	tracks := append([]*model.PlaylistTrack(nil), r.plan.Playlist.Tracks...)
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Position < tracks[j].Position })
	r.plan.Playlist.Tracks = tracks

	if r.plan.Initial {
		return r.e.Store.Create(r.plan.Playlist, r.plan.Dir, r.e.lyricsEnabled(), r.e.Config.Lyrics.PrimarySource)
	}
	return r.e.Store.Update(r.plan.ManifestPath, tracks, func(h *manifest.Header) {
		h.PlaylistName = r.plan.Playlist.Name
		h.Description = r.plan.Playlist.Description
		h.Owner = r.plan.Playlist.Owner
	})
}
