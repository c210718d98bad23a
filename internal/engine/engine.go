// Package engine plans and executes playlist sync runs: it reconciles the
// remote playlist against the local manifest, drives the per-track pipeline
// through a bounded worker pool and rewrites the manifest at the end.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/downloader"
	"github.com/jaa/playlist-mirror/internal/lyrics"
	"github.com/jaa/playlist-mirror/internal/manifest"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/output"
	"github.com/jaa/playlist-mirror/internal/resolver"
	"github.com/jaa/playlist-mirror/internal/tagger"
)

var ErrInterrupted = errors.New("sync interrupted")

// Catalog is the remote playlist surface the engine needs.
type Catalog interface {
	AllPlaylistTracks(ctx context.Context, id string) (*model.Playlist, error)
	CheckAccess(ctx context.Context, id string) error
}

// TrackResolver finds the downloadable candidate for one track.
type TrackResolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*resolver.Match, error)
}

// AudioDownloader fetches and extracts one candidate into the playlist dir.
type AudioDownloader interface {
	Download(ctx context.Context, videoID, basePath string, onProgress func(downloader.Progress)) (string, error)
	SweepStaging()
}

// AudioProcessor applies post-download cleanup in place.
type AudioProcessor interface {
	Process(ctx context.Context, path string) error
}

// LyricsSearcher queries the configured providers for one track.
type LyricsSearcher interface {
	Search(ctx context.Context, req lyrics.Request) (*lyrics.Result, error)
}

// TrackTagger embeds metadata, art and lyrics into a finished file.
type TrackTagger interface {
	Tag(ctx context.Context, path, format string, meta tagger.Metadata) error
}

type Engine struct {
	Config config.Config

	Catalog    Catalog
	Resolver   TrackResolver
	Downloader AudioDownloader
	Processor  AudioProcessor
	Lyrics     LyricsSearcher
	LyricsFile *lyrics.Writer
	Tagger     TrackTagger
	Store      *manifest.Store

	// Validate checks a finished or previously downloaded file; defaults to
	// downloader.Validate.
	Validate func(path, format string) error
	// FetchCover loads album art for embedding; nil disables art.
	FetchCover func(ctx context.Context, album model.Album) ([]byte, error)
	// OnProgress receives download progress for the CLI progress bar.
	OnProgress func(track *model.PlaylistTrack, p downloader.Progress)

	Emitter output.EventEmitter
	Now     func() time.Time
}

func New(cfg config.Config) *Engine {
	return &Engine{
		Config:   cfg,
		Store:    manifest.NewStore(cfg.Sync.BackupTracklist),
		Validate: downloader.Validate,
		Emitter:  output.NoOpEmitter{},
		Now:      time.Now,
	}
}

type SyncOptions struct {
	// DryRun plans and reports without touching files.
	DryRun bool
	// LyricsOnly skips audio work and only fills in missing lyrics.
	LyricsOnly bool
}

type SyncResult struct {
	Total       int
	Downloaded  int
	Failed      int
	Skipped     int
	Moved       int
	LyricsFound int
	Elapsed     time.Duration
	Interrupted bool
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
