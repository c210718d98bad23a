package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaa/playlist-mirror/internal/auth"
	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/downloader"
	"github.com/jaa/playlist-mirror/internal/engine"
	"github.com/jaa/playlist-mirror/internal/httpx"
	"github.com/jaa/playlist-mirror/internal/lyrics"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/output"
	"github.com/jaa/playlist-mirror/internal/processor"
	"github.com/jaa/playlist-mirror/internal/resolver"
	"github.com/jaa/playlist-mirror/internal/spotify"
	"github.com/jaa/playlist-mirror/internal/tagger"
	"github.com/jaa/playlist-mirror/internal/ytmusic"
)

const apiTimeout = 30 * time.Second

func loadConfig(app *AppContext) (config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	return config.Load(config.LoadOptions{
		ExplicitPath: app.Opts.ConfigPath,
		WorkingDir:   cwd,
	})
}

func isTTY(file *os.File) bool {
	stat, err := file.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func promptYesNo(app *AppContext, question string) (bool, error) {
	if app.Opts.NoInput {
		return false, nil
	}
	fmt.Fprintf(app.IO.Out, "%s [y/N]: ", question)
	reader := bufio.NewReader(app.IO.In)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func newEmitter(app *AppContext) output.EventEmitter {
	if app.Opts.JSON {
		return output.NewJSONEmitter(app.IO.Out)
	}
	return output.NewHumanEmitter(app.IO.Out, app.IO.ErrOut, app.Opts.Quiet, app.Opts.Verbose)
}

func tokenCache() auth.TokenCache {
	path, err := config.TokenCachePath()
	if err != nil {
		return auth.TokenCache{}
	}
	return auth.TokenCache{Path: path}
}

func newCatalog(cfg config.Config, warn func(string)) (*spotify.Client, error) {
	creds, err := auth.CredentialsResolver{Getenv: func(key string) string {
		switch key {
		case "SPOTIFY_CLIENT_ID":
			return cfg.SpotifyClientID
		case "SPOTIFY_CLIENT_SECRET":
			return cfg.SpotifyClientSecret
		}
		return ""
	}}.Resolve()
	if err != nil {
		return nil, err
	}

	provider := auth.NewProvider(creds, tokenCache(), &http.Client{Timeout: apiTimeout})
	client := spotify.NewClient(provider, httpx.NewClient(apiTimeout))
	client.OnWarning = warn
	return client, nil
}

func newLyricsResolver(cfg config.Config, warn func(string)) *lyrics.Resolver {
	timeout := time.Duration(cfg.Lyrics.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = apiTimeout
	}
	client := httpx.NewClient(timeout)

	providers := []lyrics.Provider{
		lyrics.NewLRCLib(client),
		lyrics.NewGenius(client, cfg.GeniusAccessToken),
		lyrics.NewOVH(client),
	}
	r := lyrics.NewResolver(providers, cfg.Lyrics.PrimarySource, cfg.Lyrics.FallbackSources)
	if cfg.Lyrics.MinLength > 0 {
		r.MinLength = cfg.Lyrics.MinLength
	}
	r.CleanLyrics = cfg.Lyrics.CleanLyrics
	r.MaxAttempts = cfg.Lyrics.MaxAttempts
	r.MinConfidence = cfg.Lyrics.SimilarityThreshold
	r.OnWarning = warn
	return r
}

// buildEngine wires every sync component from the effective config. The
// returned engine still needs an Emitter before use.
func buildEngine(cfg config.Config, warn func(string)) (*engine.Engine, error) {
	catalog, err := newCatalog(cfg, warn)
	if err != nil {
		return nil, err
	}

	root, err := config.ExpandPath(cfg.Output.Directory)
	if err != nil {
		return nil, fmt.Errorf("output_directory: %w", err)
	}

	e := engine.New(cfg)
	e.Catalog = catalog
	e.Resolver = resolver.New(ytmusic.NewClient(""), resolver.Options{
		PreferOfficial:    cfg.Match.PreferOfficial,
		ExcludeLive:       cfg.Match.ExcludeLive,
		ExcludeCovers:     cfg.Match.ExcludeCovers,
		DurationTolerance: cfg.Match.DurationToleranceS,
		MaxResults:        cfg.Match.MaxResults,
		ScoreThreshold:    cfg.Match.ScoreThreshold,
	})
	e.Downloader = downloader.New("", filepath.Join(root, downloader.StagingDirName), downloader.Options{
		Format:        string(cfg.Output.Format),
		Quality:       string(cfg.Output.Quality),
		BitrateKbps:   cfg.Output.BitrateKbps,
		SampleRate:    cfg.Audio.SampleRate,
		Channels:      cfg.Audio.Channels,
		MinDurationS:  cfg.Audio.MinDurationS,
		MaxDurationS:  cfg.Audio.MaxDurationS,
		Timeout:       time.Duration(cfg.Output.TimeoutS) * time.Second,
		RetryAttempts: cfg.Output.RetryAttempts,
	})
	if cfg.Audio.TrimSilence || cfg.Audio.Normalize {
		e.Processor = processor.New("", cfg.Audio.TrimSilence, cfg.Audio.Normalize)
	}
	if cfg.Lyrics.Enabled {
		e.Lyrics = newLyricsResolver(cfg, warn)
		if cfg.Lyrics.DownloadSeparate {
			writeTxt := cfg.Lyrics.Format == config.LyricsTXT || cfg.Lyrics.Format == config.LyricsBoth
			writeLRC := cfg.Lyrics.Format == config.LyricsLRC || cfg.Lyrics.Format == config.LyricsBoth
			e.LyricsFile = lyrics.NewWriter(writeTxt, writeLRC, cfg.Naming.MaxFilenameLength)
		}
	}
	tg := tagger.New("", cfg.Metadata.ID3Version)
	tg.PreserveExisting = cfg.Metadata.PreserveOriginalTags
	tg.Encoding = cfg.Metadata.Encoding
	e.Tagger = tg
	if cfg.Metadata.IncludeAlbumArt {
		coverClient := httpx.NewClient(apiTimeout)
		e.FetchCover = func(ctx context.Context, album model.Album) ([]byte, error) {
			return tagger.FetchCover(ctx, coverClient, album)
		}
	}
	return e, nil
}
