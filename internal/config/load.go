package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type LoadOptions struct {
	ExplicitPath string
	WorkingDir   string
	Env          map[string]string
}

// fileConfig mirrors Config with pointer fields so absent keys leave the
// defaults untouched when merging.
type fileConfig struct {
	Version  *int         `yaml:"version"`
	Output   fileOutput   `yaml:"output"`
	Audio    fileAudio    `yaml:"audio"`
	Match    fileMatch    `yaml:"match"`
	Lyrics   fileLyrics   `yaml:"lyrics"`
	Sync     fileSync     `yaml:"sync"`
	Metadata fileMetadata `yaml:"metadata"`
	Naming   fileNaming   `yaml:"naming"`
}

type fileOutput struct {
	Directory     *string `yaml:"output_directory"`
	Format        *string `yaml:"format"`
	Quality       *string `yaml:"quality"`
	BitrateKbps   *int    `yaml:"bitrate"`
	Concurrency   *int    `yaml:"concurrency"`
	RetryAttempts *int    `yaml:"retry_attempts"`
	TimeoutS      *int    `yaml:"timeout"`
}

type fileAudio struct {
	TrimSilence  *bool `yaml:"trim_silence"`
	Normalize    *bool `yaml:"normalize"`
	MinDurationS *int  `yaml:"min_duration"`
	MaxDurationS *int  `yaml:"max_duration"`
	SampleRate   *int  `yaml:"sample_rate"`
	Channels     *int  `yaml:"channels"`
}

type fileMatch struct {
	MaxResults         *int  `yaml:"max_results"`
	ScoreThreshold     *int  `yaml:"score_threshold"`
	PreferOfficial     *bool `yaml:"prefer_official"`
	ExcludeLive        *bool `yaml:"exclude_live"`
	ExcludeCovers      *bool `yaml:"exclude_covers"`
	DurationToleranceS *int  `yaml:"duration_tolerance"`
}

type fileLyrics struct {
	Enabled             *bool     `yaml:"enabled"`
	DownloadSeparate    *bool     `yaml:"download_separate_files"`
	EmbedInAudio        *bool     `yaml:"embed_in_audio"`
	Format              *string   `yaml:"format"`
	PrimarySource       *string   `yaml:"primary_source"`
	FallbackSources     *[]string `yaml:"fallback_sources"`
	CleanLyrics         *bool     `yaml:"clean_lyrics"`
	MinLength           *int      `yaml:"min_length"`
	TimeoutS            *int      `yaml:"timeout"`
	MaxAttempts         *int      `yaml:"max_attempts"`
	SimilarityThreshold *float64  `yaml:"similarity_threshold"`
}

type fileSync struct {
	AutoSync          *bool `yaml:"auto_sync"`
	SyncLyrics        *bool `yaml:"sync_lyrics"`
	BackupTracklist   *bool `yaml:"backup_tracklist"`
	DetectMovedTracks *bool `yaml:"detect_moved_tracks"`
}

type fileMetadata struct {
	IncludeAlbumArt      *bool   `yaml:"include_album_art"`
	IncludeSourceTags    *bool   `yaml:"include_spotify_metadata"`
	PreserveOriginalTags *bool   `yaml:"preserve_original_tags"`
	AddComment           *string `yaml:"add_comment"`
	ID3Version           *int    `yaml:"id3_version"`
	Encoding             *string `yaml:"encoding"`
}

type fileNaming struct {
	TrackFormat       *string `yaml:"track_format"`
	SanitizeFilenames *bool   `yaml:"sanitize_filenames"`
	MaxFilenameLength *int    `yaml:"max_filename_length"`
	ReplaceSpaces     *bool   `yaml:"replace_spaces"`
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	cwd := opts.WorkingDir
	if strings.TrimSpace(cwd) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("resolve working directory: %w", err)
		}
		cwd = wd
	}

	env := opts.Env
	if env == nil {
		env = osEnvMap()
	}

	if explicit := strings.TrimSpace(opts.ExplicitPath); explicit != "" {
		if err := mergeFile(&cfg, explicit, true); err != nil {
			return Config{}, err
		}
	} else {
		userPath, err := UserConfigPath()
		if err != nil {
			return Config{}, err
		}
		if err := mergeFile(&cfg, userPath, false); err != nil {
			return Config{}, err
		}
		if err := mergeFile(&cfg, ProjectConfigPath(cwd), false); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg, env); err != nil {
		return Config{}, err
	}

	cfg.SpotifyClientID = strings.TrimSpace(env["SPOTIFY_CLIENT_ID"])
	cfg.SpotifyClientSecret = strings.TrimSpace(env["SPOTIFY_CLIENT_SECRET"])
	cfg.GeniusAccessToken = strings.TrimSpace(env["GENIUS_ACCESS_TOKEN"])

	return cfg, nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file does not exist: %s", path)
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(payload, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	override(&cfg.Version, fc.Version)

	overrideTrimmed(&cfg.Output.Directory, fc.Output.Directory)
	overrideString((*string)(&cfg.Output.Format), fc.Output.Format)
	overrideString((*string)(&cfg.Output.Quality), fc.Output.Quality)
	override(&cfg.Output.BitrateKbps, fc.Output.BitrateKbps)
	override(&cfg.Output.Concurrency, fc.Output.Concurrency)
	override(&cfg.Output.RetryAttempts, fc.Output.RetryAttempts)
	override(&cfg.Output.TimeoutS, fc.Output.TimeoutS)

	override(&cfg.Audio.TrimSilence, fc.Audio.TrimSilence)
	override(&cfg.Audio.Normalize, fc.Audio.Normalize)
	override(&cfg.Audio.MinDurationS, fc.Audio.MinDurationS)
	override(&cfg.Audio.MaxDurationS, fc.Audio.MaxDurationS)
	override(&cfg.Audio.SampleRate, fc.Audio.SampleRate)
	override(&cfg.Audio.Channels, fc.Audio.Channels)

	override(&cfg.Match.MaxResults, fc.Match.MaxResults)
	override(&cfg.Match.ScoreThreshold, fc.Match.ScoreThreshold)
	override(&cfg.Match.PreferOfficial, fc.Match.PreferOfficial)
	override(&cfg.Match.ExcludeLive, fc.Match.ExcludeLive)
	override(&cfg.Match.ExcludeCovers, fc.Match.ExcludeCovers)
	override(&cfg.Match.DurationToleranceS, fc.Match.DurationToleranceS)

	override(&cfg.Lyrics.Enabled, fc.Lyrics.Enabled)
	override(&cfg.Lyrics.DownloadSeparate, fc.Lyrics.DownloadSeparate)
	override(&cfg.Lyrics.EmbedInAudio, fc.Lyrics.EmbedInAudio)
	overrideString((*string)(&cfg.Lyrics.Format), fc.Lyrics.Format)
	overrideTrimmed(&cfg.Lyrics.PrimarySource, fc.Lyrics.PrimarySource)
	if fc.Lyrics.FallbackSources != nil {
		cfg.Lyrics.FallbackSources = append([]string{}, (*fc.Lyrics.FallbackSources)...)
	}
	override(&cfg.Lyrics.CleanLyrics, fc.Lyrics.CleanLyrics)
	override(&cfg.Lyrics.MinLength, fc.Lyrics.MinLength)
	override(&cfg.Lyrics.TimeoutS, fc.Lyrics.TimeoutS)
	override(&cfg.Lyrics.MaxAttempts, fc.Lyrics.MaxAttempts)
	override(&cfg.Lyrics.SimilarityThreshold, fc.Lyrics.SimilarityThreshold)

	override(&cfg.Sync.AutoSync, fc.Sync.AutoSync)
	override(&cfg.Sync.SyncLyrics, fc.Sync.SyncLyrics)
	override(&cfg.Sync.BackupTracklist, fc.Sync.BackupTracklist)
	override(&cfg.Sync.DetectMovedTracks, fc.Sync.DetectMovedTracks)

	override(&cfg.Metadata.IncludeAlbumArt, fc.Metadata.IncludeAlbumArt)
	override(&cfg.Metadata.IncludeSourceTags, fc.Metadata.IncludeSourceTags)
	override(&cfg.Metadata.PreserveOriginalTags, fc.Metadata.PreserveOriginalTags)
	override(&cfg.Metadata.AddComment, fc.Metadata.AddComment)
	override(&cfg.Metadata.ID3Version, fc.Metadata.ID3Version)
	overrideTrimmed(&cfg.Metadata.Encoding, fc.Metadata.Encoding)

	overrideTrimmed(&cfg.Naming.TrackFormat, fc.Naming.TrackFormat)
	override(&cfg.Naming.SanitizeFilenames, fc.Naming.SanitizeFilenames)
	override(&cfg.Naming.MaxFilenameLength, fc.Naming.MaxFilenameLength)
	override(&cfg.Naming.ReplaceSpaces, fc.Naming.ReplaceSpaces)

	return nil
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func overrideString(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}

func overrideTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func applyEnvOverrides(cfg *Config, env map[string]string) error {
	if value := strings.TrimSpace(env["PLMR_OUTPUT_DIRECTORY"]); value != "" {
		cfg.Output.Directory = value
	}
	if value := strings.TrimSpace(env["PLMR_FORMAT"]); value != "" {
		cfg.Output.Format = OutputFormat(strings.ToLower(value))
	}
	if value := strings.TrimSpace(env["PLMR_CONCURRENCY"]); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PLMR_CONCURRENCY value %q: %w", value, err)
		}
		cfg.Output.Concurrency = parsed
	}
	if value := strings.TrimSpace(env["PLMR_TIMEOUT"]); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PLMR_TIMEOUT value %q: %w", value, err)
		}
		cfg.Output.TimeoutS = parsed
	}
	if value := strings.TrimSpace(env["PLMR_LYRICS_ENABLED"]); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid PLMR_LYRICS_ENABLED value %q: %w", value, err)
		}
		cfg.Lyrics.Enabled = parsed
	}
	return nil
}

func osEnvMap() map[string]string {
	result := map[string]string{}
	for _, pair := range os.Environ() {
		pieces := strings.SplitN(pair, "=", 2)
		if len(pieces) == 2 {
			result[pieces[0]] = pieces[1]
		}
	}
	return result
}
