package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

// Validate collects every problem instead of stopping at the first one so a
// user can fix the whole file in one pass.
func Validate(cfg Config) error {
	problems := []string{}

	if strings.TrimSpace(cfg.Output.Directory) == "" {
		problems = append(problems, "output.output_directory must not be empty")
	}
	switch cfg.Output.Format {
	case FormatMP3, FormatFLAC, FormatM4A:
	default:
		problems = append(problems, fmt.Sprintf("output.format %q is not one of mp3, flac, m4a", cfg.Output.Format))
	}
	switch cfg.Output.Quality {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		problems = append(problems, fmt.Sprintf("output.quality %q is not one of low, medium, high", cfg.Output.Quality))
	}
	if cfg.Output.BitrateKbps < 32 || cfg.Output.BitrateKbps > 320 {
		problems = append(problems, fmt.Sprintf("output.bitrate %d is out of range 32..320", cfg.Output.BitrateKbps))
	}
	if cfg.Output.Concurrency < 1 {
		problems = append(problems, "output.concurrency must be at least 1")
	}
	if cfg.Output.RetryAttempts < 0 {
		problems = append(problems, "output.retry_attempts must not be negative")
	}
	if cfg.Output.TimeoutS < 1 {
		problems = append(problems, "output.timeout must be at least 1 second")
	}

	if cfg.Audio.MinDurationS < 0 {
		problems = append(problems, "audio.min_duration must not be negative")
	}
	if cfg.Audio.MaxDurationS <= cfg.Audio.MinDurationS {
		problems = append(problems, "audio.max_duration must exceed audio.min_duration")
	}

	if cfg.Match.MaxResults < 1 {
		problems = append(problems, "match.max_results must be at least 1")
	}
	if cfg.Match.ScoreThreshold < 0 || cfg.Match.ScoreThreshold > 110 {
		problems = append(problems, "match.score_threshold must be within 0..110")
	}
	if cfg.Match.DurationToleranceS < 1 {
		problems = append(problems, "match.duration_tolerance must be at least 1 second")
	}

	if cfg.Lyrics.Enabled {
		switch cfg.Lyrics.Format {
		case LyricsTXT, LyricsLRC, LyricsBoth:
		default:
			problems = append(problems, fmt.Sprintf("lyrics.format %q is not one of txt, lrc, both", cfg.Lyrics.Format))
		}
		if !cfg.Lyrics.DownloadSeparate && !cfg.Lyrics.EmbedInAudio {
			problems = append(problems, "lyrics enabled but neither download_separate_files nor embed_in_audio is set")
		}
		if cfg.Lyrics.MinLength < 1 {
			problems = append(problems, "lyrics.min_length must be at least 1")
		}
		if cfg.Lyrics.MaxAttempts < 1 {
			problems = append(problems, "lyrics.max_attempts must be at least 1")
		}
		if cfg.Lyrics.SimilarityThreshold < 0 || cfg.Lyrics.SimilarityThreshold > 1 {
			problems = append(problems, fmt.Sprintf("lyrics.similarity_threshold %.2f is out of range 0..1", cfg.Lyrics.SimilarityThreshold))
		}
		if known := knownLyricsSources(); !known[cfg.Lyrics.PrimarySource] {
			problems = append(problems, fmt.Sprintf("lyrics.primary_source %q is unknown", cfg.Lyrics.PrimarySource))
		}
		for _, source := range cfg.Lyrics.FallbackSources {
			if !knownLyricsSources()[source] {
				problems = append(problems, fmt.Sprintf("lyrics.fallback_sources entry %q is unknown", source))
			}
		}
	}

	if cfg.Naming.MaxFilenameLength < 20 || cfg.Naming.MaxFilenameLength > 255 {
		problems = append(problems, fmt.Sprintf("naming.max_filename_length %d is out of range 20..255", cfg.Naming.MaxFilenameLength))
	}
	if strings.TrimSpace(cfg.Naming.TrackFormat) == "" {
		problems = append(problems, "naming.track_format must not be empty")
	}

	if cfg.Metadata.ID3Version != 3 && cfg.Metadata.ID3Version != 4 {
		problems = append(problems, fmt.Sprintf("metadata.id3_version %d must be 3 or 4", cfg.Metadata.ID3Version))
	}
	switch strings.ToLower(cfg.Metadata.Encoding) {
	case "utf-8", "utf8", "utf-16", "utf16", "iso-8859-1", "latin1":
	default:
		problems = append(problems, fmt.Sprintf("metadata.encoding %q is not one of utf-8, utf-16, iso-8859-1", cfg.Metadata.Encoding))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func knownLyricsSources() map[string]bool {
	return map[string]bool{"lrclib": true, "genius": true, "ovh": true}
}
