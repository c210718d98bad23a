package config

type OutputFormat string

const (
	FormatMP3  OutputFormat = "mp3"
	FormatFLAC OutputFormat = "flac"
	FormatM4A  OutputFormat = "m4a"
)

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

type LyricsFormat string

const (
	LyricsTXT  LyricsFormat = "txt"
	LyricsLRC  LyricsFormat = "lrc"
	LyricsBoth LyricsFormat = "both"
)

type Config struct {
	Version  int      `yaml:"version"`
	Output   Output   `yaml:"output"`
	Audio    Audio    `yaml:"audio"`
	Match    Match    `yaml:"match"`
	Lyrics   Lyrics   `yaml:"lyrics"`
	Sync     Sync     `yaml:"sync"`
	Metadata Metadata `yaml:"metadata"`
	Naming   Naming   `yaml:"naming"`

	// Secrets come from the environment only, never from files.
	SpotifyClientID     string `yaml:"-"`
	SpotifyClientSecret string `yaml:"-"`
	GeniusAccessToken   string `yaml:"-"`
}

type Output struct {
	Directory     string       `yaml:"output_directory"`
	Format        OutputFormat `yaml:"format"`
	Quality       Quality      `yaml:"quality"`
	BitrateKbps   int          `yaml:"bitrate"`
	Concurrency   int          `yaml:"concurrency"`
	RetryAttempts int          `yaml:"retry_attempts"`
	TimeoutS      int          `yaml:"timeout"`
}

type Audio struct {
	TrimSilence  bool `yaml:"trim_silence"`
	Normalize    bool `yaml:"normalize"`
	MinDurationS int  `yaml:"min_duration"`
	MaxDurationS int  `yaml:"max_duration"`
	SampleRate   int  `yaml:"sample_rate"`
	Channels     int  `yaml:"channels"`
}

// Match configures the secondary-catalog search and candidate scoring.
type Match struct {
	MaxResults         int  `yaml:"max_results"`
	ScoreThreshold     int  `yaml:"score_threshold"`
	PreferOfficial     bool `yaml:"prefer_official"`
	ExcludeLive        bool `yaml:"exclude_live"`
	ExcludeCovers      bool `yaml:"exclude_covers"`
	DurationToleranceS int  `yaml:"duration_tolerance"`
}

type Lyrics struct {
	Enabled             bool         `yaml:"enabled"`
	DownloadSeparate    bool         `yaml:"download_separate_files"`
	EmbedInAudio        bool         `yaml:"embed_in_audio"`
	Format              LyricsFormat `yaml:"format"`
	PrimarySource       string       `yaml:"primary_source"`
	FallbackSources     []string     `yaml:"fallback_sources"`
	CleanLyrics         bool         `yaml:"clean_lyrics"`
	MinLength           int          `yaml:"min_length"`
	TimeoutS            int          `yaml:"timeout"`
	MaxAttempts         int          `yaml:"max_attempts"`
	SimilarityThreshold float64      `yaml:"similarity_threshold"`
}

type Sync struct {
	AutoSync          bool `yaml:"auto_sync"`
	SyncLyrics        bool `yaml:"sync_lyrics"`
	BackupTracklist   bool `yaml:"backup_tracklist"`
	DetectMovedTracks bool `yaml:"detect_moved_tracks"`
}

type Metadata struct {
	IncludeAlbumArt      bool   `yaml:"include_album_art"`
	IncludeSourceTags    bool   `yaml:"include_spotify_metadata"`
	PreserveOriginalTags bool   `yaml:"preserve_original_tags"`
	AddComment           string `yaml:"add_comment"`
	ID3Version           int    `yaml:"id3_version"`
	Encoding             string `yaml:"encoding"`
}

type Naming struct {
	TrackFormat       string `yaml:"track_format"`
	SanitizeFilenames bool   `yaml:"sanitize_filenames"`
	MaxFilenameLength int    `yaml:"max_filename_length"`
	ReplaceSpaces     bool   `yaml:"replace_spaces"`
}

func DefaultConfig() Config {
	return Config{
		Version: 1,
		Output: Output{
			Directory:     "~/Music/playlist-mirror",
			Format:        FormatMP3,
			Quality:       QualityHigh,
			BitrateKbps:   192,
			Concurrency:   3,
			RetryAttempts: 3,
			TimeoutS:      300,
		},
		Audio: Audio{
			MinDurationS: 30,
			MaxDurationS: 960,
			SampleRate:   44100,
			Channels:     2,
		},
		Match: Match{
			MaxResults:         8,
			ScoreThreshold:     70,
			PreferOfficial:     true,
			ExcludeLive:        true,
			ExcludeCovers:      true,
			DurationToleranceS: 15,
		},
		Lyrics: Lyrics{
			Enabled:             true,
			DownloadSeparate:    true,
			EmbedInAudio:        true,
			Format:              LyricsBoth,
			PrimarySource:       "lrclib",
			FallbackSources:     []string{"genius", "ovh"},
			CleanLyrics:         true,
			MinLength:           50,
			TimeoutS:            30,
			MaxAttempts:         3,
			SimilarityThreshold: 0.6,
		},
		Sync: Sync{
			SyncLyrics:        true,
			BackupTracklist:   true,
			DetectMovedTracks: true,
		},
		Metadata: Metadata{
			IncludeAlbumArt:   true,
			IncludeSourceTags: true,
			AddComment:        "Mirrored with plmr",
			ID3Version:        4,
			Encoding:          "utf-8",
		},
		Naming: Naming{
			TrackFormat:       "{track} - {artist} - {title}",
			SanitizeFilenames: true,
			MaxFilenameLength: 200,
		},
	}
}
