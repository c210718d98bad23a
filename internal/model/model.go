package model

import "time"

// Track is remote catalog metadata, immutable within a sync run.
type Track struct {
	ID          string
	Title       string
	Artists     []string
	Album       Album
	DurationMS  int
	Explicit    bool
	TrackNumber int
	DiscNumber  int
	ISRC        string
	Available   bool
}

func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

func (t Track) DurationSeconds() int {
	return (t.DurationMS + 500) / 1000
}

type Album struct {
	ID          string
	Name        string
	Artists     []string
	ReleaseDate string // "2006", "2006-01" or "2006-01-02"
	Genres      []string
	Images      []Image
}

// Year returns the first four characters of the release date.
func (a Album) Year() string {
	if len(a.ReleaseDate) < 4 {
		return ""
	}
	return a.ReleaseDate[:4]
}

// BestImage picks the smallest image whose width is at least minWidth,
// falling back to the largest available one.
func (a Album) BestImage(minWidth int) (Image, bool) {
	var best Image
	var fallback Image
	found := false
	for _, img := range a.Images {
		if img.Width > fallback.Width {
			fallback = img
		}
		if img.Width >= minWidth && (!found || img.Width < best.Width) {
			best = img
			found = true
		}
	}
	if found {
		return best, true
	}
	if fallback.URL != "" {
		return fallback, true
	}
	return Image{}, false
}

type Image struct {
	URL    string
	Width  int
	Height int
}

type Playlist struct {
	ID          string
	Name        string
	Description string
	Owner       string
	SnapshotID  string
	TotalTracks int
	Tracks      []*PlaylistTrack
}

type AudioStatus string

const (
	AudioPending     AudioStatus = "pending"
	AudioDownloading AudioStatus = "downloading"
	AudioDownloaded  AudioStatus = "downloaded"
	AudioFailed      AudioStatus = "failed"
	AudioSkipped     AudioStatus = "skipped"
)

type LyricsStatus string

const (
	LyricsPending      LyricsStatus = "pending"
	LyricsDownloading  LyricsStatus = "downloading"
	LyricsDownloaded   LyricsStatus = "downloaded"
	LyricsFailed       LyricsStatus = "failed"
	LyricsNotFound     LyricsStatus = "not_found"
	LyricsInstrumental LyricsStatus = "instrumental"
	LyricsSkipped      LyricsStatus = "skipped"
)

// PlaylistTrack is a Track plus its playlist position and local sync state.
// While a download operation is in flight the worker owns the entry
// exclusively; the planner reads it back only after the pool drains.
type PlaylistTrack struct {
	Track
	Position int // 1-based
	AddedAt  time.Time

	AudioStatus  AudioStatus
	LyricsStatus LyricsStatus

	LocalPath        string
	LyricsPath       string
	SyncedLyricsPath string
	LyricsSource     string

	MatchVideoID string
	MatchScore   float64

	AudioAttempts  int
	LyricsAttempts int
	LastAttempt    time.Time
	LastError      string
}
