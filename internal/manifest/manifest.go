// Package manifest owns tracklist.txt, the line-oriented file that records
// local playlist state and drives incremental sync.
package manifest

import (
	"time"

	"github.com/jaa/playlist-mirror/internal/model"
)

const (
	FileName      = "tracklist.txt"
	FormatVersion = "2.0"
	timeLayout    = "2006-01-02 15:04:05"
)

type Header struct {
	FormatVersion string
	PlaylistName  string
	SourceID      string
	Created       time.Time
	LastModified  time.Time
	TotalTracks   int
	LyricsEnabled bool
	LyricsSource  string

	Description   string
	Owner         string
	Public        *bool
	Collaborative *bool
}

// Entry is one parsed track line.
type Entry struct {
	Position     int
	Artists      string
	Title        string
	DurationS    int
	SourceID     string
	AudioStatus  model.AudioStatus
	LyricsStatus model.LyricsStatus
	LocalFile    string
	LyricsRef    string
}

type Manifest struct {
	Header  Header
	Entries []Entry
}

var audioIcons = []struct {
	icon   string
	status model.AudioStatus
}{
	{"✅", model.AudioDownloaded},
	{"⏳", model.AudioPending},
	{"❌", model.AudioFailed},
	{"⏭️", model.AudioSkipped},
	{"⬇️", model.AudioDownloading},
}

var lyricsIcons = []struct {
	icon   string
	status model.LyricsStatus
}{
	{"🎵", model.LyricsDownloaded},
	{"🚫", model.LyricsNotFound},
	{"🎼", model.LyricsInstrumental},
	{"⏳", model.LyricsPending},
	{"❌", model.LyricsFailed},
	{"⏭️", model.LyricsSkipped},
	{"⬇️", model.LyricsDownloading},
}

func audioIcon(status model.AudioStatus) string {
	for _, entry := range audioIcons {
		if entry.status == status {
			return entry.icon
		}
	}
	return "⏳"
}

func lyricsIcon(status model.LyricsStatus) string {
	for _, entry := range lyricsIcons {
		if entry.status == status {
			return entry.icon
		}
	}
	return "⏳"
}
