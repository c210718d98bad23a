package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaa/playlist-mirror/internal/model"
)

func samplePlaylist() *model.Playlist {
	return &model.Playlist{
		ID:          "37i9dQZF1DXcBWIGoYBM5M",
		Name:        "Today's Top Hits",
		Owner:       "spotify",
		TotalTracks: 2,
		Tracks: []*model.PlaylistTrack{
			{
				Track: model.Track{
					ID:         "4uLU6hMCjMI75M1A2tKUQC",
					Title:      "Get Lucky",
					Artists:    []string{"Daft Punk", "Pharrell Williams"},
					DurationMS: 248000,
				},
				Position:     1,
				AudioStatus:  model.AudioDownloaded,
				LyricsStatus: model.LyricsDownloaded,
				LocalPath:    "/music/Top Hits/01 - Daft Punk - Get Lucky.mp3",
				LyricsPath:   "/music/Top Hits/01 - Daft Punk - Get Lucky.txt",
			},
			{
				Track: model.Track{
					ID:         "7ouMYWpwJ422jRcDASZB7P",
					Title:      "Numb",
					Artists:    []string{"Linkin Park"},
					DurationMS: 185000,
				},
				Position:     2,
				AudioStatus:  model.AudioPending,
				LyricsStatus: model.LyricsPending,
			},
		},
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(false)
	store.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	playlist := samplePlaylist()
	require.NoError(t, store.Create(playlist, dir, true, "lrclib"))

	m, warnings, err := Read(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, FormatVersion, m.Header.FormatVersion)
	require.Equal(t, "Today's Top Hits", m.Header.PlaylistName)
	require.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", m.Header.SourceID)
	require.Equal(t, 2, m.Header.TotalTracks)
	require.True(t, m.Header.LyricsEnabled)
	require.Equal(t, "lrclib", m.Header.LyricsSource)

	require.Len(t, m.Entries, 2)
	first := m.Entries[0]
	require.Equal(t, 1, first.Position)
	require.Equal(t, "Daft Punk, Pharrell Williams", first.Artists)
	require.Equal(t, "Get Lucky", first.Title)
	require.Equal(t, 248, first.DurationS)
	require.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", first.SourceID)
	require.Equal(t, model.AudioDownloaded, first.AudioStatus)
	require.Equal(t, model.LyricsDownloaded, first.LyricsStatus)
	require.Equal(t, "01 - Daft Punk - Get Lucky.mp3", first.LocalFile)
	require.Equal(t, "01 - Daft Punk - Get Lucky.txt", first.LyricsRef)

	second := m.Entries[1]
	require.Equal(t, model.AudioPending, second.AudioStatus)
	require.Empty(t, second.LocalFile)
}

func TestHeaderTotalMatchesLines(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(false)
	playlist := samplePlaylist()
	require.NoError(t, store.Create(playlist, dir, false, "none"))

	m, _, err := Read(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Equal(t, len(m.Entries), m.Header.TotalTracks)
}

func TestReadMissingFile(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
}

func TestReadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
	_, _, err := Read(path)
	require.Error(t, err)
}

func TestReadCorruptHeaderIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := "# Playlist: X\n# Source ID: abc\n✅🎵 01. A - B (3:20) [spotify:track:abc123]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	_, _, err := Read(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestReadSkipsBadTrackLines(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(false)
	require.NoError(t, store.Create(samplePlaylist(), dir, false, "none"))

	path := filepath.Join(dir, FileName)
	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(payload, []byte("garbage line without structure\n")...), 0o644))

	m, warnings, err := Read(path)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	require.Len(t, warnings, 1)
}

func TestUnknownIconTreatedAsPending(t *testing.T) {
	entry, warn, ok := parseTrackLine("🦄🎵 03. Artist - Title (2:05) [spotify:track:abcDEF123] ")
	require.True(t, ok)
	require.NotEmpty(t, warn)
	require.Equal(t, model.AudioPending, entry.AudioStatus)
	require.Equal(t, model.LyricsDownloaded, entry.LyricsStatus)
}

func TestParseTrackLineVariants(t *testing.T) {
	cases := []struct {
		name string
		line string
		file string
		ref  string
	}{
		{
			name: "arrow then lyrics",
			line: "✅🎵 05. A - B (3:20) [spotify:track:x1] -> 05 - A - B.mp3 | Lyrics: 05 - A - B.lrc",
			file: "05 - A - B.mp3",
			ref:  "05 - A - B.lrc",
		},
		{
			name: "lyrics then arrow",
			line: "✅🎵 05. A - B (3:20) [spotify:track:x1] | Lyrics: 05 - A - B.lrc -> 05 - A - B.mp3",
			file: "05 - A - B.mp3",
			ref:  "05 - A - B.lrc",
		},
		{
			name: "arrow only",
			line: "✅🚫 05. A - B (3:20) [spotify:track:x1] -> 05 - A - B.mp3",
			file: "05 - A - B.mp3",
		},
		{
			name: "no trailing segments",
			line: "⏳⏳ 05. A - B (3:20) [spotify:track:x1]",
		},
		{
			name: "hour duration",
			line: "⏳⏳ 05. A - B (1:02:03) [spotify:track:x1]",
		},
		{
			name: "trailing whitespace tolerated",
			line: "✅🎵 05. A - B (3:20) [spotify:track:x1]   ",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry, _, ok := parseTrackLine(strings.TrimRight(tc.line, " "))
			require.True(t, ok)
			require.Equal(t, tc.file, entry.LocalFile)
			require.Equal(t, tc.ref, entry.LyricsRef)
			require.Equal(t, "x1", entry.SourceID)
		})
	}
}

func TestUpdateRefreshesHeader(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(false)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return created }

	playlist := samplePlaylist()
	require.NoError(t, store.Create(playlist, dir, false, "none"))

	path := filepath.Join(dir, FileName)
	store.Now = func() time.Time { return created.Add(time.Hour) }
	playlist.Tracks[1].AudioStatus = model.AudioDownloaded
	require.NoError(t, store.Update(path, playlist.Tracks, nil))

	m, _, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, created, m.Header.Created)
	require.Equal(t, created.Add(time.Hour), m.Header.LastModified)
	require.Equal(t, model.AudioDownloaded, m.Entries[1].AudioStatus)
}

func TestBackupOnOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(true)
	store.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	playlist := samplePlaylist()
	require.NoError(t, store.Create(playlist, dir, false, "none"))
	require.NoError(t, store.Update(filepath.Join(dir, FileName), playlist.Tracks, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	backups := 0
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".bak") {
			backups++
		}
	}
	require.Equal(t, 1, backups)
}

func TestCreateUnwritableDir(t *testing.T) {
	store := NewStore(false)
	err := store.Create(samplePlaylist(), filepath.Join(t.TempDir(), "missing"), false, "none")
	require.Error(t, err)
}
