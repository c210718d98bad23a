package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/textutil"
)

// Store writes and rewrites tracklist.txt. Writes go through renameio so a
// crash mid-write leaves either the old file or the new one, never a mix.
type Store struct {
	Backup bool
	Now    func() time.Time
}

func NewStore(backup bool) *Store {
	return &Store{Backup: backup, Now: time.Now}
}

// Create writes a fresh manifest for playlist into dir.
func (s *Store) Create(playlist *model.Playlist, dir string, lyricsEnabled bool, lyricsSource string) error {
	if err := checkWritableDir(dir); err != nil {
		return errkind.New(errkind.Config, err)
	}

	now := s.now()
	header := Header{
		FormatVersion: FormatVersion,
		PlaylistName:  playlist.Name,
		SourceID:      playlist.ID,
		Created:       now,
		LastModified:  now,
		TotalTracks:   len(playlist.Tracks),
		LyricsEnabled: lyricsEnabled,
		LyricsSource:  lyricsSource,
		Description:   playlist.Description,
		Owner:         playlist.Owner,
	}

	path := filepath.Join(dir, FileName)
	if err := s.backupExisting(path); err != nil {
		return errkind.New(errkind.Manifest, err)
	}
	return s.write(path, header, playlist.Tracks)
}

// Update rewrites the manifest atomically, refreshing Last modified and
// applying patch to the previous header when given.
func (s *Store) Update(path string, tracks []*model.PlaylistTrack, patch func(*Header)) error {
	prev, _, err := Read(path)
	if err != nil {
		return err
	}
	header := prev.Header
	if patch != nil {
		patch(&header)
	}
	if err := s.backupExisting(path); err != nil {
		return errkind.New(errkind.Manifest, err)
	}
	return s.write(path, header, tracks)
}

func (s *Store) write(path string, header Header, tracks []*model.PlaylistTrack) error {
	header.LastModified = s.now()
	header.TotalTracks = len(tracks)
	if header.Created.IsZero() {
		header.Created = header.LastModified
	}
	if header.FormatVersion == "" {
		header.FormatVersion = FormatVersion
	}

	var b strings.Builder
	writeHeader(&b, header)
	for _, track := range tracks {
		b.WriteString(FormatTrackLine(track))
		b.WriteByte('\n')
	}

	if err := renameio.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errkind.New(errkind.Manifest, fmt.Errorf("write manifest %s: %w", path, err))
	}
	return nil
}

func writeHeader(b *strings.Builder, header Header) {
	fmt.Fprintf(b, "# Format Version: %s\n", header.FormatVersion)
	fmt.Fprintf(b, "# Playlist: %s\n", header.PlaylistName)
	fmt.Fprintf(b, "# Source ID: %s\n", header.SourceID)
	fmt.Fprintf(b, "# Created: %s\n", header.Created.Format(timeLayout))
	fmt.Fprintf(b, "# Total tracks: %d\n", header.TotalTracks)
	fmt.Fprintf(b, "# Last modified: %s\n", header.LastModified.Format(timeLayout))
	fmt.Fprintf(b, "# Lyrics enabled: %t\n", header.LyricsEnabled)
	fmt.Fprintf(b, "# Lyrics source: %s\n", header.LyricsSource)
	if header.Description != "" {
		fmt.Fprintf(b, "# Description: %s\n", header.Description)
	}
	if header.Owner != "" {
		fmt.Fprintf(b, "# Owner: %s\n", header.Owner)
	}
	if header.Public != nil {
		fmt.Fprintf(b, "# Public: %t\n", *header.Public)
	}
	if header.Collaborative != nil {
		fmt.Fprintf(b, "# Collaborative: %t\n", *header.Collaborative)
	}
	b.WriteByte('\n')
}

// FormatTrackLine renders one track entry in the tracklist grammar.
func FormatTrackLine(track *model.PlaylistTrack) string {
	var b strings.Builder
	b.WriteString(audioIcon(track.AudioStatus))
	b.WriteString(lyricsIcon(track.LyricsStatus))
	fmt.Fprintf(&b, " %02d. %s - %s (%s) [spotify:track:%s]",
		track.Position,
		strings.Join(track.Artists, ", "),
		track.Title,
		textutil.FormatTrackDuration(track.DurationSeconds()),
		track.ID,
	)
	if track.LocalPath != "" {
		fmt.Fprintf(&b, " -> %s", filepath.Base(track.LocalPath))
	}
	if ref := lyricsRef(track); ref != "" {
		fmt.Fprintf(&b, " | Lyrics: %s", ref)
	}
	return b.String()
}

func lyricsRef(track *model.PlaylistTrack) string {
	switch {
	case track.LyricsPath != "" && track.SyncedLyricsPath != "":
		return filepath.Base(track.LyricsPath) + ", " + filepath.Base(track.SyncedLyricsPath)
	case track.SyncedLyricsPath != "":
		return filepath.Base(track.SyncedLyricsPath)
	case track.LyricsPath != "":
		return filepath.Base(track.LyricsPath)
	case track.LyricsStatus == model.LyricsDownloaded && track.LyricsSource != "":
		return "embedded (" + track.LyricsSource + ")"
	default:
		return ""
	}
}

func (s *Store) backupExisting(path string) error {
	if !s.Backup {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat manifest %s: %w", path, err)
	}
	backup := fmt.Sprintf("%s.%s.bak", path, s.now().Format("20060102-150405"))
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest for backup: %w", err)
	}
	if err := os.WriteFile(backup, payload, 0o644); err != nil {
		return fmt.Errorf("write manifest backup %s: %w", backup, err)
	}
	return nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("playlist directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("playlist path %s is not a directory", dir)
	}
	probe, err := os.CreateTemp(dir, ".plmr-write-probe-*")
	if err != nil {
		return fmt.Errorf("playlist directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}
