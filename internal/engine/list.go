package engine

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jaa/playlist-mirror/internal/manifest"
	"github.com/jaa/playlist-mirror/internal/model"
)

// MirrorInfo summarizes one mirrored playlist found under the output root.
type MirrorInfo struct {
	Dir          string
	Name         string
	SourceID     string
	TotalTracks  int
	Downloaded   int
	LyricsCount  int
	LastModified time.Time
}

// ListMirrors scans the immediate children of root for tracklists.
// Directories without one, and ones whose manifest cannot be parsed, are
// skipped; listing is informational.
func ListMirrors(root string) ([]MirrorInfo, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var mirrors []MirrorInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		m, _, err := manifest.Read(filepath.Join(dir, manifest.FileName))
		if err != nil {
			continue
		}

		info := MirrorInfo{
			Dir:          dir,
			Name:         m.Header.PlaylistName,
			SourceID:     m.Header.SourceID,
			TotalTracks:  m.Header.TotalTracks,
			LastModified: m.Header.LastModified,
		}
		for _, e := range m.Entries {
			if e.AudioStatus == model.AudioDownloaded {
				info.Downloaded++
			}
			if e.LyricsStatus == model.LyricsDownloaded {
				info.LyricsCount++
			}
		}
		mirrors = append(mirrors, info)
	}

	sort.Slice(mirrors, func(i, j int) bool { return mirrors[i].Name < mirrors[j].Name })
	return mirrors, nil
}
