package manifest

import (
	"path/filepath"
	"strings"

	"github.com/jaa/playlist-mirror/internal/model"
)

// Diff is the reconciliation between manifest entries and the remote
// playlist. Moved and Modified reference remote tracks (the authoritative
// metadata); Removed references the stale local entries.
type Diff struct {
	Added    []*model.PlaylistTrack
	Removed  []Entry
	Moved    []Move
	Modified []*model.PlaylistTrack
}

type Move struct {
	Track        *model.PlaylistTrack
	FromPosition int
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Moved) == 0 && len(d.Modified) == 0
}

// Compute diffs local entries against remote tracks. Duplicate source ids
// are legal within a playlist: matching claims local entries greedily by
// position so one duplicate never shadows another. Movement detection is
// optional because position churn on large playlists is noisy.
func Compute(entries []Entry, remote []*model.PlaylistTrack, detectMoves bool) Diff {
	diff := Diff{}

	// source id -> unclaimed local entries, in file order
	local := map[string][]Entry{}
	for _, entry := range entries {
		local[entry.SourceID] = append(local[entry.SourceID], entry)
	}

	for _, track := range remote {
		pool := local[track.ID]
		if len(pool) == 0 {
			diff.Added = append(diff.Added, track)
			continue
		}
		entry := pool[0]
		local[track.ID] = pool[1:]

		if detectMoves && entry.Position != track.Position {
			diff.Moved = append(diff.Moved, Move{Track: track, FromPosition: entry.Position})
		}
		if modified(entry, track) {
			diff.Modified = append(diff.Modified, track)
		}
	}

	for _, entry := range entries {
		pool := local[entry.SourceID]
		if len(pool) > 0 && pool[0].Position == entry.Position {
			diff.Removed = append(diff.Removed, entry)
			local[entry.SourceID] = pool[1:]
		}
	}

	return diff
}

func modified(entry Entry, track *model.PlaylistTrack) bool {
	if entry.Title != track.Title {
		return true
	}
	if entry.Artists != joinArtists(track) {
		return true
	}
	// Manifest durations are written at second precision.
	if entry.DurationS != track.DurationSeconds() {
		return true
	}
	return false
}

func joinArtists(track *model.PlaylistTrack) string {
	return strings.Join(track.Artists, ", ")
}

// Apply copies local sync state from matching entries onto remote tracks so
// an incremental run starts from what the manifest already knows. File
// references in the manifest are basenames relative to dir.
func Apply(entries []Entry, remote []*model.PlaylistTrack, dir string) {
	local := map[string][]Entry{}
	for _, entry := range entries {
		local[entry.SourceID] = append(local[entry.SourceID], entry)
	}

	for _, track := range remote {
		pool := local[track.ID]
		if len(pool) == 0 {
			track.AudioStatus = model.AudioPending
			track.LyricsStatus = model.LyricsPending
			continue
		}
		entry := pool[0]
		local[track.ID] = pool[1:]

		track.AudioStatus = entry.AudioStatus
		track.LyricsStatus = entry.LyricsStatus
		if entry.LocalFile != "" {
			track.LocalPath = filepath.Join(dir, entry.LocalFile)
		}
		for _, ref := range splitLyricsRef(entry.LyricsRef) {
			switch filepath.Ext(ref) {
			case ".lrc":
				track.SyncedLyricsPath = filepath.Join(dir, ref)
			case ".txt":
				track.LyricsPath = filepath.Join(dir, ref)
			}
		}
	}
}

func splitLyricsRef(ref string) []string {
	parts := strings.Split(ref, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
