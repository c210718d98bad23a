package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/manifest"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/textutil"
)

// Plan is the reconciled work list for one sync run. Downloads covers new,
// failed and invalid-file tracks; Moves are position changes only; Removed
// entries are reported but their files are never deleted.
type Plan struct {
	Playlist     *model.Playlist
	Dir          string
	ManifestPath string
	Initial      bool

	Downloads []*model.PlaylistTrack
	Moves     []manifest.Move
	Removed   []manifest.Entry
	UpToDate  []*model.PlaylistTrack
	Skipped   []*model.PlaylistTrack

	Warnings []string
}

// Plan fetches the remote playlist, locates (or allocates) its local
// directory and diffs remote state against the manifest.
func (e *Engine) Plan(ctx context.Context, playlistID string) (*Plan, error) {
	root, err := config.ExpandPath(e.Config.Output.Directory)
	if err != nil {
		return nil, errkind.New(errkind.Config, fmt.Errorf("output_directory: %w", err))
	}

	playlist, err := e.Catalog.AllPlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	dir, fresh, err := e.resolveDir(root, playlist)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Playlist:     playlist,
		Dir:          dir,
		ManifestPath: filepath.Join(dir, manifest.FileName),
		Initial:      fresh,
	}
	if !fresh {
		if _, err := os.Stat(plan.ManifestPath); err != nil {
			plan.Initial = true
		}
	}

	if plan.Initial {
		for _, track := range playlist.Tracks {
			track.AudioStatus = model.AudioPending
			track.LyricsStatus = model.LyricsPending
		}
	} else {
		m, warnings, err := manifest.Read(plan.ManifestPath)
		if err != nil {
			return nil, err
		}
		plan.Warnings = warnings
		manifest.Apply(m.Entries, playlist.Tracks, dir)
		diff := manifest.Compute(m.Entries, playlist.Tracks, e.Config.Sync.DetectMovedTracks)
		plan.Moves = diff.Moved
		plan.Removed = diff.Removed
	}

	for _, track := range playlist.Tracks {
		switch e.classify(track) {
		case opDownload:
			plan.Downloads = append(plan.Downloads, track)
		case opSkip:
			plan.Skipped = append(plan.Skipped, track)
		default:
			plan.UpToDate = append(plan.UpToDate, track)
		}
	}
	return plan, nil
}

type opKind int

const (
	opKeep opKind = iota
	opDownload
	opSkip
)

// classify decides per track whether audio work is needed. A track the
// manifest says is downloaded still gets re-queued when its file is missing
// or fails validation.
func (e *Engine) classify(track *model.PlaylistTrack) opKind {
	if !track.Available {
		track.AudioStatus = model.AudioSkipped
		return opSkip
	}
	if track.AudioStatus == model.AudioDownloaded && track.LocalPath != "" {
		if err := e.validate(track.LocalPath); err == nil {
			return opKeep
		}
		track.AudioStatus = model.AudioPending
	}
	return opDownload
}

func (e *Engine) validate(path string) error {
	if e.Validate == nil {
		return nil
	}
	return e.Validate(path, string(e.Config.Output.Format))
}

// resolveDir finds the playlist's directory under root: the sanitized-name
// candidate when its manifest matches the playlist id, else any sibling
// whose manifest matches, else a fresh directory (suffixed when the name is
// taken by an unrelated one).
func (e *Engine) resolveDir(root string, playlist *model.Playlist) (string, bool, error) {
	name := textutil.SanitizeDirName(playlist.Name, e.Config.Naming.MaxFilenameLength)
	if name == "" {
		name = playlist.ID
	}
	candidate := filepath.Join(root, name)
	if escapes(root, candidate) {
		candidate = filepath.Join(root, playlist.ID)
	}

	match, err := manifestSourceID(candidate)
	if err != nil {
		return "", false, err
	}
	if match == playlist.ID {
		return candidate, false, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		return "", false, errkind.New(errkind.Config, fmt.Errorf("scan output root: %w", err))
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if dir == candidate {
			continue
		}
		// A corrupt manifest in an unrelated directory must not block
		// this playlist, so read errors are ignored during the scan.
		if id, err := manifestSourceID(dir); err == nil && id == playlist.ID {
			return dir, false, nil
		}
	}

	// nothing is created here; the executor makes the directory once the
	// run is known not to be a dry run
	dir := candidate
	if _, err := os.Stat(candidate); err == nil {
		dir = textutil.UniquePath(candidate)
	}
	return dir, true, nil
}

// manifestSourceID reads the source id recorded in dir's manifest. No
// directory or no manifest returns empty; a manifest that exists but cannot
// be parsed is fatal because silently ignoring it would orphan the mirror.
func manifestSourceID(dir string) (string, error) {
	path := filepath.Join(dir, manifest.FileName)
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	m, _, err := manifest.Read(path)
	if err != nil {
		return "", err
	}
	return m.Header.SourceID, nil
}

func escapes(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
