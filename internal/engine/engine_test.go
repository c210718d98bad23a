package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/downloader"
	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/lyrics"
	"github.com/jaa/playlist-mirror/internal/manifest"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/resolver"
	"github.com/jaa/playlist-mirror/internal/tagger"
	"github.com/jaa/playlist-mirror/internal/ytmusic"
)

type fakeCatalog struct {
	playlist *model.Playlist
	err      error
}

// AllPlaylistTracks returns a fresh copy per call, like a real remote fetch.
func (c *fakeCatalog) AllPlaylistTracks(ctx context.Context, id string) (*model.Playlist, error) {
	if c.err != nil {
		return nil, c.err
	}
	clone := *c.playlist
	clone.Tracks = make([]*model.PlaylistTrack, len(c.playlist.Tracks))
	for i, track := range c.playlist.Tracks {
		t := *track
		clone.Tracks[i] = &t
	}
	return &clone, nil
}

func (c *fakeCatalog) CheckAccess(ctx context.Context, id string) error { return c.err }

type fakeResolver struct {
	noMatch map[string]bool
	err     error
}

func (r *fakeResolver) Resolve(ctx context.Context, req resolver.Request) (*resolver.Match, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.noMatch[req.Title] {
		return nil, nil
	}
	return &resolver.Match{
		Candidate: ytmusic.Candidate{ID: "vid-" + req.Title, Title: req.Title, DurationS: req.DurationS},
		Score:     91,
	}, nil
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (d *fakeDownloader) Download(ctx context.Context, videoID, basePath string, onProgress func(downloader.Progress)) (string, error) {
	d.mu.Lock()
	d.calls = append(d.calls, videoID)
	d.mu.Unlock()
	if err := d.fail[videoID]; err != nil {
		return "", err
	}
	path := basePath + ".mp3"
	if err := os.WriteFile(path, []byte("audio bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (d *fakeDownloader) SweepStaging() {}

func (d *fakeDownloader) downloads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type fakeLyrics struct {
	err error
}

func (l *fakeLyrics) Search(ctx context.Context, req lyrics.Request) (*lyrics.Result, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &lyrics.Result{Plain: "some lyrics for " + req.Title, Source: "lrclib", Confidence: 0.9}, nil
}

type fakeTagger struct {
	mu     sync.Mutex
	tagged []string
}

func (t *fakeTagger) Tag(ctx context.Context, path, format string, meta tagger.Metadata) error {
	t.mu.Lock()
	t.tagged = append(t.tagged, filepath.Base(path))
	t.mu.Unlock()
	return nil
}

func testPlaylist(titles ...string) *model.Playlist {
	p := &model.Playlist{ID: "7GhawGpb43Cs8BpFx6tEvp", Name: "Road Trip", Owner: "jaa"}
	for i, title := range titles {
		p.Tracks = append(p.Tracks, &model.PlaylistTrack{
			Track: model.Track{
				ID:         fmt.Sprintf("track%02d", i+1),
				Title:      title,
				Artists:    []string{"The Band"},
				DurationMS: 200_000,
				Available:  true,
			},
			Position: i + 1,
		})
	}
	return p
}

func newTestEngine(t *testing.T, playlist *model.Playlist) (*Engine, *fakeDownloader) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Directory = t.TempDir()
	cfg.Sync.BackupTracklist = false

	dl := &fakeDownloader{}
	e := New(cfg)
	e.Catalog = &fakeCatalog{playlist: playlist}
	e.Resolver = &fakeResolver{}
	e.Downloader = dl
	e.Lyrics = &fakeLyrics{}
	e.LyricsFile = lyrics.NewWriter(true, false, cfg.Naming.MaxFilenameLength)
	e.Tagger = &fakeTagger{}
	e.Validate = func(path, format string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return errors.New("empty file")
		}
		return nil
	}
	return e, dl
}

func playlistDir(t *testing.T, e *Engine) string {
	t.Helper()
	return filepath.Join(e.Config.Output.Directory, "Road Trip")
}

func TestSyncFreshPlaylist(t *testing.T) {
	e, dl := newTestEngine(t, testPlaylist("Alpha", "Beta", "Gamma"))

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if dl.downloads() != 3 {
		t.Fatalf("downloads = %d", dl.downloads())
	}

	dir := playlistDir(t, e)
	for i, title := range []string{"Alpha", "Beta", "Gamma"} {
		want := fmt.Sprintf("%02d - The Band - %s.mp3", i+1, title)
		if _, err := os.Stat(filepath.Join(dir, want)); err != nil {
			t.Fatalf("missing %s: %v", want, err)
		}
	}

	m, _, err := manifest.Read(filepath.Join(dir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if m.Header.TotalTracks != 3 || len(m.Entries) != 3 {
		t.Fatalf("manifest header/entries = %d/%d", m.Header.TotalTracks, len(m.Entries))
	}
	for _, entry := range m.Entries {
		if entry.AudioStatus != model.AudioDownloaded {
			t.Fatalf("entry %d audio status = %s", entry.Position, entry.AudioStatus)
		}
		if entry.LyricsStatus != model.LyricsDownloaded {
			t.Fatalf("entry %d lyrics status = %s", entry.Position, entry.LyricsStatus)
		}
	}
	if result.LyricsFound != 3 {
		t.Fatalf("lyrics found = %d", result.LyricsFound)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	e, dl := newTestEngine(t, testPlaylist("Alpha", "Beta"))

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}
	first := dl.downloads()

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if dl.downloads() != first {
		t.Fatalf("second run re-downloaded: %d -> %d", first, dl.downloads())
	}
	if result.Downloaded != 0 || result.Failed != 0 {
		t.Fatalf("second run result = %+v", result)
	}
}

func TestSyncRedownloadsMissingFile(t *testing.T) {
	e, dl := newTestEngine(t, testPlaylist("Alpha", "Beta"))

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}
	dir := playlistDir(t, e)
	if err := os.Remove(filepath.Join(dir, "01 - The Band - Alpha.mp3")); err != nil {
		t.Fatal(err)
	}

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 1 {
		t.Fatalf("result = %+v", result)
	}
	if dl.downloads() != 3 {
		t.Fatalf("downloads = %d", dl.downloads())
	}
}

func TestSyncFailureDoesNotAbortRun(t *testing.T) {
	e, dl := newTestEngine(t, testPlaylist("Alpha", "Beta", "Gamma"))
	dl.fail = map[string]error{
		"vid-Beta": errkind.New(errkind.Download, errors.New("all format selectors exhausted")),
	}

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}

	m, _, err := manifest.Read(filepath.Join(playlistDir(t, e), manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range m.Entries {
		want := model.AudioDownloaded
		if entry.Title == "Beta" {
			want = model.AudioFailed
		}
		if entry.AudioStatus != want {
			t.Fatalf("%s audio status = %s, want %s", entry.Title, entry.AudioStatus, want)
		}
	}
}

func TestSyncNoMatchMarksTrackFailed(t *testing.T) {
	e, _ := newTestEngine(t, testPlaylist("Alpha"))
	e.Resolver = &fakeResolver{noMatch: map[string]bool{"Alpha": true}}

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 || result.Downloaded != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestSyncIncrementalAddAndMove(t *testing.T) {
	remote := testPlaylist("Alpha", "Beta", "Gamma", "Delta", "Epsilon")
	e, dl := newTestEngine(t, remote)

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}
	if dl.downloads() != 5 {
		t.Fatalf("initial downloads = %d", dl.downloads())
	}

	// insert a new track at position 3, shifting the rest down
	inserted := &model.PlaylistTrack{
		Track: model.Track{
			ID:         "track99",
			Title:      "Newcomer",
			Artists:    []string{"The Band"},
			DurationMS: 210_000,
			Available:  true,
		},
		Position: 3,
	}
	tracks := append([]*model.PlaylistTrack{}, remote.Tracks[:2]...)
	tracks = append(tracks, inserted)
	tracks = append(tracks, remote.Tracks[2:]...)
	for i, track := range tracks {
		track.Position = i + 1
	}
	remote.Tracks = tracks

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Moved != 3 {
		t.Fatalf("moved = %d, want 3", result.Moved)
	}
	if dl.downloads() != 6 {
		t.Fatalf("downloads = %d, want 6", dl.downloads())
	}

	m, _, err := manifest.Read(filepath.Join(playlistDir(t, e), manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 6 {
		t.Fatalf("entries = %d", len(m.Entries))
	}
	for i, entry := range m.Entries {
		if entry.Position != i+1 {
			t.Fatalf("entry %d has position %d", i, entry.Position)
		}
	}
	if m.Entries[2].Title != "Newcomer" {
		t.Fatalf("position 3 = %q", m.Entries[2].Title)
	}
}

// countingDownloader tracks how many downloads are in flight at once.
type countingDownloader struct {
	fakeDownloader

	gate    sync.Mutex
	current int
	peak    int
}

func (d *countingDownloader) Download(ctx context.Context, videoID, basePath string, onProgress func(downloader.Progress)) (string, error) {
	d.gate.Lock()
	d.current++
	if d.current > d.peak {
		d.peak = d.current
	}
	d.gate.Unlock()

	time.Sleep(10 * time.Millisecond)
	path, err := d.fakeDownloader.Download(ctx, videoID, basePath, onProgress)

	d.gate.Lock()
	d.current--
	d.gate.Unlock()
	return path, err
}

func TestSyncBoundsConcurrency(t *testing.T) {
	titles := make([]string, 8)
	for i := range titles {
		titles[i] = fmt.Sprintf("Track%d", i+1)
	}
	e, _ := newTestEngine(t, testPlaylist(titles...))
	e.Config.Output.Concurrency = 2

	dl := &countingDownloader{}
	e.Downloader = dl

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 8 {
		t.Fatalf("result = %+v", result)
	}
	if dl.peak > 2 {
		t.Fatalf("peak in-flight downloads = %d, want <= 2", dl.peak)
	}
	if dl.peak < 1 {
		t.Fatalf("no downloads observed")
	}
}

func TestSyncRemovedTrackKeepsFile(t *testing.T) {
	remote := testPlaylist("Alpha", "Beta")
	e, _ := newTestEngine(t, remote)

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}

	remote.Tracks = remote.Tracks[:1]
	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}

	dir := playlistDir(t, e)
	if _, err := os.Stat(filepath.Join(dir, "02 - The Band - Beta.mp3")); err != nil {
		t.Fatal("removed track's file must be kept")
	}
	m, _, err := manifest.Read(filepath.Join(dir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 1 || m.Entries[0].Title != "Alpha" {
		t.Fatalf("entries = %+v", m.Entries)
	}
}

func TestSyncDryRunTouchesNothing(t *testing.T) {
	e, dl := newTestEngine(t, testPlaylist("Alpha", "Beta"))

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if dl.downloads() != 0 {
		t.Fatalf("dry run downloaded %d tracks", dl.downloads())
	}
	if result.Downloaded != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(playlistDir(t, e)); err == nil {
		t.Fatal("dry run must not create the playlist directory")
	}
	entries, err := os.ReadDir(e.Config.Output.Directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run left %d entries in the output root", len(entries))
	}
}

func TestSyncDryRunOnMissingOutputRoot(t *testing.T) {
	e, dl := newTestEngine(t, testPlaylist("Alpha"))
	e.Config.Output.Directory = filepath.Join(e.Config.Output.Directory, "not-yet")

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if dl.downloads() != 0 || result.Downloaded != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(e.Config.Output.Directory); err == nil {
		t.Fatal("dry run must not create the output root")
	}
}

func TestSyncCriticalCatalogErrorAborts(t *testing.T) {
	e, _ := newTestEngine(t, testPlaylist("Alpha"))
	e.Catalog = &fakeCatalog{err: errkind.New(errkind.Auth, errors.New("invalid credentials"))}

	_, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if !errkind.Is(err, errkind.Auth) {
		t.Fatalf("err = %v", err)
	}
}

func TestSyncSkipsUnavailableTracks(t *testing.T) {
	playlist := testPlaylist("Alpha", "Beta")
	playlist.Tracks[1].Available = false
	e, dl := newTestEngine(t, playlist)

	result, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}
	if dl.downloads() != 1 {
		t.Fatalf("downloads = %d", dl.downloads())
	}
}

func TestSyncWritesLyricsFiles(t *testing.T) {
	e, _ := newTestEngine(t, testPlaylist("Alpha"))

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(playlistDir(t, e), "01 - The Band - Alpha.txt")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("lyrics file missing: %v", err)
	}
	if !strings.Contains(string(content), "some lyrics for Alpha") {
		t.Fatalf("lyrics content = %q", content)
	}
}

func TestSyncLyricsInstrumental(t *testing.T) {
	e, _ := newTestEngine(t, testPlaylist("Alpha"))
	e.Lyrics = &fakeLyrics{err: lyrics.ErrInstrumental}

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}

	m, _, err := manifest.Read(filepath.Join(playlistDir(t, e), manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if m.Entries[0].LyricsStatus != model.LyricsInstrumental {
		t.Fatalf("lyrics status = %s", m.Entries[0].LyricsStatus)
	}
}

func TestPlanFindsRenamedPlaylistDir(t *testing.T) {
	remote := testPlaylist("Alpha")
	e, _ := newTestEngine(t, remote)

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}

	// playlist renamed remotely; the manifest's source id still matches
	remote.Name = "Road Trip 2026"
	plan, err := e.Plan(context.Background(), "7GhawGpb43Cs8BpFx6tEvp")
	if err != nil {
		t.Fatal(err)
	}
	if plan.Initial {
		t.Fatal("existing mirror not found")
	}
	if filepath.Base(plan.Dir) != "Road Trip" {
		t.Fatalf("dir = %q", plan.Dir)
	}
}

func TestResolveDirSuffixesTakenName(t *testing.T) {
	e, _ := newTestEngine(t, testPlaylist("Alpha"))
	root := e.Config.Output.Directory

	// an unrelated playlist already owns the sanitized name
	taken := filepath.Join(root, "Road Trip")
	if err := os.MkdirAll(taken, 0o755); err != nil {
		t.Fatal(err)
	}
	other := testPlaylist("Other")
	other.ID = "0000000000000000000000"
	store := manifest.NewStore(false)
	if err := store.Create(other, taken, false, ""); err != nil {
		t.Fatal(err)
	}

	dir, fresh, err := e.resolveDir(root, testPlaylist("Alpha"))
	if err != nil {
		t.Fatal(err)
	}
	if !fresh {
		t.Fatal("expected a fresh directory")
	}
	if filepath.Base(dir) != "Road Trip_1" {
		t.Fatalf("dir = %q", dir)
	}
}

func TestListMirrors(t *testing.T) {
	e, _ := newTestEngine(t, testPlaylist("Alpha", "Beta"))

	if _, err := e.Sync(context.Background(), "7GhawGpb43Cs8BpFx6tEvp", SyncOptions{}); err != nil {
		t.Fatal(err)
	}

	mirrors, err := ListMirrors(e.Config.Output.Directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(mirrors) != 1 {
		t.Fatalf("mirrors = %+v", mirrors)
	}
	info := mirrors[0]
	if info.Name != "Road Trip" || info.TotalTracks != 2 || info.Downloaded != 2 {
		t.Fatalf("info = %+v", info)
	}
}

func TestListMirrorsMissingRoot(t *testing.T) {
	mirrors, err := ListMirrors(filepath.Join(t.TempDir(), "nope"))
	if err != nil || mirrors != nil {
		t.Fatalf("mirrors=%v err=%v", mirrors, err)
	}
}
