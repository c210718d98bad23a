package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaa/playlist-mirror/internal/model"
)

func remoteTrack(id, title, artist string, pos, durMS int) *model.PlaylistTrack {
	return &model.PlaylistTrack{
		Track: model.Track{
			ID:         id,
			Title:      title,
			Artists:    []string{artist},
			DurationMS: durMS,
		},
		Position: pos,
	}
}

func localEntry(id, title, artist string, pos, durS int) Entry {
	return Entry{
		Position:     pos,
		Artists:      artist,
		Title:        title,
		DurationS:    durS,
		SourceID:     id,
		AudioStatus:  model.AudioDownloaded,
		LyricsStatus: model.LyricsDownloaded,
	}
}

func TestComputeNoChanges(t *testing.T) {
	entries := []Entry{
		localEntry("a", "A", "X", 1, 180),
		localEntry("b", "B", "Y", 2, 240),
	}
	remote := []*model.PlaylistTrack{
		remoteTrack("a", "A", "X", 1, 180000),
		remoteTrack("b", "B", "Y", 2, 240000),
	}
	diff := Compute(entries, remote, true)
	require.True(t, diff.Empty())
}

func TestComputeAddedAndMoved(t *testing.T) {
	entries := []Entry{
		localEntry("a", "A", "X", 1, 180),
		localEntry("b", "B", "Y", 2, 240),
		localEntry("c", "C", "Z", 3, 200),
	}
	// new track inserted at position 3, shifting c to 4
	remote := []*model.PlaylistTrack{
		remoteTrack("a", "A", "X", 1, 180000),
		remoteTrack("b", "B", "Y", 2, 240000),
		remoteTrack("new", "N", "W", 3, 210000),
		remoteTrack("c", "C", "Z", 4, 200000),
	}

	diff := Compute(entries, remote, true)
	require.Len(t, diff.Added, 1)
	require.Equal(t, "new", diff.Added[0].ID)
	require.Len(t, diff.Moved, 1)
	require.Equal(t, "c", diff.Moved[0].Track.ID)
	require.Equal(t, 3, diff.Moved[0].FromPosition)
	require.Empty(t, diff.Removed)

	// with movement detection off, only the add remains
	diff = Compute(entries, remote, false)
	require.Len(t, diff.Added, 1)
	require.Empty(t, diff.Moved)
}

func TestComputeRemovedAndModified(t *testing.T) {
	entries := []Entry{
		localEntry("a", "A", "X", 1, 180),
		localEntry("b", "Old Title", "Y", 2, 240),
	}
	remote := []*model.PlaylistTrack{
		remoteTrack("b", "New Title", "Y", 1, 240000),
	}

	diff := Compute(entries, remote, true)
	require.Len(t, diff.Removed, 1)
	require.Equal(t, "a", diff.Removed[0].SourceID)
	require.Len(t, diff.Modified, 1)
	require.Equal(t, "b", diff.Modified[0].ID)
}

func TestComputeDuplicateIDsKeptByPosition(t *testing.T) {
	entries := []Entry{
		localEntry("dup", "D", "X", 1, 100),
		localEntry("dup", "D", "X", 2, 100),
	}
	remote := []*model.PlaylistTrack{
		remoteTrack("dup", "D", "X", 1, 100000),
		remoteTrack("dup", "D", "X", 2, 100000),
		remoteTrack("dup", "D", "X", 3, 100000),
	}

	diff := Compute(entries, remote, true)
	require.Len(t, diff.Added, 1, "third duplicate is new")
	require.Empty(t, diff.Removed)
	require.Empty(t, diff.Moved)
}

func TestApplyCopiesLocalState(t *testing.T) {
	entries := []Entry{
		{
			Position:     1,
			Artists:      "X",
			Title:        "A",
			DurationS:    180,
			SourceID:     "a",
			AudioStatus:  model.AudioDownloaded,
			LyricsStatus: model.LyricsDownloaded,
			LocalFile:    "01 - X - A.mp3",
			LyricsRef:    "01 - X - A.txt, 01 - X - A.lrc",
		},
	}
	remote := []*model.PlaylistTrack{
		remoteTrack("a", "A", "X", 1, 180000),
		remoteTrack("b", "B", "Y", 2, 200000),
	}

	Apply(entries, remote, "/music/pl")

	require.Equal(t, model.AudioDownloaded, remote[0].AudioStatus)
	require.Equal(t, "/music/pl/01 - X - A.mp3", remote[0].LocalPath)
	require.Equal(t, "/music/pl/01 - X - A.txt", remote[0].LyricsPath)
	require.Equal(t, "/music/pl/01 - X - A.lrc", remote[0].SyncedLyricsPath)
	require.Equal(t, model.AudioPending, remote[1].AudioStatus)
}
