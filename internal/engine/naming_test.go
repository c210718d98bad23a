package engine

import (
	"strings"
	"testing"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/model"
)

func namedTrack(position int, artist, title, album string) *model.PlaylistTrack {
	return &model.PlaylistTrack{
		Track:    model.Track{Title: title, Artists: []string{artist}, Album: model.Album{Name: album}},
		Position: position,
	}
}

func TestTrackFileBase(t *testing.T) {
	tests := []struct {
		name   string
		naming config.Naming
		track  *model.PlaylistTrack
		want   string
	}{
		{
			name:   "default template",
			naming: config.Naming{SanitizeFilenames: true},
			track:  namedTrack(7, "Muse", "Starlight", "Black Holes"),
			want:   "07 - Muse - Starlight",
		},
		{
			name:   "album token",
			naming: config.Naming{TrackFormat: "{album}/{track} {title}", SanitizeFilenames: true},
			track:  namedTrack(2, "Muse", "Starlight", "Black Holes"),
			// the separator is stripped, never treated as a path
			want: "Black Holes02 Starlight",
		},
		{
			name:   "replace spaces",
			naming: config.Naming{ReplaceSpaces: true, SanitizeFilenames: true},
			track:  namedTrack(1, "The Band", "Song One", ""),
			want:   "01_-_The_Band_-_Song_One",
		},
		{
			name:   "unsafe characters stripped",
			naming: config.Naming{SanitizeFilenames: true},
			track:  namedTrack(3, "AC/DC", `What's "Next"?`, ""),
			want:   `03 - ACDC - What's Next`,
		},
		{
			name:  "sanitize disabled keeps punctuation",
			track: namedTrack(3, "AC/DC", `What's "Next"?`, ""),
			// separators still never survive
			want: `03 - ACDC - What's "Next"?`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrackFileBase(tt.naming, tt.track)
			if got != tt.want {
				t.Fatalf("TrackFileBase() = %q, want %q", got, tt.want)
			}
			if strings.ContainsAny(got, `/\`) {
				t.Fatalf("path separators in %q", got)
			}
			if tt.naming.SanitizeFilenames && strings.ContainsAny(got, `<>:"|?*`) {
				t.Fatalf("unsafe characters in %q", got)
			}
		})
	}
}

func TestTrackFileBaseTruncates(t *testing.T) {
	naming := config.Naming{MaxFilenameLength: 40}
	track := namedTrack(1, strings.Repeat("A", 50), strings.Repeat("B", 50), "")

	got := TrackFileBase(naming, track)
	if len(got) > 40 {
		t.Fatalf("len = %d", len(got))
	}
}
