package engine

import (
	"fmt"
	"strings"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/textutil"
)

const defaultTrackFormat = "{track} - {artist} - {title}"

// extension headroom reserved when truncating the base name
const extReserve = 5

// TrackFileBase renders the configured filename template for one track,
// without extension. Path separators and control characters are always
// removed even with sanitize_filenames off; an unsafe remote title must
// never produce an unsafe path.
func TrackFileBase(naming config.Naming, track *model.PlaylistTrack) string {
	format := naming.TrackFormat
	if strings.TrimSpace(format) == "" {
		format = defaultTrackFormat
	}
	name := strings.NewReplacer(
		"{track}", fmt.Sprintf("%02d", track.Position),
		"{artist}", strings.Join(track.Artists, ", "),
		"{title}", track.Title,
		"{album}", track.Album.Name,
	).Replace(format)

	maxLen := naming.MaxFilenameLength
	if maxLen <= 0 {
		maxLen = 200
	}
	if naming.SanitizeFilenames {
		name = textutil.SanitizeFilename(name, maxLen-extReserve)
	} else {
		name = textutil.SafePathComponent(name, maxLen-extReserve)
	}
	if naming.ReplaceSpaces {
		name = strings.ReplaceAll(name, " ", "_")
	}
	return name
}
