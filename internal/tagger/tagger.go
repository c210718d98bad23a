package tagger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/execx"
	"github.com/jaa/playlist-mirror/internal/model"
)

// Metadata is everything the tagger embeds into one audio file.
type Metadata struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Year        string
	TrackNumber int
	DiscNumber  int
	Genre       string
	Comment     string

	Lyrics    string // plain text
	SyncedLRC string // raw LRC document
	Cover     []byte // JPEG bytes
}

// FromTrack builds tag metadata from a playlist entry. The playlist position
// wins over the album track number so files sort like the playlist.
func FromTrack(track *model.PlaylistTrack, comment string) Metadata {
	meta := Metadata{
		Title:       track.Title,
		Artist:      track.PrimaryArtist(),
		Album:       track.Album.Name,
		Year:        track.Album.Year(),
		TrackNumber: track.Position,
		DiscNumber:  track.DiscNumber,
		Comment:     comment,
	}
	if meta.TrackNumber == 0 {
		meta.TrackNumber = track.TrackNumber
	}
	if len(track.Album.Artists) > 0 {
		meta.AlbumArtist = track.Album.Artists[0]
	} else {
		meta.AlbumArtist = meta.Artist
	}
	if len(track.Album.Genres) > 0 {
		meta.Genre = track.Album.Genres[0]
	}
	return meta
}

// Tagger writes metadata into downloaded files. MP3 is handled in process,
// FLAC and M4A are remuxed through ffmpeg.
type Tagger struct {
	FFmpegBin  string
	ID3Version int // 3 or 4

	// PreserveExisting keeps whatever tags the extractor left in the file;
	// the default wipes them before writing.
	PreserveExisting bool

	// Encoding selects the id3v2 text encoding: utf-8 (default) or utf-16.
	Encoding string

	// Exec runs ffmpeg for the remux formats; tests replace it.
	Exec func(ctx context.Context, spec execx.Spec) execx.Result
}

func New(ffmpegBin string, id3Version int) *Tagger {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if id3Version != 3 && id3Version != 4 {
		id3Version = 4
	}
	return &Tagger{
		FFmpegBin:  ffmpegBin,
		ID3Version: id3Version,
		Exec: func(ctx context.Context, spec execx.Spec) execx.Result {
			return execx.NewSubprocessRunner(nil, nil).Run(ctx, spec)
		},
	}
}

// Tag embeds meta into the file at path. format is the configured output
// format (mp3, flac or m4a). Errors are classified non-fatal.
func (t *Tagger) Tag(ctx context.Context, path, format string, meta Metadata) error {
	var err error
	switch format {
	case "mp3":
		err = t.tagMP3(path, meta)
	case "flac", "m4a":
		err = t.remux(ctx, path, format, meta)
	default:
		err = fmt.Errorf("unsupported tag format %q", format)
	}
	if err != nil {
		return errkind.New(errkind.Tagger, err)
	}
	return nil
}

func trackNumberValue(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
