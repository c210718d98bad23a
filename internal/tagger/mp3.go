package tagger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// textEncoding maps the configured encoding name to an id3v2 encoding;
// anything unrecognized falls back to UTF-8.
func (t *Tagger) textEncoding() id3v2.Encoding {
	switch strings.ToLower(t.Encoding) {
	case "utf-16", "utf16":
		return id3v2.EncodingUTF16
	case "iso-8859-1", "latin1":
		return id3v2.EncodingISO
	default:
		return id3v2.EncodingUTF8
	}
}

func (t *Tagger) tagMP3(path string, meta Metadata) error {
	file, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open mp3 for tagging: %w", err)
	}
	defer file.Close()

	if !t.PreserveExisting {
		file.DeleteAllFrames()
	}

	enc := t.textEncoding()
	file.SetVersion(byte(t.ID3Version))
	file.SetDefaultEncoding(enc)

	file.SetTitle(meta.Title)
	file.SetArtist(meta.Artist)
	file.SetAlbum(meta.Album)
	if meta.AlbumArtist != "" {
		file.AddTextFrame("TPE2", enc, meta.AlbumArtist)
	}
	if meta.Year != "" {
		yearID := "TYER"
		if t.ID3Version == 4 {
			yearID = "TDRC"
		}
		file.AddTextFrame(yearID, enc, meta.Year)
	}
	if v := trackNumberValue(meta.TrackNumber); v != "" {
		file.AddTextFrame("TRCK", enc, v)
	}
	if v := trackNumberValue(meta.DiscNumber); v != "" {
		file.AddTextFrame("TPOS", enc, v)
	}
	if meta.Genre != "" {
		file.SetGenre(meta.Genre)
	}
	if meta.Comment != "" {
		file.AddCommentFrame(id3v2.CommentFrame{
			Encoding: enc,
			Language: "eng",
			Text:     meta.Comment,
		})
	}
	if meta.Lyrics != "" {
		file.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding: enc,
			Language: "eng",
			Lyrics:   meta.Lyrics,
		})
	}
	if meta.SyncedLRC != "" {
		if frame, ok := syncedLyricsFrame(meta.SyncedLRC); ok {
			file.AddFrame("SYLT", frame)
		}
	}
	if len(meta.Cover) > 0 {
		file.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    enc,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     meta.Cover,
		})
	}

	if err := file.Save(); err != nil {
		return fmt.Errorf("save mp3 tags: %w", err)
	}
	return nil
}

const (
	syltFormatAbsoluteMs = 0x02
	syltContentLyrics    = 0x01
)

// syncedLyricsFrame builds a raw SYLT frame body; the id3v2 library has no
// native type for it. Layout per the ID3v2.4 frame spec: encoding byte,
// language, timestamp format, content type, NUL-terminated descriptor, then
// one NUL-terminated text plus 4-byte big-endian timestamp per line. The
// body is always UTF-8 so the single-NUL terminators stay valid.
func syncedLyricsFrame(lrc string) (id3v2.UnknownFrame, bool) {
	lines := ParseLRC(lrc)
	if len(lines) == 0 {
		return id3v2.UnknownFrame{}, false
	}

	var body bytes.Buffer
	body.WriteByte(3) // UTF-8
	body.WriteString("eng")
	body.WriteByte(syltFormatAbsoluteMs)
	body.WriteByte(syltContentLyrics)
	body.WriteString("Lyrics")
	body.WriteByte(0)

	stamp := make([]byte, 4)
	for _, line := range lines {
		body.WriteString(line.Text)
		body.WriteByte(0)
		binary.BigEndian.PutUint32(stamp, uint32(line.Ms))
		body.Write(stamp)
	}
	return id3v2.UnknownFrame{Body: body.Bytes()}, true
}
