package tagger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jaa/playlist-mirror/internal/execx"
	"github.com/jaa/playlist-mirror/internal/fileops"
)

// remux rewrites the container with ffmpeg to attach metadata and cover art
// without re-encoding the audio stream.
func (t *Tagger) remux(ctx context.Context, path, format string, meta Metadata) error {
	dir := filepath.Dir(path)
	tmpOut := filepath.Join(dir, ".tmp-tag-"+filepath.Base(path))
	defer os.Remove(tmpOut)

	var coverPath string
	if len(meta.Cover) > 0 {
		coverFile, err := os.CreateTemp(dir, ".tmp-cover-*.jpg")
		if err != nil {
			return fmt.Errorf("write cover temp file: %w", err)
		}
		coverPath = coverFile.Name()
		defer os.Remove(coverPath)
		if _, err := coverFile.Write(meta.Cover); err != nil {
			coverFile.Close()
			return fmt.Errorf("write cover temp file: %w", err)
		}
		coverFile.Close()
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", path}
	if coverPath != "" {
		args = append(args, "-i", coverPath, "-map", "0:a", "-map", "1:v", "-disposition:v:0", "attached_pic")
	} else {
		args = append(args, "-map", "0")
	}
	args = append(args, "-c", "copy")
	if !t.PreserveExisting {
		// drop whatever tags the extractor left before writing our own
		args = append(args, "-map_metadata", "-1")
	}
	for _, pair := range metadataPairs(format, meta) {
		if pair.value != "" {
			args = append(args, "-metadata", pair.key+"="+pair.value)
		}
	}
	args = append(args, "-f", containerName(format), tmpOut)

	res := t.Exec(ctx, execx.Spec{
		Bin:     t.FFmpegBin,
		Args:    args,
		Timeout: 2 * time.Minute,
	})
	if res.Interrupted {
		return context.Canceled
	}
	if res.ExitCode == 127 {
		return fmt.Errorf("ffmpeg not found on PATH")
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.StderrTail)
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return fmt.Errorf("ffmpeg remux failed: %s", detail)
	}

	return fileops.ReplaceFileSafely(tmpOut, path)
}

// metadataPairs maps Metadata onto ffmpeg -metadata keys. ffmpeg translates
// these to Vorbis comments for FLAC and the corresponding atoms for M4A
// (title -> ©nam, artist -> ©ART, album -> ©alb, album_artist -> aART,
// date -> ©day, track -> trkn, disc -> disk, genre -> ©gen, comment -> ©cmt,
// lyrics -> ©lyr).
type metadataPair struct {
	key   string
	value string
}

func metadataPairs(format string, meta Metadata) []metadataPair {
	pairs := []metadataPair{
		{"title", meta.Title},
		{"artist", meta.Artist},
		{"album", meta.Album},
		{"album_artist", meta.AlbumArtist},
		{"date", meta.Year},
		{"track", trackNumberValue(meta.TrackNumber)},
		{"disc", trackNumberValue(meta.DiscNumber)},
		{"genre", meta.Genre},
		{"comment", meta.Comment},
	}
	if meta.Lyrics != "" {
		key := "lyrics"
		if format == "m4a" {
			key = "lyrics-eng"
		}
		pairs = append(pairs, metadataPair{key, meta.Lyrics})
	}
	return pairs
}

func containerName(format string) string {
	if format == "m4a" {
		return "ipod"
	}
	return format
}
