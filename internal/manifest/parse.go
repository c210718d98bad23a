package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/model"
	"github.com/jaa/playlist-mirror/internal/textutil"
)

var trackLinePattern = regexp.MustCompile(`^(\d{1,4})\. (.*) \((\d+:\d{2}(?::\d{2})?)\) \[[A-Za-z]+:track:([A-Za-z0-9]+)\](.*)$`)

// Read loads and parses a manifest. A missing or unreadable file and an
// unparseable header are fatal; unparseable track lines are skipped and
// reported as warnings so the affected tracks get re-downloaded.
func Read(path string) (*Manifest, []string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errkind.New(errkind.Manifest, fmt.Errorf("read manifest %s: %w", path, err))
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil, errkind.New(errkind.Manifest, fmt.Errorf("manifest %s is empty", path))
	}

	m := &Manifest{}
	warnings := []string{}
	headerFields := map[string]string{}
	lineNo := 0

	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			key, value, ok := splitHeaderLine(line)
			if ok {
				headerFields[key] = value
			}
			continue
		}

		entry, warn, ok := parseTrackLine(line)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line %d: unparseable track line skipped", lineNo))
			continue
		}
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("line %d: %s", lineNo, warn))
		}
		m.Entries = append(m.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errkind.New(errkind.Manifest, fmt.Errorf("scan manifest %s: %w", path, err))
	}

	header, err := parseHeader(headerFields)
	if err != nil {
		return nil, nil, errkind.New(errkind.Manifest, fmt.Errorf("manifest %s: %w", path, err))
	}
	m.Header = header
	return m, warnings, nil
}

func splitHeaderLine(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	idx := strings.Index(trimmed, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(trimmed[:idx])
	value := strings.TrimSpace(trimmed[idx+1:])
	return key, value, key != ""
}

func parseHeader(fields map[string]string) (Header, error) {
	header := Header{}

	required := []string{
		"Format Version", "Playlist", "Source ID", "Created",
		"Total tracks", "Last modified", "Lyrics enabled", "Lyrics source",
	}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return header, fmt.Errorf("header field %q missing", key)
		}
	}

	header.FormatVersion = fields["Format Version"]
	header.PlaylistName = fields["Playlist"]
	header.SourceID = fields["Source ID"]
	header.LyricsSource = fields["Lyrics source"]
	header.Description = fields["Description"]
	header.Owner = fields["Owner"]

	created, err := time.Parse(timeLayout, fields["Created"])
	if err != nil {
		return header, fmt.Errorf("invalid Created timestamp %q", fields["Created"])
	}
	header.Created = created

	modified, err := time.Parse(timeLayout, fields["Last modified"])
	if err != nil {
		return header, fmt.Errorf("invalid Last modified timestamp %q", fields["Last modified"])
	}
	header.LastModified = modified

	total, err := strconv.Atoi(fields["Total tracks"])
	if err != nil || total < 0 {
		return header, fmt.Errorf("invalid Total tracks value %q", fields["Total tracks"])
	}
	header.TotalTracks = total

	lyricsEnabled, err := strconv.ParseBool(fields["Lyrics enabled"])
	if err != nil {
		return header, fmt.Errorf("invalid Lyrics enabled value %q", fields["Lyrics enabled"])
	}
	header.LyricsEnabled = lyricsEnabled

	if raw, ok := fields["Public"]; ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			header.Public = &value
		}
	}
	if raw, ok := fields["Collaborative"]; ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			header.Collaborative = &value
		}
	}
	return header, nil
}

func parseTrackLine(line string) (Entry, string, bool) {
	entry := Entry{}

	iconEnd := strings.Index(line, " ")
	if iconEnd <= 0 {
		return entry, "", false
	}
	cluster := line[:iconEnd]
	rest := line[iconEnd+1:]

	audio, lyrics, warn := splitIconCluster(cluster)
	entry.AudioStatus = audio
	entry.LyricsStatus = lyrics

	match := trackLinePattern.FindStringSubmatch(rest)
	if match == nil {
		return entry, "", false
	}

	position, err := strconv.Atoi(match[1])
	if err != nil || position < 1 {
		return entry, "", false
	}
	entry.Position = position

	body := match[2]
	sep := strings.Index(body, " - ")
	if sep < 0 {
		return entry, "", false
	}
	entry.Artists = strings.TrimSpace(body[:sep])
	entry.Title = strings.TrimSpace(body[sep+3:])
	if entry.Artists == "" || entry.Title == "" {
		return entry, "", false
	}

	duration, err := textutil.ParseTrackDuration(match[3])
	if err != nil {
		return entry, "", false
	}
	entry.DurationS = duration
	entry.SourceID = match[4]

	entry.LocalFile, entry.LyricsRef = parseTrailing(match[5])
	return entry, warn, true
}

// splitIconCluster separates the two leading status icons. Unknown icons
// map to pending so the track is retried, per the tolerant-parse policy.
func splitIconCluster(cluster string) (model.AudioStatus, model.LyricsStatus, string) {
	for _, a := range audioIcons {
		remainder, ok := strings.CutPrefix(cluster, a.icon)
		if !ok {
			continue
		}
		for _, l := range lyricsIcons {
			if remainder == l.icon {
				return a.status, l.status, ""
			}
		}
		return a.status, model.LyricsPending, fmt.Sprintf("unknown lyrics status icon %q treated as pending", remainder)
	}

	for _, l := range lyricsIcons {
		remainder, ok := strings.CutSuffix(cluster, l.icon)
		if !ok || remainder == "" {
			continue
		}
		return model.AudioPending, l.status, fmt.Sprintf("unknown audio status icon %q treated as pending", remainder)
	}

	return model.AudioPending, model.LyricsPending, fmt.Sprintf("unknown status icons %q treated as pending", cluster)
}

func parseTrailing(rest string) (string, string) {
	localFile := ""
	lyricsRef := ""

	remaining := rest
	for {
		arrowIdx := strings.Index(remaining, "->")
		lyricsIdx := strings.Index(remaining, "| Lyrics:")

		switch {
		case arrowIdx >= 0 && (lyricsIdx < 0 || arrowIdx < lyricsIdx):
			tail := remaining[arrowIdx+len("->"):]
			end := strings.Index(tail, "| Lyrics:")
			if end < 0 {
				end = len(tail)
			}
			localFile = strings.TrimSpace(strings.TrimSuffix(tail[:end], "|"))
			remaining = tail[end:]
		case lyricsIdx >= 0:
			tail := remaining[lyricsIdx+len("| Lyrics:"):]
			end := strings.Index(tail, "->")
			if end < 0 {
				end = len(tail)
			}
			lyricsRef = strings.TrimSpace(tail[:end])
			remaining = tail[end:]
			if end < len(tail) {
				remaining = "->" + remaining[2:]
			}
		default:
			return localFile, lyricsRef
		}
		if strings.TrimSpace(remaining) == "" {
			return localFile, lyricsRef
		}
	}
}
