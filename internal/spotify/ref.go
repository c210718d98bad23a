package spotify

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	playlistIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
	playlistURLPattern = regexp.MustCompile(`/playlist/([A-Za-z0-9]{22})(?:[/?#]|$)`)
	playlistURIPattern = regexp.MustCompile(`^[A-Za-z]+:playlist:([A-Za-z0-9]{22})$`)
)

// ParsePlaylistRef extracts the playlist id from a raw id, a share URL or a
// platform URI. Any other shape is rejected.
func ParsePlaylistRef(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", fmt.Errorf("playlist reference is empty")
	}

	if playlistIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}
	if m := playlistURIPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1], nil
	}
	if strings.Contains(trimmed, "/playlist/") {
		if m := playlistURLPattern.FindStringSubmatch(trimmed); m != nil {
			return m[1], nil
		}
		return "", fmt.Errorf("playlist URL %q does not contain a valid 22-character id", trimmed)
	}
	if strings.Contains(trimmed, ":playlist:") {
		return "", fmt.Errorf("playlist URI %q does not contain a valid 22-character id", trimmed)
	}
	return "", fmt.Errorf("unrecognized playlist reference %q (expected id, /playlist/<id> URL or <scheme>:playlist:<id>)", trimmed)
}
