package textutil

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTrackDuration parses "m:ss", "mm:ss" and "h:mm:ss" into seconds.
func ParseTrackDuration(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("empty duration")
	}

	parts := strings.Split(trimmed, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}

	total := 0
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || value < 0 {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		total = total*60 + value
	}
	return total, nil
}

// FormatTrackDuration renders seconds as "m:ss"; hours spill into minutes
// so a 2-hour mix prints as "120:00".
func FormatTrackDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
