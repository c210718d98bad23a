package tagger

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SyncedLine is one timed lyric line from an LRC document.
type SyncedLine struct {
	Ms   int
	Text string
}

var lrcTimestampPattern = regexp.MustCompile(`\[(\d{1,2}):(\d{2})(?:\.(\d{1,3}))?\]`)

// ParseLRC extracts timed lines from LRC text. Lines may carry several
// timestamps; metadata tags like [ar:...] are ignored. Output is sorted by
// timestamp.
func ParseLRC(text string) []SyncedLine {
	var out []SyncedLine
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		stamps := lrcTimestampPattern.FindAllStringSubmatchIndex(line, -1)
		if len(stamps) == 0 {
			continue
		}
		// lyric text follows the last timestamp
		content := strings.TrimSpace(line[stamps[len(stamps)-1][1]:])
		for _, loc := range stamps {
			ms, ok := lrcMillis(line, loc)
			if !ok {
				continue
			}
			out = append(out, SyncedLine{Ms: ms, Text: content})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ms < out[j].Ms })
	return out
}

func lrcMillis(line string, loc []int) (int, bool) {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return line[loc[2*i]:loc[2*i+1]]
	}
	minutes, err := strconv.Atoi(group(1))
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(group(2))
	if err != nil || seconds > 59 {
		return 0, false
	}
	ms := 0
	if frac := group(3); frac != "" {
		// pad/truncate the fraction to milliseconds
		for len(frac) < 3 {
			frac += "0"
		}
		ms, _ = strconv.Atoi(frac[:3])
	}
	return minutes*60_000 + seconds*1_000 + ms, true
}
