package processor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

type silenceWindow struct {
	start float64
	end   float64
}

var (
	silenceStartPattern = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndPattern   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
	durationPattern     = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2})\.(\d{2})`)
)

// parseSilences pairs silence_start/silence_end lines from silencedetect
// output. A trailing start without an end runs to the end of file and is
// closed by the caller's duration.
func parseSilences(stderr string) []silenceWindow {
	var out []silenceWindow
	var openStart *float64
	for _, line := range strings.Split(stderr, "\n") {
		if m := silenceStartPattern.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				openStart = &v
			}
			continue
		}
		if m := silenceEndPattern.FindStringSubmatch(line); m != nil && openStart != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				out = append(out, silenceWindow{start: *openStart, end: v})
			}
			openStart = nil
		}
	}
	if openStart != nil {
		out = append(out, silenceWindow{start: *openStart, end: 1 << 30})
	}
	return out
}

func parseDuration(stderr string) (float64, bool) {
	m := durationPattern.FindStringSubmatch(stderr)
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	centis, _ := strconv.Atoi(m[4])
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(centis)/100, true
}

type loudnormStats struct {
	InputI       string `json:"input_i"`
	InputTP      string `json:"input_tp"`
	InputLRA     string `json:"input_lra"`
	InputThresh  string `json:"input_thresh"`
	TargetOffset string `json:"target_offset"`
}

// parseLoudnorm extracts the JSON block loudnorm prints at the end of the
// first pass.
func parseLoudnorm(stderr string) (loudnormStats, bool) {
	start := strings.LastIndex(stderr, "{")
	end := strings.LastIndex(stderr, "}")
	if start < 0 || end <= start {
		return loudnormStats{}, false
	}
	var stats loudnormStats
	if err := json.Unmarshal([]byte(stderr[start:end+1]), &stats); err != nil {
		return loudnormStats{}, false
	}
	if stats.InputI == "" {
		return loudnormStats{}, false
	}
	return stats, true
}
