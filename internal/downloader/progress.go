package downloader

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

type ProgressStatus string

const (
	StatusDownloading ProgressStatus = "downloading"
	StatusFinished    ProgressStatus = "finished"
	StatusError       ProgressStatus = "error"
)

// Progress is one download progress update. For a given VideoID the final
// finished or error event always follows the last downloading event.
type Progress struct {
	VideoID    string
	Bytes      int64
	TotalBytes int64 // 0 when unknown
	Speed      string
	ETA        string
	Status     ProgressStatus
}

var (
	// [download]  45.3% of 3.45MiB at 1.20MiB/s ETA 00:12
	downloadLinePattern = regexp.MustCompile(`^\[download\]\s+([\d.]+)% of ~?\s*([\d.]+)(KiB|MiB|GiB|B)(?: at\s+([^ ]+))?(?: ETA (\S+))?`)
	// [download] Destination: /tmp/staging/abc-stage.webm
	destinationPattern = regexp.MustCompile(`^\[download\] Destination: (.+)$`)
)

// progressWriter turns yt-dlp stdout lines into Progress callbacks. Writes
// arrive from a single pipe reader goroutine so events stay ordered.
type progressWriter struct {
	videoID string
	emit    func(Progress)
	partial strings.Builder

	lastBytes int64
	everyB    int64
	nextAt    int64
}

func newProgressWriter(videoID string, emit func(Progress)) *progressWriter {
	return &progressWriter{
		videoID: videoID,
		emit:    emit,
		everyB:  1 << 20, // about one event per MiB
	}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.partial.Write(p)
	text := w.partial.String()
	if idx := strings.LastIndexAny(text, "\r\n"); idx >= 0 {
		complete := text[:idx]
		w.partial.Reset()
		w.partial.WriteString(text[idx+1:])
		scanner := bufio.NewScanner(strings.NewReader(strings.ReplaceAll(complete, "\r", "\n")))
		for scanner.Scan() {
			w.handleLine(strings.TrimSpace(scanner.Text()))
		}
	}
	return len(p), nil
}

func (w *progressWriter) handleLine(line string) {
	if w.emit == nil {
		return
	}
	m := downloadLinePattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	percent, _ := strconv.ParseFloat(m[1], 64)
	total := parseSize(m[2], m[3])
	bytes := int64(percent / 100 * float64(total))

	w.lastBytes = bytes
	if bytes < w.nextAt && percent < 100 {
		return
	}
	w.nextAt = bytes + w.everyB
	w.emit(Progress{
		VideoID:    w.videoID,
		Bytes:      bytes,
		TotalBytes: total,
		Speed:      m[4],
		ETA:        m[5],
		Status:     StatusDownloading,
	})
}

// finish flushes the terminal event after the process has exited.
func (w *progressWriter) finish(failed bool) {
	if w.emit == nil {
		return
	}
	status := StatusFinished
	if failed {
		status = StatusError
	}
	w.emit(Progress{VideoID: w.videoID, Bytes: w.lastBytes, Status: status})
}

func parseSize(value, unit string) int64 {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	switch unit {
	case "GiB":
		n *= 1 << 30
	case "MiB":
		n *= 1 << 20
	case "KiB":
		n *= 1 << 10
	}
	return int64(n)
}
