package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/execx"
	"github.com/jaa/playlist-mirror/internal/httpx"
	"github.com/jaa/playlist-mirror/internal/textutil"
)

const (
	DefaultBinary  = "yt-dlp"
	StagingDirName = ".staging"

	watchURL      = "https://music.youtube.com/watch?v="
	startInterval = 500 * time.Millisecond
	staleAge      = time.Hour
)

// ErrDurationOutOfRange rejects tracks before any bytes are fetched.
var ErrDurationOutOfRange = errors.New("duration outside allowed range")

type Options struct {
	Format        string // mp3, flac or m4a
	Quality       string // low, medium or high; sets the mp3 abr floor
	BitrateKbps   int
	SampleRate    int // 0 leaves the source rate
	Channels      int // 0 leaves the source layout
	MinDurationS  int
	MaxDurationS  int
	Timeout       time.Duration
	RetryAttempts int
}

type Downloader struct {
	Bin        string
	StagingDir string
	Opts       Options

	// Exec runs one yt-dlp invocation; tests replace it.
	Exec func(ctx context.Context, spec execx.Spec, stdout io.Writer) execx.Result

	throttle  *httpx.Throttle
	retryBase time.Duration
	now       func() time.Time
}

func New(bin, stagingDir string, opts Options) *Downloader {
	if bin == "" {
		bin = DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	return &Downloader{
		Bin:        bin,
		StagingDir: stagingDir,
		Opts:       opts,
		Exec:       runWithStdout,
		throttle:   httpx.NewThrottle(startInterval),
		retryBase:  2 * time.Second,
		now:        time.Now,
	}
}

func runWithStdout(ctx context.Context, spec execx.Spec, stdout io.Writer) execx.Result {
	return execx.NewSubprocessRunner(stdout, nil).Run(ctx, spec)
}

// AudioExt maps the configured output format to its file extension.
func AudioExt(format string) string {
	return "." + strings.ToLower(format)
}

// formatSelectors orders extraction attempts from most specific to the
// catch-all; exhausted selectors mean the item has no usable audio.
func formatSelectors(format, quality string) []string {
	switch format {
	case "m4a":
		return []string{"ba[ext=m4a]", "ba", "b"}
	case "flac":
		return []string{"ba[abr>=320]", "ba", "b"}
	default: // mp3
		return []string{fmt.Sprintf("ba[abr>=%d]", mp3AbrFloor(quality)), "ba", "b"}
	}
}

// mp3AbrFloor maps the configured quality to the minimum source bitrate
// worth transcoding to mp3.
func mp3AbrFloor(quality string) int {
	switch quality {
	case "low":
		return 96
	case "medium":
		return 128
	default: // high
		return 160
	}
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Download fetches the audio for videoID and moves it to basePath plus the
// format extension, suffixing _1, _2, ... if the target exists. It returns
// the final path.
func (d *Downloader) Download(ctx context.Context, videoID, basePath string, onProgress func(Progress)) (string, error) {
	if err := os.MkdirAll(d.StagingDir, 0o755); err != nil {
		return "", errkind.New(errkind.Download, fmt.Errorf("create staging dir: %w", err))
	}

	policy := httpx.RetryPolicy{
		Attempts:  d.Opts.RetryAttempts,
		BaseDelay: d.retryBase,
		Factor:    2,
		Retryable: isTransient,
	}

	var finalPath string
	err := policy.Do(ctx, func(attempt int) error {
		if err := d.throttle.Wait(ctx); err != nil {
			return err
		}
		if attempt == 1 {
			if err := d.checkDuration(ctx, videoID); err != nil {
				return err
			}
		}
		path, err := d.extract(ctx, videoID, basePath, onProgress)
		if err != nil {
			return err
		}
		finalPath = path
		return nil
	})
	if err != nil {
		d.Cleanup(videoID)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if errkind.Of(err) == errkind.Unknown {
			err = errkind.New(errkind.Download, err)
		}
		return "", err
	}
	return finalPath, nil
}

func (d *Downloader) checkDuration(ctx context.Context, videoID string) error {
	var buf strings.Builder
	spec := execx.Spec{
		Bin:     d.Bin,
		Args:    []string{watchURL + videoID, "--dump-json", "--no-download", "--no-warnings", "--quiet"},
		Timeout: 60 * time.Second,
	}
	res := d.Exec(ctx, spec, &buf)
	if res.Interrupted {
		return context.Canceled
	}
	if res.ExitCode != 0 {
		return classifyExecFailure(res, buf.String())
	}

	var meta struct {
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(firstJSONLine(buf.String()), &meta); err != nil {
		return &transientError{fmt.Errorf("parse metadata for %s: %w", videoID, err)}
	}
	duration := int(meta.Duration + 0.5)
	if duration > 0 && (duration < d.Opts.MinDurationS || duration > d.Opts.MaxDurationS) {
		return errkind.New(errkind.Download,
			fmt.Errorf("%w: %ds not in %d..%ds", ErrDurationOutOfRange, duration, d.Opts.MinDurationS, d.Opts.MaxDurationS))
	}
	return nil
}

func (d *Downloader) extract(ctx context.Context, videoID, basePath string, onProgress func(Progress)) (string, error) {
	ext := AudioExt(d.Opts.Format)
	template := filepath.Join(d.StagingDir, videoID+"-stage.%(ext)s")

	var lastErr error
	for _, selector := range formatSelectors(d.Opts.Format, d.Opts.Quality) {
		writer := newProgressWriter(videoID, onProgress)
		spec := execx.Spec{
			Bin:     d.Bin,
			Args:    d.extractArgs(videoID, selector, template),
			Timeout: d.Opts.Timeout,
		}
		res := d.Exec(ctx, spec, writer)
		if res.Interrupted {
			writer.finish(true)
			return "", context.Canceled
		}
		if res.ExitCode == 0 {
			staged, err := d.stagedFile(videoID, ext)
			if err != nil {
				writer.finish(true)
				return "", err
			}
			target := textutil.UniquePath(basePath + ext)
			if err := os.Rename(staged, target); err != nil {
				writer.finish(true)
				return "", errkind.New(errkind.Download, fmt.Errorf("move staged file: %w", err))
			}
			writer.finish(false)
			return target, nil
		}

		writer.finish(true)
		lastErr = classifyExecFailure(res, "")
		if !isFormatUnavailable(res) {
			return "", lastErr
		}
		// format-availability failure, advance the cascade
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no format selector succeeded for %s", videoID)
	}
	return "", errkind.New(errkind.Download, fmt.Errorf("all format selectors exhausted for %s: %w", videoID, lastErr))
}

func (d *Downloader) extractArgs(videoID, selector, template string) []string {
	args := []string{
		watchURL + videoID,
		"-f", selector,
		"--extract-audio",
		"--audio-format", d.Opts.Format,
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"-o", template,
	}
	if d.Opts.Format == "mp3" && d.Opts.BitrateKbps > 0 {
		args = append(args, "--audio-quality", fmt.Sprintf("%dk", d.Opts.BitrateKbps))
	}
	if resample := d.resampleArgs(); resample != "" {
		args = append(args, "--postprocessor-args", "ffmpeg:"+resample)
	}
	return args
}

// resampleArgs builds the ffmpeg flags enforcing the configured sample rate
// and channel layout during extraction.
func (d *Downloader) resampleArgs() string {
	var parts []string
	if d.Opts.SampleRate > 0 {
		parts = append(parts, "-ar", strconv.Itoa(d.Opts.SampleRate))
	}
	if d.Opts.Channels > 0 {
		parts = append(parts, "-ac", strconv.Itoa(d.Opts.Channels))
	}
	return strings.Join(parts, " ")
}

// stagedFile locates the postprocessed output, preferring the target
// extension over leftover intermediates.
func (d *Downloader) stagedFile(videoID, ext string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(d.StagingDir, videoID+"-stage.*"))
	if err != nil || len(matches) == 0 {
		return "", errkind.New(errkind.Download, fmt.Errorf("no staged file for %s", videoID))
	}
	for _, m := range matches {
		if filepath.Ext(m) == ext {
			return m, nil
		}
	}
	return matches[0], nil
}

var formatFailureMarkers = []string{
	"requested format is not available",
	"format not available",
	"http error 403",
	"http error 429",
	"unable to extract",
}

var transientFailureMarkers = []string{
	"timed out",
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"network is unreachable",
	"unable to connect",
	"http error 5",
}

func isFormatUnavailable(res execx.Result) bool {
	combined := strings.ToLower(res.StderrTail + "\n" + res.StdoutTail)
	for _, marker := range formatFailureMarkers {
		if strings.Contains(combined, marker) {
			return true
		}
	}
	return false
}

func classifyExecFailure(res execx.Result, extra string) error {
	combined := strings.ToLower(res.StderrTail + "\n" + res.StdoutTail + "\n" + extra)
	detail := strings.TrimSpace(lastNonEmptyLine(res.StderrTail))
	if detail == "" {
		detail = fmt.Sprintf("exit code %d", res.ExitCode)
	}
	if res.TimedOut {
		return &transientError{fmt.Errorf("download timed out: %s", detail)}
	}
	if res.ExitCode == 127 {
		return errkind.New(errkind.Download, errors.New("yt-dlp not found on PATH"))
	}
	for _, marker := range transientFailureMarkers {
		if strings.Contains(combined, marker) {
			return &transientError{fmt.Errorf("transient download failure: %s", detail)}
		}
	}
	return errkind.New(errkind.Download, fmt.Errorf("yt-dlp failed: %s", detail))
}

// Cleanup removes any staged artifacts for videoID.
func (d *Downloader) Cleanup(videoID string) {
	matches, err := filepath.Glob(filepath.Join(d.StagingDir, videoID+"-*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// SweepStaging purges staging files untouched for over an hour, typically
// leftovers from interrupted runs.
func (d *Downloader) SweepStaging() {
	entries, err := os.ReadDir(d.StagingDir)
	if err != nil {
		return
	}
	cutoff := d.now().Add(-staleAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(d.StagingDir, entry.Name()))
		}
	}
}

func firstJSONLine(s string) []byte {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			return []byte(trimmed)
		}
	}
	return []byte(strings.TrimSpace(s))
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
