package processor

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

const (
	silenceNoiseFloor = "-40dB"
	silenceMinLenS    = 1.0
	trimPadS          = 0.5
	// trimming only happens when it removes more than this much audio
	trimWorthwhileS = 1.0

	loudnormTargetI   = -23.0
	loudnormTargetTP  = -1.0
	loudnormTargetLRA = 7.0
)

// Processor applies optional audio cleanup after download. Both steps are
// best effort: a missing ffmpeg or an analysis failure leaves the file as
// downloaded.
type Processor struct {
	FFmpegBin   string
	TrimSilence bool
	Normalize   bool

	// Exec runs ffmpeg and returns its collected stderr, where ffmpeg
	// writes all analysis output; tests replace it.
	Exec func(ctx context.Context, spec execx.Spec) (stderr string, res execx.Result)
}

func New(ffmpegBin string, trimSilence, normalize bool) *Processor {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Processor{
		FFmpegBin:   ffmpegBin,
		TrimSilence: trimSilence,
		Normalize:   normalize,
		Exec:        runCollectingStderr,
	}
}

func runCollectingStderr(ctx context.Context, spec execx.Spec) (string, execx.Result) {
	var buf strings.Builder
	res := execx.NewSubprocessRunner(nil, &buf).Run(ctx, spec)
	return buf.String(), res
}

// Process runs the enabled steps in order: silence trim, then loudness
// normalization.
func (p *Processor) Process(ctx context.Context, path string) error {
	if !p.TrimSilence && !p.Normalize {
		return nil
	}
	if p.TrimSilence {
		if err := p.trimSilence(ctx, path); err != nil {
			return err
		}
	}
	if p.Normalize {
		if err := p.normalize(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) trimSilence(ctx context.Context, path string) error {
	stderr, res := p.Exec(ctx, execx.Spec{
		Bin: p.FFmpegBin,
		Args: []string{
			"-hide_banner", "-i", path,
			"-af", fmt.Sprintf("silencedetect=noise=%s:d=%g", silenceNoiseFloor, silenceMinLenS),
			"-f", "null", "-",
		},
		Timeout: 2 * time.Minute,
	})
	if res.Interrupted {
		return context.Canceled
	}
	if res.ExitCode == 127 {
		return nil // no ffmpeg, skip
	}
	if res.ExitCode != 0 {
		return nil // analysis failed, keep the file as is
	}

	duration, ok := parseDuration(stderr)
	if !ok {
		return nil
	}
	start, end := trimBounds(parseSilences(stderr), duration)
	if (start + (duration - end)) <= trimWorthwhileS {
		return nil
	}

	tmp := filepath.Join(filepath.Dir(path), ".tmp-trim-"+filepath.Base(path))
	defer os.Remove(tmp)
	_, res = p.Exec(ctx, execx.Spec{
		Bin: p.FFmpegBin,
		Args: []string{
			"-hide_banner", "-y",
			"-ss", fmt.Sprintf("%.3f", start),
			"-to", fmt.Sprintf("%.3f", end),
			"-i", path,
			"-c", "copy",
			"-f", containerFor(path), tmp,
		},
		Timeout: 2 * time.Minute,
	})
	if res.Interrupted {
		return context.Canceled
	}
	if res.ExitCode != 0 {
		return nil
	}
	return fileops.ReplaceFileSafely(tmp, path)
}

// trimBounds converts detected silence windows into the keep range with the
// configured padding.
func trimBounds(silences []silenceWindow, duration float64) (start, end float64) {
	start = 0
	end = duration
	for _, s := range silences {
		if s.start <= 0.1 && s.end > start {
			start = s.end - trimPadS
		}
		if s.end >= duration-0.1 && s.start < end {
			end = s.start + trimPadS
		}
	}
	if start < 0 {
		start = 0
	}
	if end > duration {
		end = duration
	}
	if end <= start {
		return 0, duration
	}
	return start, end
}

func (p *Processor) normalize(ctx context.Context, path string) error {
	filter := fmt.Sprintf("loudnorm=I=%g:TP=%g:LRA=%g:print_format=json",
		loudnormTargetI, loudnormTargetTP, loudnormTargetLRA)
	stderr, res := p.Exec(ctx, execx.Spec{
		Bin:     p.FFmpegBin,
		Args:    []string{"-hide_banner", "-i", path, "-af", filter, "-f", "null", "-"},
		Timeout: 5 * time.Minute,
	})
	if res.Interrupted {
		return context.Canceled
	}
	if res.ExitCode == 127 || res.ExitCode != 0 {
		return nil
	}

	measured, ok := parseLoudnorm(stderr)
	if !ok {
		return nil
	}

	secondPass := fmt.Sprintf(
		"loudnorm=I=%g:TP=%g:LRA=%g:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true",
		loudnormTargetI, loudnormTargetTP, loudnormTargetLRA,
		measured.InputI, measured.InputTP, measured.InputLRA, measured.InputThresh, measured.TargetOffset)

	tmp := filepath.Join(filepath.Dir(path), ".tmp-norm-"+filepath.Base(path))
	defer os.Remove(tmp)
	_, res = p.Exec(ctx, execx.Spec{
		Bin: p.FFmpegBin,
		Args: []string{
			"-hide_banner", "-y", "-i", path,
			"-af", secondPass,
			"-f", containerFor(path), tmp,
		},
		Timeout: 5 * time.Minute,
	})
	if res.Interrupted {
		return context.Canceled
	}
	if res.ExitCode != 0 {
		return nil
	}
	return fileops.ReplaceFileSafely(tmp, path)
}

func containerFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m4a":
		return "ipod"
	case ".flac":
		return "flac"
	default:
		return "mp3"
	}
}
