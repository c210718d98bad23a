// Package doctor runs environment diagnostics: external binaries, versions,
// credentials and filesystem permissions.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/jaa/playlist-mirror/internal/auth"
	"github.com/jaa/playlist-mirror/internal/config"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

type Check struct {
	Severity Severity `json:"severity"`
	Name     string   `json:"name"`
	Message  string   `json:"message"`
}

type Report struct {
	Checks []Check `json:"checks"`
}

func (r Report) HasErrors() bool {
	for _, check := range r.Checks {
		if check.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r Report) ErrorCount() int {
	count := 0
	for _, check := range r.Checks {
		if check.Severity == SeverityError {
			count++
		}
	}
	return count
}

type dependency struct {
	Binary     string
	MinVersion string
	Required   bool
}

// ffmpeg is optional because tagging mp3 files works without it; flac/m4a
// tagging and audio post-processing need it.
func requiredBinaries(cfg config.Config) []dependency {
	ffmpegRequired := cfg.Output.Format != config.FormatMP3 ||
		cfg.Audio.TrimSilence || cfg.Audio.Normalize
	return []dependency{
		{Binary: "yt-dlp", MinVersion: "2024.1.0", Required: true},
		{Binary: "ffmpeg", MinVersion: "4.0.0", Required: ffmpegRequired},
	}
}

type Checker struct {
	LookPath      func(string) (string, error)
	ReadVersion   func(context.Context, string) (string, error)
	Getenv        func(string) string
	CheckWritable func(string) error
	TokenStatus   func() auth.Status
}

func NewChecker(cache auth.TokenCache) *Checker {
	return &Checker{
		LookPath:      exec.LookPath,
		ReadVersion:   defaultReadVersion,
		Getenv:        os.Getenv,
		CheckWritable: checkDirWritable,
		TokenStatus:   cache.Status,
	}
}

func (c *Checker) Check(ctx context.Context, cfg config.Config) Report {
	report := Report{Checks: []Check{}}

	for _, dep := range requiredBinaries(cfg) {
		report.Checks = append(report.Checks, c.checkBinary(ctx, dep)...)
	}

	report.Checks = append(report.Checks, c.checkCredentials(cfg)...)
	report.Checks = append(report.Checks, c.checkOutputRoot(cfg)...)
	return report
}

func (c *Checker) checkBinary(ctx context.Context, dep dependency) []Check {
	missingSeverity := SeverityError
	if !dep.Required {
		missingSeverity = SeverityWarn
	}

	location, err := c.LookPath(dep.Binary)
	if err != nil {
		return []Check{{
			Severity: missingSeverity,
			Name:     "dependency",
			Message:  fmt.Sprintf("%s not found in PATH", dep.Binary),
		}}
	}

	checks := []Check{{
		Severity: SeverityInfo,
		Name:     "dependency",
		Message:  fmt.Sprintf("%s found at %s", dep.Binary, location),
	}}

	output, err := c.ReadVersion(ctx, dep.Binary)
	if err != nil {
		return append(checks, Check{
			Severity: SeverityWarn,
			Name:     "dependency",
			Message:  fmt.Sprintf("%s version could not be read: %v", dep.Binary, err),
		})
	}
	version, err := extractVersion(output)
	if err != nil {
		return append(checks, Check{
			Severity: SeverityWarn,
			Name:     "dependency",
			Message:  fmt.Sprintf("%s version output is unrecognized: %q", dep.Binary, strings.TrimSpace(output)),
		})
	}
	if compareVersions(version, dep.MinVersion) < 0 {
		return append(checks, Check{
			Severity: SeverityError,
			Name:     "dependency",
			Message:  fmt.Sprintf("%s version %s is below minimum %s", dep.Binary, version, dep.MinVersion),
		})
	}
	return append(checks, Check{
		Severity: SeverityInfo,
		Name:     "dependency",
		Message:  fmt.Sprintf("%s version %s is compatible", dep.Binary, version),
	})
}

func (c *Checker) checkCredentials(cfg config.Config) []Check {
	checks := []Check{}

	missing := []string{}
	for _, key := range []string{"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET"} {
		if strings.TrimSpace(c.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		checks = append(checks, Check{
			Severity: SeverityError,
			Name:     "auth",
			Message:  fmt.Sprintf("missing required env var(s): %s", strings.Join(missing, ", ")),
		})
	} else {
		checks = append(checks, Check{
			Severity: SeverityInfo,
			Name:     "auth",
			Message:  "Spotify credentials are present",
		})
	}

	if c.TokenStatus != nil {
		status := c.TokenStatus()
		switch {
		case !status.Authenticated:
			checks = append(checks, Check{
				Severity: SeverityWarn,
				Name:     "auth",
				Message:  "not logged in; run `plmr login`",
			})
		case status.Expired:
			checks = append(checks, Check{
				Severity: SeverityInfo,
				Name:     "auth",
				Message:  "cached token is expired and will be refreshed on next run",
			})
		default:
			checks = append(checks, Check{
				Severity: SeverityInfo,
				Name:     "auth",
				Message:  fmt.Sprintf("logged in, token valid until %s", status.Expiry.Format("2006-01-02 15:04:05")),
			})
		}
	}

	if cfg.Lyrics.Enabled && containsSource(cfg, "genius") && strings.TrimSpace(c.Getenv("GENIUS_ACCESS_TOKEN")) == "" {
		checks = append(checks, Check{
			Severity: SeverityWarn,
			Name:     "auth",
			Message:  "GENIUS_ACCESS_TOKEN is not set; the genius lyrics provider will be skipped",
		})
	}

	return checks
}

func containsSource(cfg config.Config, name string) bool {
	if cfg.Lyrics.PrimarySource == name {
		return true
	}
	for _, source := range cfg.Lyrics.FallbackSources {
		if source == name {
			return true
		}
	}
	return false
}

func (c *Checker) checkOutputRoot(cfg config.Config) []Check {
	root, err := config.ExpandPath(cfg.Output.Directory)
	if err != nil {
		return []Check{{
			Severity: SeverityError,
			Name:     "filesystem",
			Message:  fmt.Sprintf("output_directory is invalid: %v", err),
		}}
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return []Check{{
			Severity: SeverityInfo,
			Name:     "filesystem",
			Message:  fmt.Sprintf("output directory %s does not exist yet and will be created", root),
		}}
	}
	if err := c.CheckWritable(root); err != nil {
		return []Check{{
			Severity: SeverityError,
			Name:     "filesystem",
			Message:  fmt.Sprintf("output directory is not writable: %v", err),
		}}
	}
	return []Check{{
		Severity: SeverityInfo,
		Name:     "filesystem",
		Message:  fmt.Sprintf("output directory %s is writable", root),
	}}
}

func defaultReadVersion(ctx context.Context, binary string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, "-version")
	if binary != "ffmpeg" {
		cmd = exec.CommandContext(ctx, binary, "--version")
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func checkDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	file, err := os.CreateTemp(path, ".plmr-write-check-*")
	if err != nil {
		return err
	}
	name := file.Name()
	_ = file.Close()
	_ = os.Remove(name)
	return nil
}

// ffmpeg reports two-part versions like "6.0", yt-dlp three-part dates.
var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

func extractVersion(raw string) (string, error) {
	matches := versionPattern.FindStringSubmatch(raw)
	if matches == nil {
		return "", fmt.Errorf("no version number found")
	}
	if matches[3] == "" {
		return fmt.Sprintf("%s.%s.0", matches[1], matches[2]), nil
	}
	return fmt.Sprintf("%s.%s.%s", matches[1], matches[2], matches[3]), nil
}

func compareVersions(lhs string, rhs string) int {
	leftParts := strings.Split(lhs, ".")
	rightParts := strings.Split(rhs, ".")
	for i := 0; i < 3; i++ {
		leftValue := 0
		rightValue := 0
		if i < len(leftParts) {
			leftValue, _ = strconv.Atoi(leftParts[i])
		}
		if i < len(rightParts) {
			rightValue, _ = strconv.Atoi(rightParts[i])
		}
		if leftValue > rightValue {
			return 1
		}
		if leftValue < rightValue {
			return -1
		}
	}
	return 0
}
