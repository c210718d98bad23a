package ytmusic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/execx"
)

const (
	DefaultBinary  = "yt-dlp"
	defaultTimeout = 60 * time.Second
)

// Candidate is one search result from the secondary catalog.
type Candidate struct {
	ID        string
	Title     string
	Artist    string
	DurationS int
	Album     string
	Thumbnail string

	Official       bool
	Live           bool
	Cover          bool
	Karaoke        bool
	Remix          bool
	MusicVideo     bool
	VerifiedArtist bool
}

// Client searches via yt-dlp's ytsearch pseudo-URL in flat-playlist mode.
type Client struct {
	Bin     string
	Timeout time.Duration

	// Exec runs the search process; tests replace it.
	Exec func(ctx context.Context, spec execx.Spec) (stdout string, res execx.Result)
}

func NewClient(bin string) *Client {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Client{
		Bin:     bin,
		Timeout: defaultTimeout,
		Exec:    runToBuffer,
	}
}

func runToBuffer(ctx context.Context, spec execx.Spec) (string, execx.Result) {
	var buf bytes.Buffer
	runner := execx.NewSubprocessRunner(&buf, nil)
	res := runner.Run(ctx, spec)
	return buf.String(), res
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	spec := execx.Spec{
		Bin: c.Bin,
		Args: []string{
			fmt.Sprintf("ytsearch%d:%s", limit, query),
			"--dump-json",
			"--flat-playlist",
			"--no-warnings",
			"--quiet",
		},
		Timeout: c.Timeout,
	}

	exec := c.Exec
	if exec == nil {
		exec = runToBuffer
	}
	stdout, res := exec(ctx, spec)
	if res.Interrupted {
		return nil, context.Canceled
	}
	if res.ExitCode == 127 {
		return nil, errkind.New(errkind.Resolver, fmt.Errorf("%s not found on PATH", c.Bin))
	}
	if res.ExitCode != 0 && strings.TrimSpace(stdout) == "" {
		return nil, errkind.New(errkind.Resolver,
			fmt.Errorf("search %q failed (exit %d): %s", query, res.ExitCode, lastLine(res.StderrTail)))
	}

	return parseCandidates(stdout), nil
}

type searchEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Channel    string  `json:"channel"`
	Uploader   string  `json:"uploader"`
	ChannelID  string  `json:"channel_id"`
	Album      string  `json:"album"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

func parseCandidates(stdout string) []Candidate {
	var out []Candidate
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var entry searchEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.ID == "" {
			continue
		}
		out = append(out, entry.toCandidate())
	}
	return out
}

func (e searchEntry) toCandidate() Candidate {
	artist := e.Channel
	if artist == "" {
		artist = e.Uploader
	}
	// "Artist - Topic" channels are the catalog's auto-generated artist pages.
	topic := strings.HasSuffix(artist, " - Topic")
	artist = strings.TrimSuffix(artist, " - Topic")

	cand := Candidate{
		ID:             e.ID,
		Title:          e.Title,
		Artist:         artist,
		DurationS:      int(e.Duration + 0.5),
		Album:          e.Album,
		VerifiedArtist: topic && e.ChannelID != "",
	}
	if len(e.Thumbnails) > 0 {
		cand.Thumbnail = e.Thumbnails[len(e.Thumbnails)-1].URL
	}
	cand.detectFlags()
	return cand
}

var (
	livePattern       = regexp.MustCompile(`\b(live|concert|tour)\b`)
	coverPattern      = regexp.MustCompile(`\bcover(ed)?\b`)
	karaokePattern    = regexp.MustCompile(`\b(karaoke|instrumental version|backing track)\b`)
	remixPattern      = regexp.MustCompile(`\b(remix|bootleg|mashup)\b`)
	musicVideoPattern = regexp.MustCompile(`\b(official (music )?video|music video|m/v)\b`)
)

func (c *Candidate) detectFlags() {
	title := strings.ToLower(c.Title)
	c.Official = strings.Contains(title, "official")
	c.Live = livePattern.MatchString(title)
	c.Cover = coverPattern.MatchString(title)
	c.Karaoke = karaokePattern.MatchString(title)
	c.Remix = remixPattern.MatchString(title)
	c.MusicVideo = musicVideoPattern.MatchString(title)
	if c.VerifiedArtist {
		// auto-generated uploads are plain audio
		c.MusicVideo = false
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
