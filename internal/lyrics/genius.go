package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jaa/playlist-mirror/internal/httpx"
)

const geniusAPIBaseURL = "https://api.genius.com"

// Genius searches the song database and scrapes the lyric page. Requires an
// access token.
type Genius struct {
	HTTP    *httpx.Client
	Token   string
	BaseURL string
}

func NewGenius(client *httpx.Client, token string) *Genius {
	if client == nil {
		client = httpx.NewClient(httpx.DefaultRequestTimeout)
	}
	p := &Genius{HTTP: client, Token: token, BaseURL: geniusAPIBaseURL}
	for _, host := range []string{"api.genius.com", "genius.com"} {
		client.LimitHost(host, time.Second)
	}
	return p
}

func (p *Genius) Name() string    { return "genius" }
func (p *Genius) Available() bool { return strings.TrimSpace(p.Token) != "" }

type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				URL           string `json:"url"`
				Title         string `json:"title"`
				PrimaryArtist struct {
					Name string `json:"name"`
				} `json:"primary_artist"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

func (p *Genius) SearchLyrics(ctx context.Context, artist, title, album string) (string, error) {
	pageURL, err := p.findSongURL(ctx, artist, title)
	if err != nil || pageURL == "" {
		return "", err
	}
	return p.scrapeLyrics(ctx, pageURL)
}

func (p *Genius) findSongURL(ctx context.Context, artist, title string) (string, error) {
	query := url.Values{"q": {artist + " " + title}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		if httpx.IsStatus(err, http.StatusNotFound) {
			return "", nil
		}
		return "", err
	}
	defer resp.Body.Close()

	var parsed geniusSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode genius search: %w", err)
	}

	wantArtist := strings.ToLower(artist)
	for _, hit := range parsed.Response.Hits {
		if strings.Contains(strings.ToLower(hit.Result.PrimaryArtist.Name), wantArtist) ||
			strings.Contains(wantArtist, strings.ToLower(hit.Result.PrimaryArtist.Name)) {
			return hit.Result.URL, nil
		}
	}
	if len(parsed.Response.Hits) > 0 {
		return parsed.Response.Hits[0].Result.URL, nil
	}
	return "", nil
}

var (
	lyricsContainerPattern = regexp.MustCompile(`(?s)<div[^>]+data-lyrics-container="true"[^>]*>(.*?)</div>`)
	htmlTagPattern         = regexp.MustCompile(`<[^>]+>`)
	htmlBreakPattern       = regexp.MustCompile(`<br\s*/?>`)
)

func (p *Genius) scrapeLyrics(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		if httpx.IsStatus(err, http.StatusNotFound) {
			return "", nil
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read genius page: %w", err)
	}

	var parts []string
	for _, m := range lyricsContainerPattern.FindAllSubmatch(body, -1) {
		fragment := htmlBreakPattern.ReplaceAll(m[1], []byte("\n"))
		fragment = htmlTagPattern.ReplaceAll(fragment, nil)
		parts = append(parts, decodeEntities(string(fragment)))
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#x27;", "'",
	"&#39;", "'",
	"&nbsp;", " ",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}
