package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jaa/playlist-mirror/internal/httpx"
)

const ovhBaseURL = "https://api.lyrics.ovh/v1"

// OVH is a keyless plain-text source.
type OVH struct {
	HTTP    *httpx.Client
	BaseURL string
}

func NewOVH(client *httpx.Client) *OVH {
	if client == nil {
		client = httpx.NewClient(httpx.DefaultRequestTimeout)
	}
	p := &OVH{HTTP: client, BaseURL: ovhBaseURL}
	if u, err := url.Parse(p.BaseURL); err == nil {
		client.LimitHost(u.Host, time.Second)
	}
	return p
}

func (p *OVH) Name() string    { return "ovh" }
func (p *OVH) Available() bool { return true }

func (p *OVH) SearchLyrics(ctx context.Context, artist, title, album string) (string, error) {
	endpoint := p.BaseURL + "/" + url.PathEscape(artist) + "/" + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

	var parsed struct {
		Lyrics string `json:"lyrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode lyrics.ovh response: %w", err)
	}
	return parsed.Lyrics, nil
}
