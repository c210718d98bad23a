package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jaa/playlist-mirror/internal/httpx"
)

// ErrInstrumental marks tracks a provider positively identifies as having no
// lyrics.
var ErrInstrumental = errors.New("track is instrumental")

const lrclibBaseURL = "https://lrclib.net"

// LRCLib serves both plain and synced lyrics and needs no credentials.
type LRCLib struct {
	HTTP    *httpx.Client
	BaseURL string
}

func NewLRCLib(client *httpx.Client) *LRCLib {
	if client == nil {
		client = httpx.NewClient(httpx.DefaultRequestTimeout)
	}
	p := &LRCLib{HTTP: client, BaseURL: lrclibBaseURL}
	if u, err := url.Parse(p.BaseURL); err == nil {
		client.LimitHost(u.Host, time.Second)
	}
	return p
}

func (p *LRCLib) Name() string    { return "lrclib" }
func (p *LRCLib) Available() bool { return true }

type lrclibRecord struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	Instrumental bool   `json:"instrumental"`
}

func (p *LRCLib) lookup(ctx context.Context, artist, title, album string) (*lrclibRecord, error) {
	query := url.Values{
		"artist_name": {artist},
		"track_name":  {title},
	}
	if album != "" {
		query.Set("album_name", album)
	}

	var record lrclibRecord
	err := p.getJSON(ctx, "/api/get", query, &record)
	if err == nil {
		return &record, nil
	}
	if !httpx.IsStatus(err, http.StatusNotFound) {
		return nil, err
	}

	// exact lookup missed, fall back to search
	var results []lrclibRecord
	searchQuery := url.Values{
		"artist_name": {artist},
		"track_name":  {title},
	}
	if err := p.getJSON(ctx, "/api/search", searchQuery, &results); err != nil {
		if httpx.IsStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (p *LRCLib) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "plmr (https://github.com/jaa/playlist-mirror)")
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode lrclib response: %w", err)
	}
	return nil
}

func (p *LRCLib) SearchLyrics(ctx context.Context, artist, title, album string) (string, error) {
	record, err := p.lookup(ctx, artist, title, album)
	if err != nil || record == nil {
		return "", err
	}
	if record.Instrumental {
		return "", ErrInstrumental
	}
	return record.PlainLyrics, nil
}

func (p *LRCLib) SearchSynced(ctx context.Context, artist, title string) (string, error) {
	record, err := p.lookup(ctx, artist, title, "")
	if err != nil || record == nil {
		return "", err
	}
	if record.Instrumental {
		return "", ErrInstrumental
	}
	return record.SyncedLyrics, nil
}
