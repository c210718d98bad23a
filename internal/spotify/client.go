package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/httpx"
	"github.com/jaa/playlist-mirror/internal/model"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	pageSize       = 100
	batchSize      = 50
	// Minimum interval between outbound API requests.
	requestInterval = 100 * time.Millisecond
)

var ErrAuth = errors.New("spotify authentication failed")

// TokenProvider supplies bearer tokens. Invalidate is called after a 401 so
// the next Token call must fetch a fresh one.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type Client struct {
	HTTP    *httpx.Client
	Tokens  TokenProvider
	BaseURL string

	// OnWarning receives non-fatal anomalies such as null playlist items.
	OnWarning func(msg string)
}

func NewClient(tokens TokenProvider, httpClient *httpx.Client) *Client {
	if httpClient == nil {
		httpClient = httpx.NewClient(httpx.DefaultRequestTimeout)
	}
	c := &Client{
		HTTP:    httpClient,
		Tokens:  tokens,
		BaseURL: defaultBaseURL,
	}
	if u, err := url.Parse(c.BaseURL); err == nil {
		httpClient.LimitHost(u.Host, requestInterval)
	}
	return c
}

func (c *Client) warn(format string, args ...any) {
	if c.OnWarning != nil {
		c.OnWarning(fmt.Sprintf(format, args...))
	}
}

// getJSON performs an authenticated GET. A 401 triggers one token refresh and
// one retry; a second 401 is a hard auth failure.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	refreshed := false
	for {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return errkind.New(errkind.Auth, fmt.Errorf("obtain token: %w", err))
		}

		endpoint := c.BaseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if httpx.IsStatus(err, http.StatusUnauthorized) {
				if refreshed {
					return errkind.New(errkind.Auth, fmt.Errorf("%w: token rejected twice", ErrAuth))
				}
				refreshed = true
				c.Tokens.Invalidate()
				continue
			}
			if httpx.IsStatus(err, http.StatusNotFound) || httpx.IsStatus(err, http.StatusForbidden) {
				return errkind.New(errkind.SourcePermanent, err)
			}
			return errkind.New(errkind.SourceTransient, err)
		}

		defer resp.Body.Close()
		if dst == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return errkind.New(errkind.SourceTransient, fmt.Errorf("decode %s response: %w", path, err))
		}
		return nil
	}
}

type apiImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type apiArtist struct {
	Name string `json:"name"`
}

type apiAlbum struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Artists     []apiArtist `json:"artists"`
	ReleaseDate string      `json:"release_date"`
	Genres      []string    `json:"genres"`
	Images      []apiImage  `json:"images"`
}

type apiTrack struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Artists     []apiArtist `json:"artists"`
	Album       apiAlbum    `json:"album"`
	DurationMS  int         `json:"duration_ms"`
	Explicit    bool        `json:"explicit"`
	TrackNumber int         `json:"track_number"`
	DiscNumber  int         `json:"disc_number"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
	IsPlayable   *bool `json:"is_playable"`
	Restrictions *struct {
		Reason string `json:"reason"`
	} `json:"restrictions"`
}

func (t apiTrack) toModel() model.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	albumArtists := make([]string, 0, len(t.Album.Artists))
	for _, a := range t.Album.Artists {
		albumArtists = append(albumArtists, a.Name)
	}
	images := make([]model.Image, 0, len(t.Album.Images))
	for _, img := range t.Album.Images {
		images = append(images, model.Image{URL: img.URL, Width: img.Width, Height: img.Height})
	}
	available := t.Restrictions == nil
	if t.IsPlayable != nil {
		available = available && *t.IsPlayable
	}
	return model.Track{
		ID:      t.ID,
		Title:   t.Name,
		Artists: artists,
		Album: model.Album{
			ID:          t.Album.ID,
			Name:        t.Album.Name,
			Artists:     albumArtists,
			ReleaseDate: t.Album.ReleaseDate,
			Genres:      t.Album.Genres,
			Images:      images,
		},
		DurationMS:  t.DurationMS,
		Explicit:    t.Explicit,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.DiscNumber,
		ISRC:        t.ExternalIDs.ISRC,
		Available:   available,
	}
}

type apiPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       struct {
		DisplayName string `json:"display_name"`
		ID          string `json:"id"`
	} `json:"owner"`
	SnapshotID string `json:"snapshot_id"`
	Tracks     struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// Playlist fetches the playlist header without its tracks.
func (c *Client) Playlist(ctx context.Context, id string) (*model.Playlist, error) {
	query := url.Values{"fields": {"id,name,description,owner(display_name,id),snapshot_id,tracks(total)"}}
	var raw apiPlaylist
	if err := c.getJSON(ctx, "/playlists/"+id, query, &raw); err != nil {
		return nil, err
	}
	owner := raw.Owner.DisplayName
	if owner == "" {
		owner = raw.Owner.ID
	}
	return &model.Playlist{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Owner:       owner,
		SnapshotID:  raw.SnapshotID,
		TotalTracks: raw.Tracks.Total,
	}, nil
}

type apiPlaylistItem struct {
	AddedAt string    `json:"added_at"`
	Track   *apiTrack `json:"track"`
}

type apiPlaylistPage struct {
	Items []apiPlaylistItem `json:"items"`
	Total int               `json:"total"`
	Next  string            `json:"next"`
}

// PlaylistTracks streams the playlist items in order, calling yield for each
// one with its 1-based position. Null items are skipped with a warning but
// still advance the position counter.
func (c *Client) PlaylistTracks(ctx context.Context, id string, yield func(*model.PlaylistTrack) error) error {
	position := 0
	offset := 0
	for {
		query := url.Values{
			"limit":  {fmt.Sprintf("%d", pageSize)},
			"offset": {fmt.Sprintf("%d", offset)},
		}
		var page apiPlaylistPage
		if err := c.getJSON(ctx, "/playlists/"+id+"/tracks", query, &page); err != nil {
			return err
		}
		if len(page.Items) == 0 {
			return nil
		}

		for _, item := range page.Items {
			position++
			if item.Track == nil || item.Track.ID == "" {
				c.warn("playlist %s: skipping unavailable item at position %d", id, position)
				continue
			}
			track := &model.PlaylistTrack{
				Track:        item.Track.toModel(),
				Position:     position,
				AudioStatus:  model.AudioPending,
				LyricsStatus: model.LyricsPending,
			}
			if at, err := time.Parse(time.RFC3339, item.AddedAt); err == nil {
				track.AddedAt = at
			}
			if err := yield(track); err != nil {
				return err
			}
		}

		offset += len(page.Items)
		if page.Next == "" || offset >= page.Total {
			return nil
		}
	}
}

// AllPlaylistTracks fetches the header and every track in one call.
func (c *Client) AllPlaylistTracks(ctx context.Context, id string) (*model.Playlist, error) {
	playlist, err := c.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}
	err = c.PlaylistTracks(ctx, id, func(track *model.PlaylistTrack) error {
		playlist.Tracks = append(playlist.Tracks, track)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return playlist, nil
}

// Tracks batch-resolves full metadata for up to 50 ids per request.
func (c *Client) Tracks(ctx context.Context, ids []string) ([]*model.Track, error) {
	out := make([]*model.Track, 0, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		query := url.Values{"ids": {strings.Join(ids[start:end], ",")}}
		var raw struct {
			Tracks []*apiTrack `json:"tracks"`
		}
		if err := c.getJSON(ctx, "/tracks", query, &raw); err != nil {
			return nil, err
		}
		for _, t := range raw.Tracks {
			if t == nil {
				continue
			}
			track := t.toModel()
			out = append(out, &track)
		}
	}
	return out, nil
}

// CheckAccess verifies the playlist is reachable with the current credential.
func (c *Client) CheckAccess(ctx context.Context, id string) error {
	query := url.Values{"fields": {"id"}}
	var raw struct {
		ID string `json:"id"`
	}
	return c.getJSON(ctx, "/playlists/"+id, query, &raw)
}
