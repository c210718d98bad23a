package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenURL = "https://accounts.spotify.com/api/token"

var ErrNotAuthenticated = errors.New("not authenticated, run `plmr login`")

// TokenSource returns an oauth2 source using the client-credentials grant.
// Tokens refresh automatically when they expire.
func TokenSource(ctx context.Context, creds Credentials, httpClient *http.Client) oauth2.TokenSource {
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
	}
	return cfg.TokenSource(ctx)
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
	ClientID    string    `json:"client_id"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

// TokenCache persists the most recent access token so `plmr status` can
// report authentication state without a network round trip.
type TokenCache struct {
	Path string
}

func (c TokenCache) Save(clientID string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
		return fmt.Errorf("create token cache dir: %w", err)
	}
	data, err := json.MarshalIndent(cachedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
		ClientID:    clientID,
		ObtainedAt:  time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Path, data, 0o600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

func (c TokenCache) Load() (*oauth2.Token, string, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotAuthenticated
		}
		return nil, "", fmt.Errorf("read token cache: %w", err)
	}
	var cached cachedToken
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, "", fmt.Errorf("parse token cache: %w", err)
	}
	if cached.AccessToken == "" {
		return nil, "", ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken: cached.AccessToken,
		TokenType:   cached.TokenType,
		Expiry:      cached.Expiry,
	}, cached.ClientID, nil
}

func (c TokenCache) Clear() error {
	err := os.Remove(c.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token cache: %w", err)
	}
	return nil
}

type Status struct {
	Authenticated bool
	ClientID      string
	Expiry        time.Time
	Expired       bool
}

func (c TokenCache) Status() Status {
	tok, clientID, err := c.Load()
	if err != nil {
		return Status{}
	}
	return Status{
		Authenticated: true,
		ClientID:      clientID,
		Expiry:        tok.Expiry,
		Expired:       !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now()),
	}
}

// Login verifies the credentials by requesting a token and caches it.
func Login(ctx context.Context, creds Credentials, cache TokenCache, httpClient *http.Client) (Status, error) {
	tok, err := TokenSource(ctx, creds, httpClient).Token()
	if err != nil {
		return Status{}, fmt.Errorf("spotify token request: %w", err)
	}
	if err := cache.Save(creds.ClientID, tok); err != nil {
		return Status{}, err
	}
	return cache.Status(), nil
}
