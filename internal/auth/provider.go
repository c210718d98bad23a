package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Provider hands out bearer tokens and supports forced refresh after the API
// rejects one. Fresh tokens are mirrored into the cache for `plmr status`.
type Provider struct {
	creds      Credentials
	cache      TokenCache
	httpClient *http.Client

	mu      sync.Mutex
	current *oauth2.Token
}

func NewProvider(creds Credentials, cache TokenCache, httpClient *http.Client) *Provider {
	return &Provider{creds: creds, cache: cache, httpClient: httpClient}
}

func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.Valid() {
		return p.current.AccessToken, nil
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	cfg := &clientcredentials.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		TokenURL:     tokenURL,
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("spotify token request: %w", err)
	}
	p.current = tok
	if p.cache.Path != "" {
		_ = p.cache.Save(p.creds.ClientID, tok)
	}
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next Token call fetches a new one.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}
