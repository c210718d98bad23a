package lyrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaa/playlist-mirror/internal/errkind"
)

// Request asks for the lyrics of one track. PreferredSource, when set, is
// tried before the configured order.
type Request struct {
	Artist          string
	Title           string
	Album           string
	PreferredSource string
}

// Result is a validated lyrics hit.
type Result struct {
	Plain      string
	Synced     string // raw LRC, may be empty
	Source     string
	Confidence float64
}

// Resolver queries providers in configured order until one returns lyrics
// that pass cleaning and validation.
type Resolver struct {
	Providers []Provider
	Primary   string
	Fallbacks []string
	MinLength int

	// CleanLyrics strips section markers and collapses blank lines before
	// validation; disabling it passes provider output through verbatim.
	CleanLyrics bool

	// MaxAttempts bounds how often a failing provider is retried before the
	// search moves on to the next one; values below 1 mean a single attempt.
	MaxAttempts int

	// MinConfidence rejects hits scoring below it, so a later provider gets
	// a chance at a better match. Zero accepts everything validation passes.
	MinConfidence float64

	// OnWarning receives per-provider failures that did not stop the search.
	OnWarning func(msg string)
}

func NewResolver(providers []Provider, primary string, fallbacks []string) *Resolver {
	return &Resolver{
		Providers:   providers,
		Primary:     primary,
		Fallbacks:   fallbacks,
		MinLength:   DefaultMinLength,
		CleanLyrics: true,
	}
}

func (r *Resolver) warn(format string, args ...any) {
	if r.OnWarning != nil {
		r.OnWarning(fmt.Sprintf(format, args...))
	}
}

// Search returns the first acceptable result, nil when no provider has the
// lyrics, or ErrInstrumental when a provider flags the track as such.
func (r *Resolver) Search(ctx context.Context, req Request) (*Result, error) {
	ordered := orderProviders(r.Providers, r.Primary, r.Fallbacks, req.PreferredSource)
	if len(ordered) == 0 {
		return nil, nil
	}

	var lastErr error
	for _, provider := range ordered {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		raw, err := r.searchProvider(ctx, provider, req)
		if errors.Is(err, ErrInstrumental) {
			return nil, ErrInstrumental
		}
		if err != nil {
			lastErr = err
			r.warn("lyrics provider %s: %v", provider.Name(), err)
			continue
		}
		if raw == "" {
			continue
		}

		cleaned := raw
		if r.CleanLyrics {
			cleaned = Clean(raw)
		}
		if IsInstrumental(cleaned) {
			return nil, ErrInstrumental
		}
		if !Valid(cleaned, r.MinLength) {
			r.warn("lyrics provider %s: result for %q rejected by validation", provider.Name(), req.Title)
			continue
		}

		confidence := Confidence(req.Title, raw, cleaned, r.MinLength)
		if r.MinConfidence > 0 && confidence < r.MinConfidence {
			r.warn("lyrics provider %s: result for %q below confidence floor (%.2f < %.2f)",
				provider.Name(), req.Title, confidence, r.MinConfidence)
			continue
		}

		result := &Result{
			Plain:      cleaned,
			Source:     provider.Name(),
			Confidence: confidence,
		}
		if synced, ok := provider.(SyncedProvider); ok {
			if lrc, err := synced.SearchSynced(ctx, req.Artist, req.Title); err == nil {
				result.Synced = lrc
			}
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, errkind.New(errkind.Lyrics, lastErr)
	}
	return nil, nil
}

// searchProvider queries one provider up to MaxAttempts times. Empty results
// and instrumental verdicts are final; only errors are retried.
func (r *Resolver) searchProvider(ctx context.Context, provider Provider, req Request) (string, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		raw, err := provider.SearchLyrics(ctx, req.Artist, req.Title, req.Album)
		if err == nil || errors.Is(err, ErrInstrumental) {
			return raw, err
		}
		lastErr = err
		if attempt < attempts {
			r.warn("lyrics provider %s attempt %d/%d: %v", provider.Name(), attempt, attempts, err)
		}
	}
	return "", lastErr
}
