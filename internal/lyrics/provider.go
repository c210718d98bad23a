package lyrics

import (
	"context"
	"strings"
)

// Provider is one lyrics source. Providers apply their own rate limiting and
// report themselves unavailable when required credentials are missing.
type Provider interface {
	Name() string
	Available() bool
	SearchLyrics(ctx context.Context, artist, title, album string) (string, error)
}

// SyncedProvider additionally serves LRC documents.
type SyncedProvider interface {
	Provider
	SearchSynced(ctx context.Context, artist, title string) (string, error)
}

// orderProviders returns the effective provider order: the override (when
// set) first, then the configured primary and fallbacks, deduplicated and
// filtered to available providers.
func orderProviders(providers []Provider, primary string, fallbacks []string, override string) []Provider {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[strings.ToLower(p.Name())] = p
	}

	names := make([]string, 0, len(fallbacks)+2)
	if override != "" {
		names = append(names, override)
	}
	names = append(names, primary)
	names = append(names, fallbacks...)

	seen := map[string]struct{}{}
	var out []Provider
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if p, ok := byName[key]; ok && p.Available() {
			out = append(out, p)
		}
	}
	return out
}
