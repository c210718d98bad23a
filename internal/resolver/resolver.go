package resolver

import (
	"context"
	"sort"
	"time"

	"github.com/jaa/playlist-mirror/internal/httpx"
	"github.com/jaa/playlist-mirror/internal/ytmusic"
)

const (
	strictThreshold     = 65.0
	permissiveThreshold = 45.0
	earlyExitScore      = 85.0
	earlyExitCount      = 3

	defaultSearchLimit = 10
	searchInterval     = time.Second
)

// Searcher is the secondary-catalog search surface the resolver needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]ytmusic.Candidate, error)
}

// Match is the chosen candidate with its score.
type Match struct {
	Candidate ytmusic.Candidate
	Score     float64
}

// Resolver locates the best downloadable candidate for a track. It runs a
// strict phase first and falls back to a permissive phase with broader
// queries and a lower bar.
type Resolver struct {
	search   Searcher
	opts     Options
	throttle *httpx.Throttle
}

func New(search Searcher, opts Options) *Resolver {
	return &Resolver{
		search:   search,
		opts:     opts,
		throttle: httpx.NewThrottle(searchInterval),
	}
}

// Resolve returns the best match or nil when nothing clears the thresholds.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Match, error) {
	matches, err := r.phase(ctx, req, false, r.opts.strict())
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		matches, err = r.phase(ctx, req, true, r.opts.permissive())
		if err != nil {
			return nil, err
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	best := matches[0]
	return &best, nil
}

func (r *Resolver) phase(ctx context.Context, req Request, permissive bool, threshold float64) ([]Match, error) {
	seen := map[string]struct{}{}
	var kept []Match
	strong := 0

	for _, query := range buildQueries(req, permissive) {
		if err := r.throttle.Wait(ctx); err != nil {
			return nil, err
		}
		candidates, err := r.search.Search(ctx, query, r.opts.searchLimit())
		if err != nil {
			return nil, err
		}

		for _, cand := range candidates {
			if _, dup := seen[cand.ID]; dup {
				continue
			}
			seen[cand.ID] = struct{}{}

			total := score(req, cand, r.opts)
			if total < threshold {
				continue
			}
			kept = append(kept, Match{Candidate: cand, Score: total})
			if total >= earlyExitScore {
				strong++
			}
		}

		if !permissive && strong >= earlyExitCount {
			break
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	return kept, nil
}
