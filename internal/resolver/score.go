package resolver

import (
	"regexp"
	"strings"

	"github.com/jaa/playlist-mirror/internal/textutil"
	"github.com/jaa/playlist-mirror/internal/ytmusic"
)

const (
	titleWeight    = 40.0
	artistWeight   = 30.0
	durationWeight = 20.0
	bonusLimit     = 10.0

	// Below this artist similarity a featured-artist credit may stand in for
	// the channel name.
	featFallbackPivot = 0.8

	defaultDurationTolerance = 15 // seconds
)

// Options mirror the matching knobs from the config file.
type Options struct {
	PreferOfficial    bool
	ExcludeLive       bool
	ExcludeCovers     bool
	DurationTolerance int // seconds, 0 = default
	MaxResults        int // per-query search limit, 0 = default
	ScoreThreshold    int // strict-phase acceptance floor, 0 = default
}

func (o Options) tolerance() float64 {
	if o.DurationTolerance > 0 {
		return float64(o.DurationTolerance)
	}
	return defaultDurationTolerance
}

func (o Options) searchLimit() int {
	if o.MaxResults > 0 {
		return o.MaxResults
	}
	return defaultSearchLimit
}

func (o Options) strict() float64 {
	if o.ScoreThreshold > 0 {
		return float64(o.ScoreThreshold)
	}
	return strictThreshold
}

// permissive keeps the cascade's gap below the strict floor so raising
// score_threshold tightens both phases.
func (o Options) permissive() float64 {
	return o.strict() - (strictThreshold - permissiveThreshold)
}

// score rates a candidate against the request on a 0..110 scale.
func score(req Request, cand ytmusic.Candidate, opts Options) float64 {
	normTitle := textutil.NormalizeTitle(req.Title)
	normArtist := textutil.NormalizeArtist(req.Artist)

	titleScore := titleWeight * textutil.Similarity(normTitle, textutil.NormalizeTitle(cand.Title))
	artistScore := artistWeight * artistSimilarity(normArtist, cand)
	durationScore := durationScore(req.DurationS, cand.DurationS, opts.tolerance())
	return titleScore + artistScore + durationScore + qualityBonus(cand, opts)
}

func artistSimilarity(normArtist string, cand ytmusic.Candidate) float64 {
	sim := textutil.Similarity(normArtist, textutil.NormalizeArtist(cand.Artist))
	if sim >= featFallbackPivot {
		return sim
	}
	for _, name := range featuredNames(cand) {
		if s := textutil.Similarity(normArtist, textutil.NormalizeArtist(name)); s > sim {
			sim = s
		}
	}
	return sim
}

var featClausePattern = regexp.MustCompile(`(?i)[(\[]?\b(?:feat\.?|ft\.?|featuring|with)\s+([^)\]]+)[)\]]?`)

// featuredNames pulls featured-artist credits out of the candidate title and
// artist strings.
func featuredNames(cand ytmusic.Candidate) []string {
	var names []string
	for _, source := range []string{cand.Title, cand.Artist} {
		for _, m := range featClausePattern.FindAllStringSubmatch(source, -1) {
			for _, part := range strings.FieldsFunc(m[1], func(r rune) bool {
				return r == ',' || r == '&'
			}) {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					names = append(names, trimmed)
				}
			}
		}
	}
	return names
}

func durationScore(targetS, candS int, tau float64) float64 {
	if targetS <= 0 {
		return durationWeight / 2
	}
	if candS <= 0 {
		return 0
	}
	delta := float64(targetS - candS)
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= tau:
		return durationWeight
	case delta <= 3*tau:
		return durationWeight * (1 - (delta-tau)/(2*tau))
	default:
		return 0
	}
}

func qualityBonus(cand ytmusic.Candidate, opts Options) float64 {
	bonus := 0.0
	if cand.Official {
		bonus += 5
	}
	if cand.VerifiedArtist {
		bonus += 2
	}
	if cand.MusicVideo && opts.PreferOfficial {
		bonus -= 1
	}
	if cand.Live && opts.ExcludeLive {
		bonus -= 8
	}
	if cand.Cover && opts.ExcludeCovers {
		bonus -= 6
	}
	if cand.Karaoke {
		bonus -= 10
	}
	if cand.Remix {
		bonus -= 3
	}
	if bonus > bonusLimit {
		return bonusLimit
	}
	if bonus < -bonusLimit {
		return -bonusLimit
	}
	return bonus
}
