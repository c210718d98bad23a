package resolver

import (
	"strings"

	"github.com/jaa/playlist-mirror/internal/textutil"
)

// Request identifies the track to locate on the secondary catalog.
type Request struct {
	Artist    string
	Title     string
	Album     string
	DurationS int // 0 when unknown
}

// buildQueries produces the search queries for one phase, deduplicated and in
// priority order. The permissive phase appends broader variants.
func buildQueries(req Request, permissive bool) []string {
	normArtist := textutil.NormalizeArtist(req.Artist)
	normTitle := textutil.NormalizeTitle(req.Title)

	queries := []string{
		strings.TrimSpace(normArtist + " " + normTitle),
		strings.TrimSpace(req.Artist + " " + req.Title),
		normTitle,
		strings.TrimSpace(req.Title),
	}
	if textutil.HasFeatClause(req.Artist) {
		stripped := textutil.NormalizeArtist(textutil.StripFeat(req.Artist))
		queries = append(queries, strings.TrimSpace(stripped+" "+normTitle))
	}
	if permissive {
		queries = append(queries, strings.TrimSpace(req.Artist+req.Title))
		if len(strings.Fields(req.Title)) > 1 {
			queries = append(queries, strings.TrimSpace(req.Artist+` "`+req.Title+`"`))
		}
	}

	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
