package textutil

import (
	"regexp"
	"strings"
)

var (
	whitespacePattern     = regexp.MustCompile(`\s+`)
	leadingArticlePattern = regexp.MustCompile(`^(the|a|an)\s+`)
	featSuffixPattern     = regexp.MustCompile(`(?i)\s*[(\[]?\s*\b(feat\.?|ft\.?|featuring|with)\s+[^)\]]*[)\]]?\s*$`)
	versionTagPattern     = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*\b(remix|mix|edit|remaster(ed)?|version|deluxe|mono|stereo)\b[^)\]]*[)\]]`)
)

func CollapseWhitespace(raw string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(raw, " "))
}

// NormalizeTitle lowercases, strips parenthetical version tags such as
// "(Radio Edit)" or "[2011 Remaster]" and collapses whitespace.
func NormalizeTitle(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = versionTagPattern.ReplaceAllString(lowered, "")
	lowered = leadingArticlePattern.ReplaceAllString(lowered, "")
	return CollapseWhitespace(lowered)
}

// NormalizeArtist lowercases, strips a leading article and any trailing
// featured-artist clause, then collapses whitespace.
func NormalizeArtist(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = leadingArticlePattern.ReplaceAllString(lowered, "")
	lowered = featSuffixPattern.ReplaceAllString(lowered, "")
	return CollapseWhitespace(lowered)
}

// HasFeatClause reports whether the artist string carries a featured-artist
// clause that StripFeat would remove.
func HasFeatClause(artist string) bool {
	return featSuffixPattern.MatchString(artist)
}

func StripFeat(artist string) string {
	return CollapseWhitespace(featSuffixPattern.ReplaceAllString(artist, ""))
}
