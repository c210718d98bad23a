package lyrics

import (
	"strings"

	"github.com/jaa/playlist-mirror/internal/textutil"
)

// Confidence rates how likely the text really is the lyrics for title.
// Weighted sum: 0.6 title-word overlap, 0.2 comfortable length, 0.1 visible
// song structure, minus 0.3 when the text is under the minimum length.
func Confidence(title, rawText, cleanedText string, minLength int) float64 {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	score := 0.6 * titleWordOverlap(title, cleanedText)
	if len(cleanedText) >= 2*minLength {
		score += 0.2
	}
	if sectionMarkerPattern.MatchString(rawText) {
		score += 0.1
	}
	if len(cleanedText) < minLength {
		score -= 0.3
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// titleWordOverlap is the fraction of title words that occur in the text.
func titleWordOverlap(title, text string) float64 {
	words := strings.Fields(textutil.NormalizeTitle(title))
	if len(words) == 0 {
		return 0
	}
	lowered := strings.ToLower(text)
	hits := 0
	for _, w := range words {
		if strings.Contains(lowered, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}
