package lyrics

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// DefaultMinLength is the shortest plain-text result accepted.
	DefaultMinLength = 50

	alnumFractionFloor = 0.70
)

var (
	sectionMarkerPattern = regexp.MustCompile(`(?mi)^\s*\[[^\]\n]*(verse|chorus|bridge|intro|outro|hook|refrain|pre-chorus|interlude|instrumental break)[^\]\n]*\]\s*$`)
	blankRunPattern      = regexp.MustCompile(`\n{3,}`)
)

var instrumentalPhrases = []string{
	"instrumental",
	"no lyrics",
	"music only",
	"lyrics not available",
}

// Clean strips section markers such as "[Chorus]" and collapses runs of
// blank lines.
func Clean(text string) string {
	cleaned := sectionMarkerPattern.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, "\r\n", "\n")
	cleaned = blankRunPattern.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// IsInstrumental reports whether text is an instrumental placeholder rather
// than real lyrics.
func IsInstrumental(text string) bool {
	lowered := strings.ToLower(text)
	if len(lowered) > 200 {
		// real lyrics may legitimately mention these words
		return false
	}
	for _, phrase := range instrumentalPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// Valid applies the acceptance checks to cleaned text.
func Valid(text string, minLength int) bool {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if len(text) < minLength {
		return false
	}
	if IsInstrumental(text) {
		return false
	}
	return alnumFraction(text) >= alnumFractionFloor
}

func alnumFraction(text string) float64 {
	if text == "" {
		return 0
	}
	total := 0
	good := 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			good++
		}
	}
	return float64(good) / float64(total)
}
