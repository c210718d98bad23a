package textutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultMaxFilenameLength = 200

var reservedDeviceNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeFilename makes raw safe to use as a single path component.
// The result is idempotent: sanitizing twice yields the same string.
func SanitizeFilename(raw string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxFilenameLength
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, raw)

	cleaned = CollapseWhitespace(cleaned)
	cleaned = strings.Trim(cleaned, ". ")

	if cleaned == "" {
		return "untitled"
	}

	base := cleaned
	if idx := strings.LastIndex(cleaned, "."); idx > 0 {
		base = cleaned[:idx]
	}
	if _, reserved := reservedDeviceNames[strings.ToUpper(base)]; reserved {
		cleaned = "_" + cleaned
	}

	return truncatePreservingExt(cleaned, maxLength)
}

// SafePathComponent applies only the rules that keep raw inside its
// directory: path separators and control characters are removed, dot-only
// names are rejected and the length cap still holds. The cosmetic rules
// (forbidden punctuation, reserved device names, whitespace collapsing)
// are left to SanitizeFilename.
func SafePathComponent(raw string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxFilenameLength
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, raw)
	if strings.Trim(cleaned, ". ") == "" {
		return "untitled"
	}
	return truncatePreservingExt(cleaned, maxLength)
}

// SanitizeDirName applies filename rules plus directory-specific ones:
// no leading dot and no ".." sequences anywhere.
func SanitizeDirName(raw string, maxLength int) string {
	cleaned := SanitizeFilename(raw, maxLength)
	for strings.Contains(cleaned, "..") {
		cleaned = strings.ReplaceAll(cleaned, "..", ".")
	}
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

func truncatePreservingExt(name string, maxLength int) string {
	if len(name) <= maxLength {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= maxLength || len(ext) > 10 {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	keep := maxLength - len(ext)
	if keep < 1 {
		keep = 1
	}
	base = strings.TrimRight(base[:keep], ". ")
	if base == "" {
		base = "_"
	}
	return base + ext
}

var statPath = os.Stat

// UniquePath returns path if it is free, otherwise the first of
// path_1, path_2, ... that does not exist yet. The numeric suffix is
// inserted before the extension. After 100 collisions a unix timestamp
// suffix is used as last resort.
func UniquePath(path string) string {
	if _, err := statPath(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; i <= 100; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := statPath(candidate); err != nil {
			return candidate
		}
	}
	return fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext)
}
