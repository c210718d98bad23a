package downloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/jaa/playlist-mirror/internal/errkind"
)

// Validate checks a downloaded file: it must be non-empty, carry the
// expected extension and parse as an audio container. Files that are merely
// untagged still pass.
func Validate(path, format string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errkind.New(errkind.Download, fmt.Errorf("validate %s: %w", path, err))
	}
	if info.Size() == 0 {
		return errkind.New(errkind.Download, fmt.Errorf("validate %s: file is empty", path))
	}

	wantExt := AudioExt(format)
	if gotExt := strings.ToLower(filepath.Ext(path)); gotExt != wantExt {
		return errkind.New(errkind.Download, fmt.Errorf("validate %s: extension %s does not match format %s", path, gotExt, format))
	}

	f, err := os.Open(path)
	if err != nil {
		return errkind.New(errkind.Download, fmt.Errorf("validate %s: %w", path, err))
	}
	defer f.Close()

	if _, err := tag.ReadFrom(f); err != nil && !errors.Is(err, tag.ErrNoTagsFound) {
		return errkind.New(errkind.Download, fmt.Errorf("validate %s: unreadable audio container: %w", path, err))
	}
	return nil
}
