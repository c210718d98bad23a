package lyrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/textutil"
)

// Writer stores lyrics files next to the audio.
type Writer struct {
	WriteTxt          bool
	WriteLRC          bool
	MaxFilenameLength int

	now func() time.Time
}

func NewWriter(writeTxt, writeLRC bool, maxFilenameLength int) *Writer {
	return &Writer{
		WriteTxt:          writeTxt,
		WriteLRC:          writeLRC,
		MaxFilenameLength: maxFilenameLength,
		now:               time.Now,
	}
}

// FileBase builds the "<pos> - <artist> - <title>" stem shared by both
// lyric files.
func (w *Writer) FileBase(position int, artist, title string) string {
	maxLen := w.MaxFilenameLength
	if maxLen <= 0 {
		maxLen = 200
	}
	name := fmt.Sprintf("%02d - %s - %s", position, artist, title)
	return textutil.SanitizeFilename(name, maxLen)
}

// Write stores the plain and synced lyrics under dir and returns the paths
// written (empty when a format was skipped). Existing files are kept as
// timestamped backups.
func (w *Writer) Write(dir string, position int, artist, title string, result *Result) (txtPath, lrcPath string, err error) {
	if result == nil {
		return "", "", nil
	}
	base := w.FileBase(position, artist, title)

	if w.WriteTxt && result.Plain != "" {
		txtPath = filepath.Join(dir, base+".txt")
		if err := w.writeWithBackup(txtPath, result.Plain); err != nil {
			return "", "", err
		}
	}
	if w.WriteLRC && result.Synced != "" {
		lrcPath = filepath.Join(dir, base+".lrc")
		if err := w.writeWithBackup(lrcPath, result.Synced); err != nil {
			return txtPath, "", err
		}
	}
	return txtPath, lrcPath, nil
}

func (w *Writer) writeWithBackup(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		backup := fmt.Sprintf("%s.%s.bak", path, w.now().Format("20060102-150405"))
		if err := os.Rename(path, backup); err != nil {
			return errkind.New(errkind.Lyrics, fmt.Errorf("back up %s: %w", path, err))
		}
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		return errkind.New(errkind.Lyrics, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}
