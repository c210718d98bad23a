package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const logsDirName = "logs"

// openRunLog creates the per-run log file under <playlistDir>/logs. Failing
// to open it degrades to a no-op logger; a sync must not die on logging.
func openRunLog(dir string, now time.Time) (zerolog.Logger, func()) {
	logsDir := filepath.Join(dir, logsDirName)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return zerolog.Nop(), func() {}
	}
	path := filepath.Join(logsDir, fmt.Sprintf("sync-%s.log", now.Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), func() {}
	}
	logger := zerolog.New(f).With().Timestamp().Logger()
	return logger, func() { _ = f.Close() }
}
