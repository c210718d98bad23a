//go:build !windows

package cli

import (
	"os"
	"syscall"
)

// interruptSignals lists what cancels an in-flight sync. SIGTERM is included
// so systemd units and `docker stop` get the same graceful wind-down as ^C.
func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
