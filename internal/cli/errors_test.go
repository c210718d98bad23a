package cli

import (
	"errors"
	"testing"

	"github.com/jaa/playlist-mirror/internal/exitcode"
)

func TestMapExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitcode.Success},
		{name: "coded", err: &ExitError{Code: exitcode.Interrupted, Err: errors.New("interrupted")}, want: exitcode.Interrupted},
		{name: "unknown command", err: errors.New("unknown command \"x\" for \"plmr\""), want: exitcode.InvalidUsage},
		{name: "wrong arg count", err: errors.New("accepts 1 arg(s), received 0"), want: exitcode.InvalidUsage},
		{name: "generic", err: errors.New("boom"), want: exitcode.RuntimeFailure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapExitCode(tc.err); got != tc.want {
				t.Fatalf("mapExitCode() = %d, want %d", got, tc.want)
			}
		})
	}
}
