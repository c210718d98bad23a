package execx

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestSubprocessRunnerCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer

	runner := NewSubprocessRunner(&stdout, &stderr)
	result := runner.Run(context.Background(), Spec{
		Bin:  "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
		Dir:  ".",
	})

	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", result.ExitCode, stderr.String())
	}
	if strings.TrimSpace(stdout.String()) != "out" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if strings.TrimSpace(result.StderrTail) != "err" {
		t.Fatalf("stderr tail = %q", result.StderrTail)
	}
}

func TestSubprocessRunnerPassesStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	runner := NewSubprocessRunner(nil, nil)
	result := runner.Run(context.Background(), Spec{
		Bin:   "sh",
		Args:  []string{"-c", "read line; echo \"$line\""},
		Stdin: strings.NewReader("hello-from-stdin\n"),
		Dir:   ".",
	})

	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	if got := strings.TrimSpace(result.StdoutTail); got != "hello-from-stdin" {
		t.Fatalf("expected stdin passthrough output, got %q", got)
	}
}

func TestSubprocessRunnerPropagatesExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	runner := NewSubprocessRunner(nil, nil)
	result := runner.Run(context.Background(), Spec{
		Bin:  "sh",
		Args: []string{"-c", "exit 7"},
	})

	if result.ExitCode != 7 {
		t.Fatalf("expected exit code 7, got %d", result.ExitCode)
	}
}

func TestSubprocessRunnerTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	runner := NewSubprocessRunner(nil, nil)
	start := time.Now()
	result := runner.Run(context.Background(), Spec{
		Bin:     "sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	})

	if !result.TimedOut {
		t.Fatal("expected TimedOut to be set")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout did not terminate the process promptly")
	}
}

func TestSubprocessRunnerMissingBinary(t *testing.T) {
	runner := NewSubprocessRunner(nil, nil)
	result := runner.Run(context.Background(), Spec{Bin: "plmr-no-such-binary-xyz"})
	if result.ExitCode != 127 {
		t.Fatalf("expected exit code 127 for missing binary, got %d", result.ExitCode)
	}
}

func TestTailBufferKeepsTail(t *testing.T) {
	tail := newTailBuffer(8)
	tail.Write([]byte("abcdef"))
	tail.Write([]byte("ghij"))
	if got := tail.String(); got != "cdefghij" {
		t.Fatalf("tail = %q", got)
	}
	tail.Write([]byte("0123456789abcdef"))
	if got := tail.String(); got != "89abcdef" {
		t.Fatalf("tail after oversize write = %q", got)
	}
}
