package supervise

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/SmritiSatyan/garden/internal/proc"
)

// WaitForProcess waits until h has exited and its output is drained, then
// judges it by exit code. Exit code 0 returns nil. Any other code returns a
// KindNonZeroExit error whose message combines errorPrefix, the captured
// stderr (stdout if stderr is empty) and the code. A launch or wait error
// reported by h is returned as KindLaunch without looking at the exit code.
//
// A process that terminated before the call is judged immediately.
func WaitForProcess(ctx context.Context, h proc.Handle, errorPrefix string) error {
	return WaitForProcessTimeout(ctx, h, errorPrefix, 0)
}

// WaitForProcessTimeout is WaitForProcess bounded by timeout (zero waits
// indefinitely). On timeout it returns KindReadinessTimeout with the output
// seen so far; the process is left running.
func WaitForProcessTimeout(ctx context.Context, h proc.Handle, errorPrefix string, timeout time.Duration) (err error) {
	ctx, span := startSpan(ctx, "supervise.WaitForProcess", h,
		attribute.String("supervise.error_prefix", errorPrefix),
		attribute.Int64("supervise.timeout_ms", timeout.Milliseconds()),
	)
	defer func() { finish(ctx, span, "wait_for_process", err) }()

	out := NewOutput()
	detach := out.Attach(h)
	defer detach()

	s := newSettlement()
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-h.Closed():
			s.settle(judgeExit(h, out, errorPrefix))
		case <-stop:
		}
	}()

	return race(ctx, s, timeout, func() error {
		stdout, stderr := out.Snapshot()
		return &Error{
			Kind:    KindReadinessTimeout,
			Prefix:  errorPrefix,
			Timeout: timeout,
			Stdout:  stdout,
			Stderr:  stderr,
		}
	})
}

func judgeExit(h proc.Handle, out *Output, errorPrefix string) error {
	stdout, stderr := out.Snapshot()

	if err := h.Err(); err != nil {
		return &Error{
			Kind:   KindLaunch,
			Prefix: errorPrefix,
			Stdout: stdout,
			Stderr: stderr,
			Err:    err,
		}
	}

	code, ok := h.ExitCode()
	if ok && code == 0 {
		return nil
	}
	if !ok {
		return &Error{
			Kind:   KindLaunch,
			Prefix: errorPrefix,
			Stdout: stdout,
			Stderr: stderr,
			Err:    errors.New("process closed without an exit code"),
		}
	}

	return &Error{
		Kind:     KindNonZeroExit,
		Prefix:   errorPrefix,
		ExitCode: code,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}
