package supervise

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/SmritiSatyan/garden/internal/proc"
)

// ErrNoSuccessLog is returned when WaitForLogLine is called without a success log line.
var ErrNoSuccessLog = errors.New("success log line is required")

// LogLineOptions configures WaitForLogLine.
type LogLineOptions struct {
	// SuccessLog is the literal text that marks the process as ready.
	SuccessLog string
	// ErrorLog, when not empty, is the literal text that marks failure.
	ErrorLog string
	// Timeout bounds the wait. Zero waits indefinitely.
	Timeout time.Duration
	// MatchStderr also checks the stderr text. By default both markers are
	// only looked for in stdout, whichever stream delivered the chunk.
	MatchStderr bool
}

// WaitForLogLine watches the output of h until SuccessLog appears (nil),
// ErrorLog appears (KindErrorPatternMatched) or Timeout elapses
// (KindReadinessTimeout). After every chunk on either stream the stdout text
// seen so far is checked for SuccessLog first and ErrorLog second. The
// process is never stopped, and its exit alone does not settle the wait
// unless it failed to launch (KindLaunch).
func WaitForLogLine(ctx context.Context, h proc.Handle, opts LogLineOptions) (err error) {
	if opts.SuccessLog == "" {
		return ErrNoSuccessLog
	}

	ctx, span := startSpan(ctx, "supervise.WaitForLogLine", h,
		attribute.String("supervise.success_log", opts.SuccessLog),
		attribute.String("supervise.error_log", opts.ErrorLog),
		attribute.Int64("supervise.timeout_ms", opts.Timeout.Milliseconds()),
	)
	defer func() { finish(ctx, span, "wait_for_log_line", err) }()

	s := newSettlement()
	w := &watch{opts: opts, settlement: s}
	out := NewOutput()
	w.out = out

	detach := out.AttachFunc(h, func(proc.Stream) { w.check() })
	defer detach()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-h.Exited():
			w.launchFailed(h.Err())
		case <-stop:
		}
	}()

	return race(ctx, s, opts.Timeout, func() error {
		stdout, stderr := out.Snapshot()
		return &Error{
			Kind:           KindReadinessTimeout,
			SuccessPattern: opts.SuccessLog,
			ErrorPattern:   opts.ErrorLog,
			Timeout:        opts.Timeout,
			Stdout:         stdout,
			Stderr:         stderr,
		}
	})
}

// watch is one log-pattern session. It leaves Watching exactly once.
type watch struct {
	opts       LogLineOptions
	out        *Output
	settlement *settlement

	// mu orders checks coming from the two stream goroutines.
	mu sync.Mutex
}

func (w *watch) check() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.settlement.settled() {
		return
	}

	stdout, stderr := w.out.Snapshot()
	if w.seen(stdout, stderr, w.opts.SuccessLog) {
		w.settlement.settle(nil)
		return
	}
	if w.opts.ErrorLog != "" && w.seen(stdout, stderr, w.opts.ErrorLog) {
		w.settlement.settle(&Error{
			Kind:           KindErrorPatternMatched,
			SuccessPattern: w.opts.SuccessLog,
			ErrorPattern:   w.opts.ErrorLog,
			Stdout:         stdout,
			Stderr:         stderr,
		})
	}
}

func (w *watch) seen(stdout, stderr, pattern string) bool {
	if strings.Contains(stdout, pattern) {
		return true
	}
	return w.opts.MatchStderr && strings.Contains(stderr, pattern)
}

// launchFailed settles the session when the process never started. A clean
// exit is not an outcome here.
func (w *watch) launchFailed(err error) {
	if err == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	stdout, stderr := w.out.Snapshot()
	w.settlement.settle(&Error{
		Kind:           KindLaunch,
		SuccessPattern: w.opts.SuccessLog,
		ErrorPattern:   w.opts.ErrorLog,
		Stdout:         stdout,
		Stderr:         stderr,
		Err:            err,
	})
}
