package supervise

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the failure outcomes of a supervision session.
type Kind int

const (
	// KindLaunch: the process could not be created or waited on.
	KindLaunch Kind = iota + 1
	// KindNonZeroExit: the process exited with a non-zero code.
	KindNonZeroExit
	// KindErrorPatternMatched: the error log line appeared in the output.
	KindErrorPatternMatched
	// KindReadinessTimeout: neither log line appeared before the deadline.
	KindReadinessTimeout
	// KindCanceled: the caller's context ended before an outcome.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindLaunch:
		return "launch"
	case KindNonZeroExit:
		return "non-zero-exit"
	case KindErrorPatternMatched:
		return "error-pattern-matched"
	case KindReadinessTimeout:
		return "readiness-timeout"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrLaunch              = errors.New("process launch failed")
	ErrNonZeroExit         = errors.New("process exited with non-zero code")
	ErrErrorPatternMatched = errors.New("error log line detected")
	ErrReadinessTimeout    = errors.New("timed out waiting for log line")
	ErrCanceled            = errors.New("supervision canceled")
)

var kindSentinels = map[Kind]error{
	KindLaunch:              ErrLaunch,
	KindNonZeroExit:         ErrNonZeroExit,
	KindErrorPatternMatched: ErrErrorPatternMatched,
	KindReadinessTimeout:    ErrReadinessTimeout,
	KindCanceled:            ErrCanceled,
}

// Error is the failure outcome of a supervision session. Which fields are
// set depends on Kind; Stdout and Stderr always hold the output seen so far.
type Error struct {
	Kind Kind

	// Prefix is the caller's description of the command (NonZeroExit).
	Prefix   string
	ExitCode int

	SuccessPattern string
	ErrorPattern   string
	Timeout        time.Duration

	Stdout string
	Stderr string

	// Err is the underlying cause (Launch, Canceled).
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNonZeroExit:
		return fmt.Sprintf("%s:\n%s\n\nExit code: %d", e.Prefix, e.Diagnostic(), e.ExitCode)
	case KindErrorPatternMatched:
		return fmt.Sprintf("Error log line %q detected in output", e.ErrorPattern) + e.captured()
	case KindReadinessTimeout:
		if e.SuccessPattern == "" {
			return fmt.Sprintf("%s: timed out after %s waiting for the process to exit\n%s",
				e.Prefix, e.Timeout, e.Diagnostic())
		}
		return fmt.Sprintf("Timed out after waiting for success log line %q or error log line %q",
			e.SuccessPattern, e.ErrorPattern) + e.captured()
	case KindLaunch:
		if e.Prefix != "" {
			return fmt.Sprintf("%s: %v", e.Prefix, e.Err)
		}
		return e.Err.Error()
	case KindCanceled:
		return fmt.Sprintf("supervision canceled: %v", e.Err)
	default:
		return fmt.Sprintf("supervision failed (%s)", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Diagnostic returns the captured stderr, or stdout when stderr is empty.
// Some tools print user-relevant errors only to stdout.
func (e *Error) Diagnostic() string {
	if len(e.Stderr) > 0 {
		return e.Stderr
	}
	return e.Stdout
}

// captured renders both output streams under a header each, skipping empty
// ones. It returns "" when nothing was captured.
func (e *Error) captured() string {
	var b strings.Builder
	for _, s := range []struct{ name, text string }{
		{"stdout", e.Stdout},
		{"stderr", e.Stderr},
	} {
		if s.text == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s:\n%s", s.name, strings.TrimRight(s.text, "\n"))
	}
	return b.String()
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
