package proc

import (
	"errors"
	"fmt"
)

// Stream identifies one of a child process's output streams.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// Streams lists the output streams in delivery-check order.
var Streams = []Stream{Stdout, Stderr}

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// ErrLaunch is matched by every LaunchError.
var ErrLaunch = errors.New("launch failed")

// LaunchError reports that the OS could not create the process.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool { return target == ErrLaunch }

// Handle is an observable child process. Supervision code only watches a
// Handle; creating, stopping and reaping the process belongs to its owner.
type Handle interface {
	// ID returns a unique identifier for the process.
	ID() string

	// OnOutput registers fn for every chunk read from stream s. The retained
	// output history is replayed to fn first; chunks from one stream are then
	// delivered in order, one at a time. The returned func removes the
	// listener and may be called more than once.
	OnOutput(s Stream, fn func(chunk []byte)) (remove func())

	// Exited is closed once the process has terminated or failed to launch.
	Exited() <-chan struct{}

	// Closed is closed after Exited and after every output stream reached EOF.
	Closed() <-chan struct{}

	// ExitCode returns the exit code once the process has terminated.
	ExitCode() (code int, ok bool)

	// Err returns the launch or wait error, if any. Valid after Exited.
	Err() error
}
