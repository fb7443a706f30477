package supervise

import (
	"strings"
	"sync"

	"github.com/SmritiSatyan/garden/internal/proc"
)

// Output accumulates everything a process writes to stdout and stderr.
// Buffers only grow; a new Output starts a new session. There is no size
// bound, so do not attach one to a process that writes forever.
type Output struct {
	mu     sync.RWMutex
	stdout strings.Builder
	stderr strings.Builder
}

// NewOutput returns an empty accumulator.
func NewOutput() *Output {
	return &Output{}
}

// Attach subscribes o to both streams of h and returns a func that detaches
// it again.
func (o *Output) Attach(h proc.Handle) (detach func()) {
	return o.AttachFunc(h, nil)
}

// AttachFunc is Attach with an observer called after each chunk has been
// appended. The observer runs on the stream's delivery goroutine.
func (o *Output) AttachFunc(h proc.Handle, observe func(s proc.Stream)) (detach func()) {
	removes := make([]func(), 0, len(proc.Streams))
	for _, s := range proc.Streams {
		removes = append(removes, h.OnOutput(s, func(chunk []byte) {
			o.append(s, chunk)
			if observe != nil {
				observe(s)
			}
		}))
	}
	return func() {
		for _, remove := range removes {
			remove()
		}
	}
}

func (o *Output) append(s proc.Stream, chunk []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch s {
	case proc.Stdout:
		o.stdout.Write(chunk)
	case proc.Stderr:
		o.stderr.Write(chunk)
	}
}

// Stdout returns the stdout text seen so far.
func (o *Output) Stdout() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stdout.String()
}

// Stderr returns the stderr text seen so far.
func (o *Output) Stderr() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stderr.String()
}

// Snapshot returns both buffers read under one lock.
func (o *Output) Snapshot() (stdout, stderr string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stdout.String(), o.stderr.String()
}
