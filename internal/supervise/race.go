package supervise

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// liveTimers counts deadline timers that have not been stopped yet.
var liveTimers atomic.Int64

// settlement holds the single outcome of a session. The first settle wins;
// later calls are ignored.
type settlement struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newSettlement() *settlement {
	return &settlement{done: make(chan struct{})}
}

func (s *settlement) settle(err error) bool {
	won := false
	s.once.Do(func() {
		s.err = err
		won = true
		close(s.done)
	})
	return won
}

func (s *settlement) settled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// race waits for s to settle, for timeout to elapse (when positive), or for
// ctx to end, whichever happens first. onTimeout builds the timeout outcome
// at the moment the deadline fires. The timer is stopped before race returns.
func race(ctx context.Context, s *settlement, timeout time.Duration, onTimeout func() error) error {
	// An outcome already reached beats a context that is also done.
	if s.settled() {
		return s.err
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		liveTimers.Add(1)
		defer func() {
			timer.Stop()
			liveTimers.Add(-1)
		}()
		deadline = timer.C
	}

	select {
	case <-s.done:
	case <-deadline:
		s.settle(onTimeout())
	case <-ctx.Done():
		s.settle(canceled(ctx))
	}
	<-s.done
	return s.err
}

func canceled(ctx context.Context) error {
	return &Error{Kind: KindCanceled, Err: context.Cause(ctx)}
}
