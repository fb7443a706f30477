package proc

import (
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory Handle driven by the test or caller that owns it.
type Fake struct {
	id  string
	hub *hub

	mu        sync.Mutex
	exitCode  int
	hasExited bool
	err       error
	exitOnce  sync.Once
	closeOnce sync.Once

	exited chan struct{}
	closed chan struct{}
}

// NewFake returns a running Fake with both streams open.
func NewFake() *Fake {
	return &Fake{
		id:       uuid.NewString(),
		hub:      newHub(0),
		exitCode: -1,
		exited:   make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// Write delivers data on stream s as one chunk.
func (f *Fake) Write(s Stream, data string) {
	f.hub.dispatch(s, []byte(data))
}

// Exit records code and closes both the exit and close notifications.
func (f *Fake) Exit(code int) {
	f.ExitOnly(code)
	f.CloseStreams()
}

// ExitOnly records code without closing the output streams.
func (f *Fake) ExitOnly(code int) {
	f.exitOnce.Do(func() {
		f.mu.Lock()
		f.exitCode = code
		f.hasExited = true
		f.mu.Unlock()
		close(f.exited)
	})
}

// CloseStreams marks every output stream as drained.
func (f *Fake) CloseStreams() {
	f.closeOnce.Do(func() {
		f.hub.close()
		close(f.closed)
	})
}

// Fail simulates a launch or wait error.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.exitOnce.Do(func() { close(f.exited) })
	f.CloseStreams()
}

// Listeners returns how many output listeners are registered.
func (f *Fake) Listeners() int {
	return f.hub.listenerCount()
}

func (f *Fake) ID() string { return f.id }

func (f *Fake) OnOutput(s Stream, fn func([]byte)) func() {
	return f.hub.add(s, fn)
}

func (f *Fake) Exited() <-chan struct{} { return f.exited }

func (f *Fake) Closed() <-chan struct{} { return f.closed }

func (f *Fake) ExitCode() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exitCode, f.hasExited
}

func (f *Fake) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
