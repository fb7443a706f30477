package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

const readChunkSize = 32 * 1024

// Command describes a process to launch. Path is resolved through PATH when
// it contains no separator.
type Command struct {
	Path string
	Args []string
	Env  []string // nil inherits the caller's environment
	Dir  string

	// HistoryLimit bounds the bytes retained per stream for listeners that
	// attach late. Zero means DefaultHistoryLimit, negative disables replay.
	HistoryLimit int
}

func (c Command) String() string {
	s := c.Path
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Process is a native (fork/exec) child process implementing Handle.
type Process struct {
	id     string
	cmd    *exec.Cmd
	hub    *hub
	logger *slog.Logger

	mu        sync.Mutex
	startedAt time.Time
	exitCode  int
	hasExited bool
	err       error

	exited chan struct{}
	closed chan struct{}
}

// Spawn launches c and starts pumping its output. It never returns an error:
// a process that could not be created is reported through Err, with Exited
// and Closed already closed.
//
// Cancelling ctx terminates the process group.
func Spawn(ctx context.Context, c Command) *Process {
	p := &Process{
		id:       uuid.NewString(),
		hub:      newHub(c.HistoryLimit),
		exitCode: -1,
		exited:   make(chan struct{}),
		closed:   make(chan struct{}),
	}
	p.logger = slog.With("component", "proc", "process_id", p.id, "command", c.Path)

	outR, outW, err := os.Pipe()
	if err != nil {
		p.fail(c.Path, fmt.Errorf("creating stdout pipe: %w", err))
		return p
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		p.fail(c.Path, fmt.Errorf("creating stderr pipe: %w", err))
		return p
	}

	//nolint:gosec // G204: commands come from the project file or the command line.
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = c.Env
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Stdout = outW
	cmd.Stderr = errW
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return signalGroup(cmd.Process, sigTerm)
	}
	cmd.WaitDelay = 10 * time.Second
	p.cmd = cmd

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		p.fail(c.Path, err)
		return p
	}

	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()

	p.mu.Lock()
	p.startedAt = time.Now()
	p.mu.Unlock()
	p.logger.Debug("process started", "pid", cmd.Process.Pid, "args", c.Args)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go p.pump(Stdout, outR, &pumps)
	go p.pump(Stderr, errR, &pumps)

	go func() {
		waitErr := cmd.Wait()

		p.mu.Lock()
		p.hasExited = true
		if waitErr != nil {
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				p.exitCode = exitErr.ExitCode()
			} else {
				p.err = waitErr
			}
		} else {
			p.exitCode = 0
		}
		code := p.exitCode
		p.mu.Unlock()

		p.logger.Debug("process exited", "exit_code", code)
		close(p.exited)

		pumps.Wait()
		p.hub.close()
		close(p.closed)
	}()

	return p
}

func (p *Process) fail(path string, err error) {
	p.mu.Lock()
	p.err = &LaunchError{Path: path, Err: err}
	p.mu.Unlock()

	p.logger.Debug("process failed to launch", "error", err)
	p.hub.close()
	close(p.exited)
	close(p.closed)
}

func (p *Process) pump(s Stream, r io.ReadCloser, wg *sync.WaitGroup) {
	defer wg.Done()
	defer r.Close()

	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.hub.dispatch(s, chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Debug("output stream read failed", "stream", s, "error", err)
			}
			return
		}
	}
}

func (p *Process) ID() string { return p.id }

func (p *Process) OnOutput(s Stream, fn func([]byte)) func() {
	return p.hub.add(s, fn)
}

func (p *Process) Exited() <-chan struct{} { return p.exited }

func (p *Process) Closed() <-chan struct{} { return p.closed }

func (p *Process) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.hasExited
}

func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// PID returns the OS process id, or -1 if the process never started.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// StartedAt returns when the process was launched.
func (p *Process) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startedAt
}

// Stop sends SIGTERM to the process group, waits up to grace, then sends
// SIGKILL. It returns once the process has exited.
func (p *Process) Stop(ctx context.Context, grace time.Duration) error {
	select {
	case <-p.exited:
		return nil
	default:
	}

	_ = signalGroup(p.cmd.Process, sigTerm)

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.exited:
		return nil
	case <-timer.C:
		_ = signalGroup(p.cmd.Process, sigKill)
		<-p.exited
		return nil
	case <-ctx.Done():
		_ = signalGroup(p.cmd.Process, sigKill)
		<-p.exited
		return ctx.Err()
	}
}
