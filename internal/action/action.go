// Package action runs project actions under supervision.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/SmritiSatyan/garden/internal/config"
	"github.com/SmritiSatyan/garden/internal/events"
	"github.com/SmritiSatyan/garden/internal/log"
	"github.com/SmritiSatyan/garden/internal/proc"
	"github.com/SmritiSatyan/garden/internal/supervise"
)

// StatusEvent is emitted whenever an action changes state.
const StatusEvent = "actionStatus"

// State is the lifecycle state of an action run.
type State string

const (
	StateRunning   State = "running"
	StateReady     State = "ready"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the payload of a StatusEvent.
type Status struct {
	Action    string    `json:"action"`
	Kind      string    `json:"kind"`
	State     State     `json:"state"`
	ProcessID string    `json:"processId,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	defaultStopGrace = 10 * time.Second
	defaultTail      = 20
)

// Runner starts actions and decides when each has completed.
type Runner struct {
	project   *config.Project
	events    events.Emitter
	logger    *slog.Logger
	stopGrace time.Duration
	tail      int
}

// Option configures a Runner.
type Option func(*Runner)

// WithEvents sets where log lines and status events go.
func WithEvents(e events.Emitter) Option {
	return func(r *Runner) { r.events = e }
}

// WithStopGrace sets how long a failed long-running action gets between
// SIGTERM and SIGKILL.
func WithStopGrace(d time.Duration) Option {
	return func(r *Runner) { r.stopGrace = d }
}

// WithTail sets how many of the most recent log lines a failed run keeps in
// Result.Recent. Zero or less keeps none.
func WithTail(n int) Option {
	return func(r *Runner) { r.tail = n }
}

// NewRunner returns a Runner for actions of project.
func NewRunner(project *config.Project, opts ...Option) *Runner {
	r := &Runner{
		project:   project,
		events:    events.Discard,
		logger:    slog.With("component", "action"),
		stopGrace: defaultStopGrace,
		tail:      defaultTail,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result describes a completed action run.
type Result struct {
	Action  string
	Process *proc.Process
	// Ready is set for readiness actions: the process is still running and
	// belongs to the caller, who must stop it.
	Ready    bool
	Duration time.Duration
	// Recent holds the last log lines of a failed run, oldest first.
	Recent []supervise.LogLine
}

// Run starts a and waits for it to complete. An action with a readiness
// block completes when its success log line appears; the process keeps
// running. Any other action completes when the process exits, judged by
// exit code. On failure the process is stopped.
func (r *Runner) Run(ctx context.Context, a *config.Action) (*Result, error) {
	argv, err := a.Argv()
	if err != nil {
		return nil, err
	}

	logger := r.logger.With("action", a.Name, "kind", a.Kind)
	start := time.Now()

	p := proc.Spawn(ctx, proc.Command{
		Path: argv[0],
		Args: argv[1:],
		Env:  environ(a.Env),
		Dir:  r.project.ActionDir(a),
	})
	logger = logger.With("process_id", p.ID())

	out, recent := r.runEvents()
	supervise.StreamLogs(p, a.LogOrigin(), out, supervise.WithLevel(log.Level(a.LogLevel)))
	r.emit(a, StateRunning, p, nil)

	if rd := a.Readiness; rd != nil {
		err = supervise.WaitForLogLine(ctx, p, supervise.LogLineOptions{
			SuccessLog:  rd.SuccessLog,
			ErrorLog:    rd.ErrorLog,
			Timeout:     rd.Timeout.Duration,
			MatchStderr: rd.MatchStderr,
		})
	} else {
		err = supervise.WaitForProcessTimeout(ctx, p, fmt.Sprintf("%s action %s failed", a.Kind, a.Name), a.Timeout.Duration)
	}

	res := &Result{Action: a.Name, Process: p, Duration: time.Since(start)}
	if err != nil {
		r.stop(ctx, logger, p)
		res.Recent = recentLines(recent, r.tail)
		r.emit(a, StateFailed, p, err)
		logger.Debug("action failed", "outcome", supervise.KindOf(err).String(), "elapsed", res.Duration.Round(time.Millisecond))
		return res, err
	}

	if a.Readiness != nil {
		res.Ready = true
		r.emit(a, StateReady, p, nil)
		logger.Info("action ready", "pid", p.PID(), "elapsed", res.Duration.Round(time.Millisecond))
		return res, nil
	}

	r.emit(a, StateSucceeded, p, nil)
	logger.Info("action completed", "elapsed", res.Duration.Round(time.Millisecond))
	return res, nil
}

// RunNamed looks up the action called name and runs it.
func (r *Runner) RunNamed(ctx context.Context, name string) (*Result, error) {
	a, err := r.project.Action(name)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, a)
}

// runEvents returns the emitter one run streams its output to. It forwards
// everything to the runner's events and keeps the run's latest log lines.
func (r *Runner) runEvents() (events.Emitter, *events.History) {
	if r.tail <= 0 {
		return r.events, nil
	}
	bus := events.NewBus()
	recent := events.NewHistory(r.tail)
	bus.On(supervise.LogEvent, recent.Handle)
	bus.On("*", func(ev events.Event) { r.events.Emit(ev.Name, ev.Payload) })
	return bus, recent
}

func recentLines(h *events.History, n int) []supervise.LogLine {
	if h == nil {
		return nil
	}
	var lines []supervise.LogLine
	for _, ev := range h.Last(n) {
		if l, ok := ev.Payload.(supervise.LogLine); ok {
			lines = append(lines, l)
		}
	}
	return lines
}

func (r *Runner) stop(ctx context.Context, logger *slog.Logger, p *proc.Process) {
	select {
	case <-p.Exited():
		return
	default:
	}
	if err := p.Stop(context.WithoutCancel(ctx), r.stopGrace); err != nil {
		logger.Warn("stopping action process failed", "error", err)
	}
}

func (r *Runner) emit(a *config.Action, state State, p *proc.Process, err error) {
	st := Status{
		Action:    a.Name,
		Kind:      a.Kind,
		State:     state,
		ProcessID: p.ID(),
		Timestamp: time.Now(),
	}
	if err != nil {
		st.Error = err.Error()
	}
	r.events.Emit(StatusEvent, st)
}

func environ(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
