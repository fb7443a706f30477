// Package helm runs the helm CLI under supervision.
package helm

import (
	"context"
	"errors"
	"fmt"
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

const (
	// DefaultTimeout bounds a helm invocation. Helm enforces its own
	// timeouts, so this is only a backstop.
	DefaultTimeout = time.Hour

	// Origin labels forwarded helm output.
	Origin = "helm"

	stopGrace = 5 * time.Second
)

// Options configures one helm invocation.
type Options struct {
	// Binary is the helm executable, "helm" when empty.
	Binary     string
	Context    string
	Kubeconfig string
	Namespace  string

	Args []string
	// Env is merged over the current process environment.
	Env map[string]string
	Dir string

	// EmitLogEvents forwards every output line to Events as a log event.
	EmitLogEvents bool
	Events        events.Emitter

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// FromProject fills the cluster settings of opts from the project's helm block.
func FromProject(h *config.Helm, args ...string) Options {
	opts := Options{Args: args}
	if h != nil {
		opts.Binary = h.Binary
		opts.Context = h.Context
		opts.Kubeconfig = h.Kubeconfig
		opts.Namespace = h.Namespace
	}
	return opts
}

// Argv returns the full helm argument list: cluster flags first, then Args.
func (o Options) Argv() []string {
	argv := []string{"--kube-context", o.Context}
	if o.Kubeconfig != "" {
		argv = append(argv, "--kubeconfig", o.Kubeconfig)
	}
	if o.Namespace != "" {
		argv = append(argv, "--namespace", o.Namespace)
	}
	return append(argv, o.Args...)
}

// Environ returns os.Environ with o.Env applied on top.
func (o Options) Environ() []string {
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(o.Env)) {
		env = append(env, k+"="+o.Env[k])
	}
	return env
}

// Run invokes helm and returns its stdout. A non-zero exit yields a
// supervise error whose message carries helm's stderr. A run that outlives
// the timeout is stopped.
func Run(ctx context.Context, opts Options) (string, error) {
	if opts.Context == "" {
		return "", errors.New("helm: kube context is required")
	}

	binary := opts.Binary
	if binary == "" {
		binary = "helm"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := log.WithContext(ctx).With("component", "helm")
	logger.Debug("running helm", "args", opts.Args, "namespace", opts.Namespace)

	p := proc.Spawn(ctx, proc.Command{
		Path: binary,
		Args: opts.Argv(),
		Env:  opts.Environ(),
		Dir:  opts.Dir,
	})

	out := supervise.NewOutput()
	detach := out.Attach(p)
	defer detach()

	if opts.EmitLogEvents && opts.Events != nil {
		supervise.StreamLogs(p, Origin, opts.Events, supervise.WithLevel(log.LevelVerbose))
	}

	err := supervise.WaitForProcessTimeout(ctx, p, errorPrefix(opts.Args), timeout)
	if supervise.KindOf(err) == supervise.KindReadinessTimeout {
		logger.Warn("helm timed out, stopping", "timeout", timeout)
		if stopErr := p.Stop(context.WithoutCancel(ctx), stopGrace); stopErr != nil {
			logger.Debug("stopping helm failed", "error", stopErr)
		}
	}
	if err != nil {
		logger.Debug("helm failed", "error", err)
		return "", err
	}

	return out.Stdout(), nil
}

func errorPrefix(args []string) string {
	if len(args) == 0 {
		return "helm failed"
	}
	return fmt.Sprintf("helm %s failed", args[0])
}
