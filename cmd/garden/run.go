package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmritiSatyan/garden/internal/action"
	"github.com/SmritiSatyan/garden/internal/config"
	"github.com/SmritiSatyan/garden/internal/log"
	"github.com/SmritiSatyan/garden/internal/proc"
	"github.com/SmritiSatyan/garden/internal/supervise"
	"github.com/SmritiSatyan/garden/internal/warnings"
	"github.com/SmritiSatyan/garden/internal/watch"
)

const stopGrace = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run <action>",
	Short: "Run a project action",
	Long: "Run an action from garden.yml. Actions with a readiness block stay in the " +
		"foreground once ready until interrupted; other actions run to completion.",
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var runWatch bool

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "re-run the action when project files change")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := loadProject()
	if err != nil {
		return err
	}
	a, err := p.Action(args[0])
	if err != nil {
		return err
	}

	runner := action.NewRunner(p, action.WithEvents(newBus()))

	if runWatch {
		return watchAction(ctx, p, runner, a)
	}

	res, err := runner.Run(ctx, a)
	if err != nil {
		reportRecent(ctx, res)
		return err
	}
	if !res.Ready {
		return nil
	}

	slog.Info("action is ready, press Ctrl-C to stop", "action", a.Name, "pid", res.Process.PID())
	return holdForeground(ctx, res.Process)
}

// reportRecent prints the last lines of a failed run that the current log
// level hid.
func reportRecent(ctx context.Context, res *action.Result) {
	if res == nil {
		return
	}
	var hidden []supervise.LogLine
	for _, l := range res.Recent {
		if !slog.Default().Enabled(ctx, log.SlogLevel(l.Level)) {
			hidden = append(hidden, l)
		}
	}
	if len(hidden) == 0 {
		return
	}
	slog.Warn("last output before failure", "action", res.Action, "lines", len(hidden))
	for _, l := range hidden {
		slog.Warn(l.Message, "origin", l.Origin, "stream", l.Stream.String())
	}
}

// holdForeground waits until the ready process exits on its own or ctx ends,
// in which case the process is stopped.
func holdForeground(ctx context.Context, p *proc.Process) error {
	err := supervise.WaitForExit(ctx, p)
	if errors.Is(err, supervise.ErrCanceled) {
		slog.Info("stopping", "pid", p.PID())
		return p.Stop(context.WithoutCancel(ctx), stopGrace)
	}
	if err != nil {
		return err
	}

	code, _ := p.ExitCode()
	if code != 0 {
		return fmt.Errorf("process exited with code %d", code)
	}
	slog.Info("process exited")
	return nil
}

func watchAction(ctx context.Context, p *config.Project, runner *action.Runner, a *config.Action) error {
	if a.Readiness == nil && a.Kind == config.KindRun {
		warnings.EmitNonRepeatable(ctx, slog.Default(),
			fmt.Sprintf("action %q has no readiness block, --watch waits for it to exit before watching", a.Name))
	}

	var current *proc.Process
	stopCurrent := func() {
		if current == nil {
			return
		}
		if err := current.Stop(context.WithoutCancel(ctx), stopGrace); err != nil {
			slog.Warn("stopping previous run failed", "error", err)
		}
		current = nil
	}
	defer stopCurrent()

	runOnce := func(ctx context.Context) {
		stopCurrent()
		res, err := runner.Run(ctx, a)
		if err != nil {
			reportRecent(ctx, res)
			slog.Error("action failed", "action", a.Name, "error", err)
			return
		}
		if res.Ready {
			current = res.Process
		}
	}

	runOnce(ctx)
	return watch.New(p.Dir).Run(ctx, func(ctx context.Context, paths []string) {
		slog.Info("files changed, re-running", "action", a.Name, "changed", len(paths))
		runOnce(ctx)
	})
}
