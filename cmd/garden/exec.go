package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SmritiSatyan/garden/internal/log"
	"github.com/SmritiSatyan/garden/internal/proc"
	"github.com/SmritiSatyan/garden/internal/supervise"
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Run a command under supervision",
	Long: "Run a command and judge it by exit code, or with --success-log by a line " +
		"in its output. A command that becomes ready stays in the foreground until interrupted.",
	Example: `  garden exec -- make build
  garden exec --success-log "Server started" --error-log FATAL --timeout 30s -- node server.js`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var execOpts struct {
	successLog   string
	errorLog     string
	timeout      time.Duration
	matchStderr  bool
	origin       string
	lineLevel    string
	historyLimit string
	errorPrefix  string
}

func init() {
	f := execCmd.Flags()
	f.StringVar(&execOpts.successLog, "success-log", "", "output text that marks the command as ready")
	f.StringVar(&execOpts.errorLog, "error-log", "", "output text that marks the command as failed (needs --success-log)")
	f.DurationVar(&execOpts.timeout, "timeout", 0, "give up after this long (0 waits forever)")
	f.BoolVar(&execOpts.matchStderr, "match-stderr", false, "also look for the log lines in stderr")
	f.StringVar(&execOpts.origin, "origin", "", "origin label of forwarded lines (default: command name)")
	f.StringVar(&execOpts.lineLevel, "line-level", string(log.LevelVerbose), "log level of forwarded lines")
	f.StringVar(&execOpts.historyLimit, "history-limit", "1MiB",
		"output retained per stream for late listeners (0 uses the default, \"off\" disables, capped at 1GiB)")
	f.StringVar(&execOpts.errorPrefix, "error-prefix", "", "prefix of the failure message (default: \"<command> failed\")")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	if execOpts.errorLog != "" && execOpts.successLog == "" {
		return errors.New("--error-log requires --success-log")
	}
	if _, err := log.GetLevel(execOpts.lineLevel); err != nil {
		return fmt.Errorf("--line-level: %w", err)
	}
	limit, err := historyLimit(execOpts.historyLimit)
	if err != nil {
		return fmt.Errorf("--history-limit: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name := filepath.Base(args[0])
	origin := firstNonEmpty(execOpts.origin, name)
	prefix := firstNonEmpty(execOpts.errorPrefix, name+" failed")

	p := proc.Spawn(ctx, proc.Command{
		Path:         args[0],
		Args:         args[1:],
		HistoryLimit: limit,
	})
	supervise.StreamLogs(p, origin, newBus(), supervise.WithLevel(log.Level(execOpts.lineLevel)))

	slog.Debug("supervising command", "command", name, "history_limit", execOpts.historyLimit)

	if execOpts.successLog == "" {
		err := supervise.WaitForProcessTimeout(ctx, p, prefix, execOpts.timeout)
		if supervise.KindOf(err) == supervise.KindReadinessTimeout {
			_ = p.Stop(context.WithoutCancel(ctx), stopGrace)
		}
		return err
	}

	err = supervise.WaitForLogLine(ctx, p, supervise.LogLineOptions{
		SuccessLog:  execOpts.successLog,
		ErrorLog:    execOpts.errorLog,
		Timeout:     execOpts.timeout,
		MatchStderr: execOpts.matchStderr,
	})
	if err != nil {
		_ = p.Stop(context.WithoutCancel(ctx), stopGrace)
		return err
	}

	slog.Info("command is ready, press Ctrl-C to stop", "command", name, "pid", p.PID())
	return holdForeground(ctx, p)
}

// maxHistoryLimit caps --history-limit.
const maxHistoryLimit = 1 << 30

// historyLimit parses a --history-limit value into a proc.Command
// HistoryLimit: 0 keeps the default, "off" disables replay (-1) and larger
// sizes are capped at maxHistoryLimit.
func historyLimit(s string) (int, error) {
	if s == "off" {
		return -1, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > maxHistoryLimit {
		slog.Warn("history limit capped", "requested", humanize.IBytes(n), "limit", humanize.IBytes(maxHistoryLimit))
		return maxHistoryLimit, nil
	}
	return int(n), nil
}
