package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmritiSatyan/garden/internal/action"
	"github.com/SmritiSatyan/garden/internal/log"
	"github.com/SmritiSatyan/garden/internal/supervise"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-format", "logfmt"}, args...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		projectPath = "."
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garden.yml"), []byte(`
name: shop
actions:
  - {name: api, kind: run, command: "node server.js"}
sources:
  - {name: charts, repository_url: https://example.com/charts.git}
`), 0o644))

	out, err := execute(t, "check", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "OK    "+filepath.Join(dir, "garden.yml"))
	assert.Contains(t, out, "1 action, 1 source")
}

func TestCheckCommandInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garden.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: shop\nactions:\n  - {name: api, kind: serve, command: x}\n"), 0o644))

	out, err := execute(t, "check", path)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL  "+path)
	assert.Contains(t, out, "kind must be")
}

func TestExecCommandExitCode(t *testing.T) {
	_, err := execute(t, "exec", "--", "sh", "-c", "echo boom 1>&2; exit 2")
	require.ErrorIs(t, err, supervise.ErrNonZeroExit)
	assert.Contains(t, err.Error(), "sh failed:\nboom\n")
}

func TestExecCommandErrorLog(t *testing.T) {
	t.Cleanup(func() {
		execOpts.successLog, execOpts.errorLog, execOpts.timeout = "", "", 0
	})

	_, err := execute(t, "exec", "--success-log", "ready", "--error-log", "FATAL", "--timeout", "5s",
		"--", "sh", "-c", "echo FATAL; sleep 30")
	require.ErrorIs(t, err, supervise.ErrErrorPatternMatched)
}

func TestExecCommandReadinessLaunchFailure(t *testing.T) {
	t.Cleanup(func() { execOpts.successLog = "" })

	_, err := execute(t, "exec", "--success-log", "ready", "--", "/nonexistent/garden-server")
	require.ErrorIs(t, err, supervise.ErrLaunch)
}

func TestHistoryLimit(t *testing.T) {
	tcs := map[string]struct {
		in   string
		want int
	}{
		"default size": {in: "1MiB", want: 1 << 20},
		"zero":         {in: "0", want: 0},
		"off":          {in: "off", want: -1},
		"capped":       {in: "2TiB", want: maxHistoryLimit},
		"at cap":       {in: "1GiB", want: maxHistoryLimit},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			got, err := historyLimit(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := historyLimit("-5")
	assert.Error(t, err)
}

func TestReportRecentSkipsVisibleLines(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	reportRecent(context.Background(), &action.Result{
		Action: "test",
		Recent: []supervise.LogLine{
			{Message: "shown already", Level: log.LevelInfo},
			{Message: "compiler says no", Level: log.LevelVerbose},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "last output before failure")
	assert.Contains(t, out, "compiler says no")
	assert.NotContains(t, out, "shown already")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
