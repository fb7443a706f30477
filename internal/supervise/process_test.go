package supervise_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmritiSatyan/garden/internal/proc"
	"github.com/SmritiSatyan/garden/internal/supervise"
)

func TestLogLineLeavesServerRunning(t *testing.T) {
	t.Parallel()

	p := proc.Spawn(context.Background(), proc.Command{
		Path: "sh",
		Args: []string{"-c", `echo "Server started"; sleep 30`},
	})
	t.Cleanup(func() { _ = p.Stop(context.Background(), time.Second) })

	err := supervise.WaitForLogLine(context.Background(), p, supervise.LogLineOptions{
		SuccessLog: "Server started",
		ErrorLog:   "FATAL",
		Timeout:    10 * time.Second,
	})
	require.NoError(t, err)

	select {
	case <-p.Exited():
		t.Fatal("process was stopped by the detector")
	default:
	}

	require.NoError(t, p.Stop(context.Background(), time.Second))
	require.NoError(t, supervise.WaitForExit(context.Background(), p))
}

func TestWaitForProcessRealExit(t *testing.T) {
	t.Parallel()

	p := proc.Spawn(context.Background(), proc.Command{
		Path: "sh",
		Args: []string{"-c", `echo "UPGRADE FAILED: timed out" 1>&2; exit 1`},
	})

	err := supervise.WaitForProcess(context.Background(), p, "helm upgrade failed")
	serr := requireKind(t, err, supervise.KindNonZeroExit)
	assert.Equal(t, 1, serr.ExitCode)
	assert.Equal(t, "helm upgrade failed:\nUPGRADE FAILED: timed out\n\n\nExit code: 1", err.Error())
}

func TestWaitForProcessRealLaunchFailure(t *testing.T) {
	t.Parallel()

	p := proc.Spawn(context.Background(), proc.Command{Path: "/nonexistent/garden-helm"})

	err := supervise.WaitForProcess(context.Background(), p, "helm upgrade failed")
	requireKind(t, err, supervise.KindLaunch)
	assert.ErrorIs(t, err, proc.ErrLaunch)
}

func TestWaitForLogLineRealLaunchFailure(t *testing.T) {
	t.Parallel()

	p := proc.Spawn(context.Background(), proc.Command{Path: "/nonexistent/garden-server"})

	start := time.Now()
	err := supervise.WaitForLogLine(context.Background(), p, supervise.LogLineOptions{
		SuccessLog: "ready",
		Timeout:    time.Minute,
	})
	requireKind(t, err, supervise.KindLaunch)
	assert.ErrorIs(t, err, proc.ErrLaunch)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestStreamLogsWithRealProcess(t *testing.T) {
	t.Parallel()

	p := proc.Spawn(context.Background(), proc.Command{
		Path: "sh",
		Args: []string{"-c", `printf 'one\ntwo\n'; printf 'oops\n' 1>&2; printf 'tail'`},
	})

	rec := &recorder{}
	supervise.StreamLogs(p, "tool", rec)
	require.NoError(t, supervise.WaitForProcess(context.Background(), p, "tool failed"))

	require.Eventually(t, func() bool {
		return len(rec.messages(proc.Stdout)) == 3
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "tail"}, rec.messages(proc.Stdout))
	assert.Equal(t, []string{"oops"}, rec.messages(proc.Stderr))
}
