package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmritiSatyan/garden/internal/watch"
)

type batches struct {
	mu  sync.Mutex
	all [][]string
}

func (b *batches) add(_ context.Context, paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, paths)
}

func (b *batches) get() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.all...)
}

func startWatcher(t *testing.T, root string, b *batches) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watch.New(root, watch.WithDebounce(50*time.Millisecond)).Run(ctx, b.add)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherDebouncesBurst(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b := &batches{}
	startWatcher(t, root, b)

	for _, name := range []string{"a.txt", "b.txt", "a.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool { return len(b.get()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")}, b.get()[0])
}

func TestWatcherIgnoresDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	b := &batches{}
	startWatcher(t, root, b)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "objects", "x"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, b.get())
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b := &batches{}
	startWatcher(t, root, b)

	sub := filepath.Join(root, "src")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return len(b.get()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "main.go"), []byte("package main"), 0o644))
	require.Eventually(t, func() bool {
		all := b.get()
		return len(all) >= 2 && assert.ObjectsAreEqual([]string{filepath.Join(sub, "main.go")}, all[len(all)-1])
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherMissingRoot(t *testing.T) {
	t.Parallel()

	err := watch.New("/nonexistent/garden-watch").Run(context.Background(), func(context.Context, []string) {})
	require.Error(t, err)
}
