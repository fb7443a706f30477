package warnings_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmritiSatyan/garden/internal/warnings"
)

func newLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestEmitNonRepeatable(t *testing.T) {
	t.Parallel()

	logger, buf := newLogger()
	h := warnings.NewHistory()
	ctx := context.Background()

	require.True(t, h.EmitNonRepeatable(ctx, logger, "helm is deprecated"))
	assert.False(t, h.EmitNonRepeatable(ctx, logger, "helm is deprecated"))
	assert.True(t, h.EmitNonRepeatable(ctx, logger, "other warning"))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "helm is deprecated"))
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "symbol=warning")
	assert.True(t, h.Seen("other warning"))
}

func TestHistoryReset(t *testing.T) {
	t.Parallel()

	logger, buf := newLogger()
	h := warnings.NewHistory()
	ctx := context.Background()

	h.EmitNonRepeatable(ctx, logger, "once")
	h.Reset()
	assert.False(t, h.Seen("once"))
	assert.True(t, h.EmitNonRepeatable(ctx, logger, "once"))
	assert.Equal(t, 2, strings.Count(buf.String(), "once"))
}

func TestGlobalHistory(t *testing.T) {
	logger, buf := newLogger()
	ctx := context.Background()
	t.Cleanup(warnings.Reset)

	warnings.EmitNonRepeatable(ctx, logger, "global warning")
	warnings.EmitNonRepeatable(ctx, logger, "global warning")
	assert.Equal(t, 1, strings.Count(buf.String(), "global warning"))
}
