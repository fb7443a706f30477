package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmritiSatyan/garden/internal/log"
)

func TestGetLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want slog.Level
		err  error
	}{
		"error":   {want: slog.LevelError},
		"WARN":    {want: slog.LevelWarn},
		"warning": {want: slog.LevelWarn},
		"info":    {want: slog.LevelInfo},
		"verbose": {want: log.SlogVerbose},
		"debug":   {want: slog.LevelDebug},
		"loud":    {err: log.ErrUnknownLogLevel},
	}

	for in, tc := range tcs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			got, err := log.GetLevel(in)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := log.CreateHandlerWithStrings(&buf, "verbose", "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Log(context.Background(), log.SlogVerbose, "forwarded", "origin", "helm")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), `"level":"VERBOSE"`)
	assert.Contains(t, buf.String(), `"origin":"helm"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestCreateHandlerWithStringsInvalid(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, err := log.CreateHandlerWithStrings(&buf, "info", "xml")
	require.ErrorIs(t, err, log.ErrInvalidArgument)
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)

	_, err = log.CreateHandlerWithStrings(&buf, "nope", "text")
	require.ErrorIs(t, err, log.ErrUnknownLogLevel)
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Default(), log.WithContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := log.NewContext(context.Background(), logger)
	assert.Same(t, logger, log.WithContext(ctx))
}

func TestDefaultFormatNonTerminal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, log.FormatLogfmt, log.DefaultFormat(nil))
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, log.SlogVerbose, log.SlogLevel(log.LevelVerbose))
	assert.Equal(t, slog.LevelError, log.SlogLevel(log.LevelError))
	assert.Equal(t, slog.LevelInfo, log.SlogLevel("nonsense"))
}
