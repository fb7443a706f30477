package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmritiSatyan/garden/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content string
		want    config.Config
		wantErr string
	}{
		"valid": {
			content: "log_level: verbose\nlog_format: json\nparallelism: 4\nlaunch_rate: 2.5\n",
			want:    config.Config{LogLevel: "verbose", LogFormat: "json", Parallelism: 4, LaunchRate: 2.5},
		},
		"empty file": {
			content: "",
		},
		"comments only": {
			content: "# nothing configured yet\n",
		},
		"unknown level": {
			content: "log_level: loud\n",
			wantErr: "log_level: unknown log level",
		},
		"unknown format": {
			content: "log_format: xml\n",
			wantErr: "log_format: unknown log format",
		},
		"negative parallelism": {
			content: "parallelism: -1\n",
			wantErr: "parallelism must not be negative",
		},
		"invalid yaml": {
			content: "log_level: [unclosed\n",
			wantErr: "parsing config",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, t.TempDir(), "config.yaml", tc.content)
			cfg, err := config.Load(path)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, *cfg)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Config{}, *cfg)
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()

	path := config.DefaultPath()
	if path == "" {
		t.Skip("no home directory")
	}
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, ".garden", filepath.Base(filepath.Dir(path)))
}
