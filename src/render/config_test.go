package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    *Config
		wantErr string
	}{
		{
			name: "empty uses defaults",
			doc:  "",
			want: DefaultConfig(),
		},
		{
			name: "all keys",
			doc: `
max_passes = 8
max_resources = 16
validate = true

[queues]
graphics = 0
compute = 1
transfer = 2
`,
			want: &Config{
				MaxPasses:    8,
				MaxResources: 16,
				Validate:     true,
				Queues:       QueueFamilies{Graphics: 0, Compute: 1, Transfer: 2},
			},
		},
		{
			name:    "unknown key",
			doc:     "max_pases = 3\n",
			wantErr: "decode config",
		},
		{
			name:    "zero passes",
			doc:     "max_passes = 0\n",
			wantErr: "max_passes must be positive",
		},
		{
			name:    "negative resources",
			doc:     "max_resources = -1\n",
			wantErr: "max_resources must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_passes = 4\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.MaxPasses)
	require.Equal(t, defaultMaxResources, cfg.MaxResources)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

func TestContext(t *testing.T) {
	ctx := NewContext(nil)
	require.Equal(t, DefaultConfig(), ctx.Config)
	require.Same(t, Logger(), ctx.Logger())

	var nilCtx *Context
	require.Equal(t, QueueFamilies{}, nilCtx.Families())
	require.Same(t, Logger(), nilCtx.Logger())

	cfg := DefaultConfig()
	cfg.Queues.Compute = 3
	require.Equal(t, uint32(3), NewContext(cfg).Families().Compute)
}
