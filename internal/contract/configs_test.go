package contract

import (
	"testing"

	"github.com/outpostlabs/outpost/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a minimal raw input that passes validation.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Product:      "shop",
		Generation:   1,
		Origin:       "https://api.example.com",
		CacheBackend: string(schema.SQLiteBackend),
		Limit:        10,
		Output:       "text",
		Color:        "no",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		check       func(*testing.T, *Config)
	}{
		{
			name:   "valid minimal config",
			mutate: func(_ *ConfigRawInput) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "shop", cfg.ProductName)
				assert.Equal(t, "https://api.example.com", cfg.Origin)
				assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
				assert.Equal(t, schema.DefaultQueueTag, cfg.QueueTag)
				assert.Equal(t, schema.NoneBackend, cfg.HistoryBackend)
				assert.Equal(t, schema.TextOut, cfg.Output)
			},
		},
		{
			name:   "empty product falls back to default",
			mutate: func(in *ConfigRawInput) { in.Product = "" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultProductName, cfg.ProductName)
			},
		},
		{
			name:        "generation below one",
			mutate:      func(in *ConfigRawInput) { in.Generation = 0 },
			expectError: true,
		},
		{
			name:        "missing origin",
			mutate:      func(in *ConfigRawInput) { in.Origin = "" },
			expectError: true,
		},
		{
			name:        "origin with path",
			mutate:      func(in *ConfigRawInput) { in.Origin = "https://api.example.com/v1" },
			expectError: true,
		},
		{
			name:        "origin with bad scheme",
			mutate:      func(in *ConfigRawInput) { in.Origin = "ftp://api.example.com" },
			expectError: true,
		},
		{
			name:   "relative manifest entries resolve against origin",
			mutate: func(in *ConfigRawInput) { in.Manifest = "/index.json, /assets/app.js" },
			check: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.PrecacheManifest, 2)
				assert.Equal(t, "https://api.example.com/index.json", cfg.PrecacheManifest[0])
				assert.Equal(t, "https://api.example.com/assets/app.js", cfg.PrecacheManifest[1])
			},
		},
		{
			name:   "absolute same-origin manifest entry accepted",
			mutate: func(in *ConfigRawInput) { in.Manifest = "https://api.example.com/index.json" },
			check: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.PrecacheManifest, 1)
			},
		},
		{
			name:        "cross-origin manifest entry rejected",
			mutate:      func(in *ConfigRawInput) { in.Manifest = "https://cdn.example.org/app.js" },
			expectError: true,
		},
		{
			name:        "relative manifest entry without slash rejected",
			mutate:      func(in *ConfigRawInput) { in.Manifest = "index.json" },
			expectError: true,
		},
		{
			name:        "negative replay max attempts",
			mutate:      func(in *ConfigRawInput) { in.ReplayMaxAttempts = -1 },
			expectError: true,
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "mongodb" },
			expectError: true,
		},
		{
			name: "mysql backend requires connection string",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = string(schema.MySQLBackend)
				in.CacheDBConnect = ""
			},
			expectError: true,
		},
		{
			name: "history backend validated when set",
			mutate: func(in *ConfigRawInput) {
				in.HistoryBackend = string(schema.PostgreSQLBackend)
				in.HistoryDBConnect = ""
			},
			expectError: true,
		},
		{
			name:   "zero limit falls back to default",
			mutate: func(in *ConfigRawInput) { in.Limit = 0 },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultResultLimit, cfg.ResultLimit)
			},
		},
		{
			name:        "limit above maximum rejected",
			mutate:      func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 },
			expectError: true,
		},
		{
			name:        "invalid output mode",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: true,
		},
		{
			name:        "invalid color value",
			mutate:      func(in *ConfigRawInput) { in.Color = "maybe" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)

			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestParseOrigin(t *testing.T) {
	u, err := ParseOrigin("https://api.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", u.String())

	_, err = ParseOrigin("https://api.example.com?x=1")
	assert.Error(t, err)

	_, err = ParseOrigin("https://api.example.com#frag")
	assert.Error(t, err)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{ProductName: "shop", Generation: 2}
	clone := cfg.Clone()
	clone.Generation = 3
	assert.Equal(t, 2, cfg.Generation)
	assert.Equal(t, "shop", clone.ProductName)
}
