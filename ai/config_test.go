// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderLocal, cfg.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Host)
	assert.Equal(t, "nomic-embed-text", cfg.Model)
	assert.Equal(t, 768, cfg.Dimensions)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.False(t, cfg.PullModel)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithProvider(ProviderOpenAI),
			WithHost("https://api.example.com/v1"),
			WithModel("text-embedding-3-small"),
			WithToken("secret"),
			WithDimensions(1536),
			WithBatchSize(16),
			WithPullModel(true),
		)

		assert.Equal(t, ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "https://api.example.com/v1", cfg.Host)
		assert.Equal(t, "text-embedding-3-small", cfg.Model)
		assert.Equal(t, "secret", cfg.Token)
		assert.Equal(t, 1536, cfg.Dimensions)
		assert.Equal(t, 16, cfg.BatchSize)
		assert.True(t, cfg.PullModel)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		provider ProviderType
		host     string
		want     string
	}{
		{"openai adds v1", ProviderOpenAI, "http://localhost:8080", "http://localhost:8080/v1"},
		{"openai trailing slash", ProviderOpenAI, "http://localhost:8080/", "http://localhost:8080/v1"},
		{"openai already v1", ProviderOpenAI, "http://localhost:8080/v1", "http://localhost:8080/v1"},
		{"local strips v1", ProviderLocal, "http://localhost:11434/v1", "http://localhost:11434"},
		{"local trailing slash", ProviderLocal, "http://localhost:11434/", "http://localhost:11434"},
		{"local bare", ProviderLocal, "http://localhost:11434", "http://localhost:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithProvider(tt.provider), WithHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}

	t.Run("provider is lowercased", func(t *testing.T) {
		cfg := NewConfig(WithProvider("OpenAI"))
		cfg.Normalize()
		assert.Equal(t, ProviderOpenAI, cfg.Provider)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		wantErr string
	}{
		{"valid defaults", nil, ""},
		{"unknown provider", []ConfigOption{WithProvider("bedrock")}, "unknown provider"},
		{"empty host", []ConfigOption{WithHost("")}, "Host is required"},
		{"empty model", []ConfigOption{WithModel("")}, "Model is required"},
		{"zero dimensions", []ConfigOption{WithDimensions(0)}, "Dimensions must be positive"},
		{"negative batch size", []ConfigOption{WithBatchSize(-1)}, "BatchSize must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "navd.yaml")
		data := []byte("provider: openai\nhost: http://localhost:8080\nmodel: text-embedding-3-small\ndimensions: 1536\n")
		require.NoError(t, os.WriteFile(path, data, 0600))

		cfg, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "http://localhost:8080/v1", cfg.Host)
		assert.Equal(t, "text-embedding-3-small", cfg.Model)
		assert.Equal(t, 1536, cfg.Dimensions)
		assert.Equal(t, 64, cfg.BatchSize, "unset fields keep defaults")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dimensions: [not, an, int]\n"), 0600))

		_, err := LoadConfigFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dimensions: 0\n"), 0600))

		_, err := LoadConfigFile(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
