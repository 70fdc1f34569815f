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
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds embedding provider settings.
type Config struct {
	// Provider selects the backend: "local" (Ollama) or "openai".
	Provider ProviderType `yaml:"provider"`

	// Host is the base URL of the embedding service.
	// Example: "http://localhost:11434" for Ollama,
	// "https://api.openai.com/v1" for OpenAI.
	Host string `yaml:"host"`

	// Model is the embedding model identifier.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	Model string `yaml:"model"`

	// Token is the API token for hosted providers. Local OpenAI-compatible
	// servers usually accept any value.
	Token string `yaml:"token"`

	// Dimensions is the length of the vectors the model produces.
	// Every result is checked against it.
	// Default: 768
	Dimensions int `yaml:"dimensions"`

	// BatchSize caps the number of texts sent in one request.
	// Default: 64
	BatchSize int `yaml:"batch_size"`

	// PullModel downloads the model on first use if the local server
	// does not have it. Only used by the local provider.
	PullModel bool `yaml:"pull_model"`
}

type ConfigOption func(*Config)

func WithProvider(provider ProviderType) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

func WithPullModel(pull bool) ConfigOption {
	return func(c *Config) {
		c.PullModel = pull
	}
}

func DefaultConfig() *Config {
	return &Config{
		Provider:   ProviderLocal,
		Host:       "http://localhost:11434",
		Model:      "nomic-embed-text",
		Token:      "none",
		Dimensions: 768,
		BatchSize:  64,
	}
}

func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadConfigFile reads a YAML config file. Fields missing from the file
// keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize adjusts Host for the selected provider. OpenAI-compatible APIs
// are addressed under /v1; the Ollama client expects the bare server URL.
func (c *Config) Normalize() {
	c.Provider = ProviderType(strings.ToLower(string(c.Provider)))
	if c.Host == "" {
		return
	}
	c.Host = strings.TrimSuffix(c.Host, "/")
	switch c.Provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(c.Host, "/v1") {
			c.Host = c.Host + "/v1"
		}
	case ProviderLocal:
		c.Host = strings.TrimSuffix(c.Host, "/v1")
	}
}

func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Host == "" {
		return fmt.Errorf("%w: Host is required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: Model is required", ErrInvalidConfig)
	}
	if c.Dimensions < 1 {
		return fmt.Errorf("%w: Dimensions must be positive", ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: BatchSize must be positive", ErrInvalidConfig)
	}
	return nil
}
