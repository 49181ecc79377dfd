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
	"errors"
	"strings"
)

// DefaultMaxInputTokens is the input cap of most OpenAI-compatible embedding models.
const DefaultMaxInputTokens = 8191

// Config holds configuration for AI services.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// The same model must be used to build an index and to query it.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// APIKey is the bearer token sent to the embedding service.
	// Local servers usually accept any value; empty means "none".
	APIKey string

	// MaxInputTokens caps the number of tokens sent per text.
	// Longer texts are truncated before embedding. Zero disables the cap.
	// Default: 8191
	MaxInputTokens int
}

// ConfigOption is a functional option for configuring Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service base URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the bearer token for the embedding service.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithMaxInputTokens sets the per-text token cap.
func WithMaxInputTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxInputTokens = n
	}
}

// DefaultConfig returns a Config pointing at a local Ollama server.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
		MaxInputTokens: DefaultMaxInputTokens,
	}
}

// NewConfig creates a Config from defaults and the given options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the embedding host is in the form OpenAI-compatible clients expect.
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// Token returns the API key to send, defaulting to "none" for local services
// that do not require authentication.
func (c *Config) Token() string {
	if c.APIKey == "" {
		return "none"
	}
	return c.APIKey
}

// Validate normalizes the config and checks required fields.
func (c *Config) Validate() error {
	// Normalize first to ensure hosts are in correct format
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.MaxInputTokens < 0 {
		return errors.New("ai config: MaxInputTokens cannot be negative")
	}
	return nil
}
