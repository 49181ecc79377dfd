// Package config loads the YAML configuration file shared by all commands.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/kgeesawor/discord-intel/ai"
	"github.com/kgeesawor/discord-intel/indexing"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
}

// EmbeddingConfig selects the embedding service.
type EmbeddingConfig struct {
	Host           string `yaml:"host"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"` // ${VAR} references are expanded from the environment
	MaxInputTokens int    `yaml:"max_input_tokens"`
}

// IndexConfig tunes index builds.
type IndexConfig struct {
	Collection string        `yaml:"collection"`
	BatchSize  int           `yaml:"batch_size"`
	Workers    int           `yaml:"workers"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	a := ai.DefaultConfig()
	ix := indexing.DefaultConfig()
	return &Config{
		Embedding: EmbeddingConfig{
			Host:           a.EmbeddingHost,
			Model:          a.EmbeddingModel,
			MaxInputTokens: a.MaxInputTokens,
		},
		Index: IndexConfig{
			Collection: ix.Collection,
			BatchSize:  ix.BatchSize,
			Workers:    ix.Workers,
			MaxRetries: ix.MaxRetries,
			RetryDelay: ix.RetryDelay,
		},
	}
}

// Load reads configuration from the YAML file at path on top of Default().
// An empty path returns the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.Embedding.APIKey = os.ExpandEnv(cfg.Embedding.APIKey)
	return cfg, nil
}

// AI converts the embedding section to an ai.Config.
func (c *Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithMaxInputTokens(c.Embedding.MaxInputTokens),
	)
}

// Indexing converts the index section to an indexing.Config.
func (c *Config) Indexing() *indexing.Config {
	ix := indexing.DefaultConfig()
	ix.Collection = c.Index.Collection
	ix.BatchSize = c.Index.BatchSize
	ix.Workers = c.Index.Workers
	ix.MaxRetries = c.Index.MaxRetries
	ix.RetryDelay = c.Index.RetryDelay
	return ix
}

// Validate checks both sections.
func (c *Config) Validate() error {
	if err := c.AI().Validate(); err != nil {
		return err
	}
	return c.Indexing().Validate()
}
