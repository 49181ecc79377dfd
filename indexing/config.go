package indexing

import (
	"fmt"
	"time"

	"github.com/kgeesawor/discord-intel/core"
)

// Config holds configuration for an indexing run.
type Config struct {
	// Collection is the name of the vector collection to rebuild
	Collection string

	// BatchSize is the number of messages embedded per request
	BatchSize int

	// Workers is the number of batches embedded concurrently
	Workers int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// ReportInterval is how often to report progress (number of messages)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
// One worker keeps embedding sequential.
func DefaultConfig() *Config {
	return &Config{
		Collection:     core.DefaultCollection,
		BatchSize:      64,
		Workers:        1,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		ReportInterval: 64,
	}
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	switch {
	case c.Collection == "":
		return fmt.Errorf("%w: collection is required", ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.MaxRetries <= 0:
		return fmt.Errorf("%w: max retries must be positive", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay cannot be negative", ErrInvalidConfig)
	}
	return nil
}
