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


package indexing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kgeesawor/discord-intel/ai"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
	"github.com/panjf2000/ants/v2"
)

// options holds the collaborators shared by Exporter and Indexer.
type options struct {
	logger   *slog.Logger
	progress io.Writer
	clock    func() time.Time
}

// Option configures an Exporter or Indexer.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithProgress sets where embedding progress is written (typically os.Stderr).
// Default is no progress output.
func WithProgress(w io.Writer) Option {
	return func(o *options) error {
		o.progress = w
		return nil
	}
}

// WithClock sets the clock used to stamp BuiltAt.
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		o.clock = clock
		return nil
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := &options{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Exporter selects safe messages from the store and embeds them.
// It is the only path from the message store into the vector index.
type Exporter struct {
	store    storage.MessageStore
	embedder ai.Embedder
	config   *Config
	pool     *ants.Pool
	progress io.Writer
	logger   *slog.Logger
}

// NewExporter creates an exporter. A nil config means DefaultConfig().
// Call Release when done to free the worker pool.
func NewExporter(store storage.MessageStore, embedder ai.Embedder, config *Config, opts ...Option) (*Exporter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrProviderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newExporter(store, embedder, config, o)
}

func newExporter(store storage.MessageStore, embedder ai.Embedder, config *Config, o *options) (*Exporter, error) {
	pool, err := ants.NewPool(config.Workers)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		store:    store,
		embedder: embedder,
		config:   config,
		pool:     pool,
		progress: o.progress,
		logger:   o.logger.With("component", "exporter"),
	}, nil
}

// Release releases the worker pool.
func (e *Exporter) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Select returns the indexable messages in timestamp_epoch, id order.
func (e *Exporter) Select(ctx context.Context) ([]*core.Message, error) {
	msgs, err := e.store.SafeMessages(ctx, core.MinIndexableContentLength)
	if err != nil {
		return nil, fmt.Errorf("selecting safe messages: %w", err)
	}

	selected := msgs[:0]
	for _, m := range msgs {
		if !core.IsIndexable(m) {
			e.logger.Debug("dropping non-indexable message", "id", m.ID)
			continue
		}
		selected = append(selected, m)
	}
	return selected, nil
}

// Export embeds every selected message and returns the records in
// selection order. An empty selection returns no records and no error.
// The first batch that still fails after all retries aborts the export.
func (e *Exporter) Export(ctx context.Context) ([]*core.IndexedRecord, error) {
	msgs, err := e.Select(ctx)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		e.logger.Info("no safe messages to export")
		return nil, nil
	}

	e.logger.Info("embedding messages", "count", len(msgs), "batch_size", e.config.BatchSize, "workers", e.config.Workers)

	tracker := NewProgressTracker(e.progress, "Embedding", len(msgs), e.config.ReportInterval)
	tracker.Start()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make([]*core.IndexedRecord, len(msgs))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(msgs); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(msgs))
		batch := msgs[start:end]

		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			if runCtx.Err() != nil {
				return
			}

			vectors, err := e.embedBatch(runCtx, batch)
			if err != nil {
				fail(fmt.Errorf("embedding messages %d-%d: %w", start, end, err))
				return
			}
			for i, m := range batch {
				records[start+i] = toRecord(m, vectors[i])
			}
			tracker.Add(len(batch))
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submitting batch: %w", submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracker.Finish()
	return records, nil
}

func (e *Exporter) embedBatch(ctx context.Context, batch []*core.Message) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, m := range batch {
		texts[i] = m.Content.String
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, e.logger, e.config.MaxRetries, e.config.RetryDelay, func(ctx context.Context) error {
		var err error
		vectors, err = e.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: expected %d, got %d", ai.ErrEmbeddingCountMismatch, len(texts), len(vectors))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range vectors {
		vectors[i] = core.NormalizeVector(vectors[i])
	}
	return vectors, nil
}

func toRecord(m *core.Message, vector []float32) *core.IndexedRecord {
	return &core.IndexedRecord{
		ID:        m.ID,
		Channel:   m.ChannelName,
		Author:    m.AuthorName,
		Content:   m.Content.String,
		Timestamp: m.Timestamp,
		Vector:    vector,
	}
}
