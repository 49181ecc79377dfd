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
	"log/slog"
	"time"

	"github.com/kgeesawor/discord-intel/ai"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
)

// Indexer rebuilds a vector collection from the safe messages of a store.
type Indexer struct {
	exporter *Exporter
	index    storage.VectorIndex
	model    string
	config   *Config
	clock    func() time.Time
	logger   *slog.Logger
}

// Report summarizes an indexing run.
type Report struct {
	Collection string
	Indexed    int
	Dimension  int
	Cleared    bool // An existing collection was emptied because nothing is safe
	Elapsed    time.Duration
}

// NewIndexer creates an indexer. A nil config means DefaultConfig().
// Call Release when done to free the worker pool.
func NewIndexer(store storage.MessageStore, index storage.VectorIndex, provider ai.AIProvider, config *Config, opts ...Option) (*Indexer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
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

	exporter, err := newExporter(store, provider.Embedder(), config, o)
	if err != nil {
		return nil, err
	}

	return &Indexer{
		exporter: exporter,
		index:    index,
		model:    provider.EmbeddingModel(),
		config:   config,
		clock:    o.clock,
		logger:   o.logger.With("component", "indexer"),
	}, nil
}

// Release releases the worker pool.
func (ix *Indexer) Release() {
	ix.exporter.Release()
}

// Run replaces the collection with the current safe selection. The result
// never depends on what the collection held before, except that an empty
// selection creates nothing when no collection exists.
func (ix *Indexer) Run(ctx context.Context) (*Report, error) {
	start := ix.clock()
	report := &Report{Collection: ix.config.Collection}

	records, err := ix.exporter.Export(ctx)
	if err != nil {
		return nil, err
	}

	info := core.CollectionInfo{
		Name:    ix.config.Collection,
		Model:   ix.model,
		BuiltAt: start.UTC(),
	}

	if len(records) == 0 {
		existing, err := ix.index.Collection(ctx, ix.config.Collection)
		if errors.Is(err, storage.ErrCollectionNotFound) {
			ix.logger.Info("nothing to index", "collection", ix.config.Collection)
			report.Elapsed = ix.clock().Sub(start)
			return report, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading collection: %w", err)
		}

		// Some backends need a vector size even for an empty collection.
		info.Dimension = existing.Dimension
		if err := ix.index.Replace(ctx, info, nil); err != nil {
			return nil, fmt.Errorf("clearing collection: %w", err)
		}
		ix.logger.Info("cleared collection", "collection", ix.config.Collection, "previous_count", existing.Count)
		report.Cleared = true
		report.Elapsed = ix.clock().Sub(start)
		return report, nil
	}

	if err := ix.index.Replace(ctx, info, records); err != nil {
		return nil, fmt.Errorf("writing collection: %w", err)
	}

	report.Indexed = len(records)
	report.Dimension = len(records[0].Vector)
	report.Elapsed = ix.clock().Sub(start)
	ix.logger.Info("indexed messages",
		"collection", ix.config.Collection,
		"count", report.Indexed,
		"dimension", report.Dimension,
		"model", ix.model,
		"elapsed", report.Elapsed.Round(time.Millisecond))
	return report, nil
}
