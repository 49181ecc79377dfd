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


// Package discordintel wires the message store, vector index and embedding
// provider together for the ingest, index and search workflows.
package discordintel

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/kgeesawor/discord-intel/ai"
	"github.com/kgeesawor/discord-intel/ai/openai"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/indexing"
	"github.com/kgeesawor/discord-intel/ingestion"
	"github.com/kgeesawor/discord-intel/search"
	"github.com/kgeesawor/discord-intel/storage"
	"github.com/kgeesawor/discord-intel/storage/badger"
	"github.com/kgeesawor/discord-intel/storage/qdrant"
	"github.com/kgeesawor/discord-intel/storage/sqlite"
)

// QdrantScheme prefixes index locations served by a Qdrant server.
const QdrantScheme = "qdrant://"

var (
	// ErrStoreNotConfigured is returned when an operation needs the message store.
	ErrStoreNotConfigured = errors.New("message store not configured")

	// ErrIndexNotConfigured is returned when an operation needs the vector index.
	ErrIndexNotConfigured = errors.New("vector index not configured")

	// ErrProviderNotConfigured is returned when an operation needs embeddings.
	ErrProviderNotConfigured = errors.New("AI provider not configured")
)

// Database holds the components a command works with. Each component is
// opened only when its option was given.
type Database struct {
	store      storage.MessageStore
	index      storage.VectorIndex
	provider   ai.AIProvider
	collection string
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	storePath     string
	indexLocation string
	readOnlyIndex bool
	aiConfig      *ai.Config
	provider      ai.AIProvider
	collection    string
	logger        *slog.Logger
}

// WithStorePath opens the SQLite message store at path.
func WithStorePath(path string) DatabaseOption {
	return func(o *databaseOptions) {
		o.storePath = path
	}
}

// WithIndexLocation opens the vector index at location. See OpenIndex.
func WithIndexLocation(location string) DatabaseOption {
	return func(o *databaseOptions) {
		o.indexLocation = location
	}
}

// WithReadOnlyIndex opens the vector index for queries only. A badger
// directory is neither created nor written, and a location holding no index
// reports storage.ErrCollectionNotFound.
func WithReadOnlyIndex() DatabaseOption {
	return func(o *databaseOptions) {
		o.readOnlyIndex = true
	}
}

// WithAIConfig creates an OpenAI-compatible provider from config.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses an existing provider. It takes precedence over WithAIConfig.
// The Database closes it on Close.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithCollection sets the collection used by indexers and searchers.
// Default is core.DefaultCollection.
func WithCollection(name string) DatabaseOption {
	return func(o *databaseOptions) {
		o.collection = name
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the configured components. On error everything opened
// so far is closed.
func NewDatabase(opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		collection: core.DefaultCollection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db := &Database{
		collection: options.collection,
		logger:     options.logger,
	}

	if options.storePath != "" {
		store, err := sqlite.Open(options.storePath, sqlite.WithLogger(options.logger))
		if err != nil {
			return nil, err
		}
		db.store = store
	}

	if options.indexLocation != "" {
		index, err := OpenIndex(options.indexLocation, options.readOnlyIndex, options.logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		db.index = index
	}

	switch {
	case options.provider != nil:
		db.provider = options.provider
	case options.aiConfig != nil:
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			db.Close()
			return nil, err
		}
		db.provider = provider
	}

	return db, nil
}

// OpenIndex opens a vector index. A location of the form qdrant://host:port
// connects to a Qdrant server; anything else is a badger directory. readOnly
// only affects badger; the qdrant server arbitrates its own writers.
func OpenIndex(location string, readOnly bool, logger *slog.Logger) (storage.VectorIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !strings.HasPrefix(location, QdrantScheme) {
		opts := []badger.Option{badger.WithLogger(logger)}
		if readOnly {
			opts = append(opts, badger.WithReadOnly())
		}
		return badger.NewIndex(location, opts...)
	}

	host, port, err := parseQdrantLocation(location)
	if err != nil {
		return nil, err
	}
	return qdrant.NewIndex(host, port, qdrant.WithLogger(logger))
}

func parseQdrantLocation(location string) (string, int, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", storage.ErrInvalidLocation, err)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("%w: missing host in %s", storage.ErrInvalidLocation, location)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("%w: bad port in %s", storage.ErrInvalidLocation, location)
		}
	}
	return u.Hostname(), port, nil
}

// Close closes every opened component. The first error is returned.
func (db *Database) Close() error {
	var errs []error

	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}
	if db.index != nil {
		if err := db.index.Close(); err != nil {
			db.logger.Error("error closing vector index", "err", err)
			errs = append(errs, err)
		}
	}
	if db.store != nil {
		if err := db.store.Close(); err != nil {
			db.logger.Error("error closing message store", "err", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Store returns the message store, or nil when it was not configured.
func (db *Database) Store() storage.MessageStore {
	return db.store
}

// Index returns the vector index, or nil when it was not configured.
func (db *Database) Index() storage.VectorIndex {
	return db.index
}

// Provider returns the AI provider, or nil when it was not configured.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// Collection returns the collection name used by indexers and searchers.
func (db *Database) Collection() string {
	return db.collection
}

func (db *Database) NewLoader(opts ...ingestion.Option) (*ingestion.Loader, error) {
	if db.store == nil {
		return nil, ErrStoreNotConfigured
	}
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewLoader(db.store, opts...)
}

// NewIndexer creates an indexer writing the database's collection. A nil
// config means indexing.DefaultConfig(); its Collection is overridden.
func (db *Database) NewIndexer(config *indexing.Config, opts ...indexing.Option) (*indexing.Indexer, error) {
	if db.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if db.index == nil {
		return nil, ErrIndexNotConfigured
	}
	if db.provider == nil {
		return nil, ErrProviderNotConfigured
	}

	if config == nil {
		config = indexing.DefaultConfig()
	}
	cfg := *config
	cfg.Collection = db.collection

	opts = append([]indexing.Option{indexing.WithLogger(db.logger)}, opts...)
	return indexing.NewIndexer(db.store, db.index, db.provider, &cfg, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	if db.index == nil {
		return nil, ErrIndexNotConfigured
	}
	if db.provider == nil {
		return nil, ErrProviderNotConfigured
	}
	opts = append([]search.Option{search.WithLogger(db.logger), search.WithCollection(db.collection)}, opts...)
	return search.NewSearcher(db.index, db.provider, opts...)
}
