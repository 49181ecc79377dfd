package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kgeesawor/discord-intel/ai"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
)

// DefaultLimit is used when a Query leaves Limit unset.
const DefaultLimit = 10

// Query describes one search request.
type Query struct {
	Text    string
	Limit   int    // Unset (zero) means DefaultLimit; a set limit must be positive
	Channel string // Exact channel name, empty for any
	Author  string // Exact author name, empty for any
}

// Searcher provides semantic search over one vector collection.
type Searcher struct {
	index      storage.VectorIndex
	embedder   ai.Embedder
	model      string
	collection string
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithCollection sets the collection to search.
// Default is core.DefaultCollection.
func WithCollection(name string) Option {
	return func(s *Searcher) error {
		if name == "" {
			return errors.New("collection name cannot be empty")
		}
		s.collection = name
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.VectorIndex, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		index:      index,
		embedder:   provider.Embedder(),
		model:      provider.EmbeddingModel(),
		collection: core.DefaultCollection,
		logger:     slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns the records nearest to the query text.
func (s *Searcher) Search(ctx context.Context, q Query) ([]*core.SearchHit, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor is Search with a monitor receiving a callback at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q Query, monitor SearchMonitor) ([]*core.SearchHit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, q.Limit)
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	monitor.Start(q)

	info, err := s.index.Collection(ctx, s.collection)
	if err != nil {
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, s.collection)
		}
		return nil, fmt.Errorf("reading collection: %w", err)
	}
	monitor.AfterCollectionLookup(info)

	// Backends that do not record the model report an empty name.
	if info.Model != "" && s.model != "" && info.Model != s.model {
		return nil, fmt.Errorf("%w: collection %s was built with %q, queries use %q",
			ErrEmbeddingModelMismatch, s.collection, info.Model, s.model)
	}

	vector, err := s.embedder.EmbedText(ctx, q.Text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", q.Text, "err", err)
		return nil, err
	}
	vector = core.NormalizeVector(vector)
	monitor.AfterQueryEmbedding(vector)

	if info.Count > 0 && info.Dimension > 0 && len(vector) != info.Dimension {
		return nil, fmt.Errorf("%w: query has %d, collection %s has %d",
			ErrDimensionMismatch, len(vector), s.collection, info.Dimension)
	}

	filter := core.SearchFilter{Channel: q.Channel, Author: q.Author}
	hits, err := s.index.Search(ctx, s.collection, vector, filter, q.Limit)
	if err != nil {
		s.logger.Error("error querying index", "collection", s.collection, "err", err)
		return nil, err
	}
	monitor.AfterIndexQuery(hits)

	s.logger.Debug("search complete", "query", q.Text, "hits", len(hits), "channel", q.Channel, "author", q.Author)
	monitor.Finish(hits)
	return hits, nil
}
