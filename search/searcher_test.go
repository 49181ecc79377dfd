package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/kgeesawor/discord-intel/ai/mock"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
	"github.com/kgeesawor/discord-intel/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	id, channel, author, content string
}

var corpus = []message{
	{"1", "general", "alice", "the deploy pipeline failed again"},
	{"2", "general", "bob", "deploy pipeline is green now"},
	{"3", "random", "alice", "anyone up for lunch on friday"},
	{"4", "random", "carol", "the deploy broke the staging site"},
	{"5", "general", "carol", "friday lunch plans are set"},
}

// setupIndex builds the default collection from msgs using the mock embedder.
func setupIndex(t *testing.T, model string, msgs ...message) storage.VectorIndex {
	t.Helper()
	idx, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	embedder := mock.NewMockEmbedder()
	records := make([]*core.IndexedRecord, len(msgs))
	for i, m := range msgs {
		vec, err := embedder.EmbedText(context.Background(), m.content)
		require.NoError(t, err)
		records[i] = &core.IndexedRecord{
			ID:        m.id,
			Channel:   m.channel,
			Author:    m.author,
			Content:   m.content,
			Timestamp: "2024-01-15T10:30:00+00:00",
			Vector:    core.NormalizeVector(vec),
		}
	}
	require.NoError(t, idx.Replace(context.Background(), core.CollectionInfo{Name: core.DefaultCollection, Model: model}, records))
	return idx
}

func ids(hits []*core.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.ID
	}
	return out
}

func TestNewSearcher(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(idx, provider)
		require.NoError(t, err)
		assert.Equal(t, core.DefaultCollection, searcher.collection)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(idx, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher.logger)
	})

	t.Run("custom options", func(t *testing.T) {
		searcher, err := NewSearcher(idx, provider, WithLogger(slog.Default()), WithCollection("other"))
		require.NoError(t, err)
		assert.Equal(t, "other", searcher.collection)

		_, err = NewSearcher(idx, provider, WithCollection(""))
		assert.Error(t, err)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(nil, provider)
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(idx, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestSearch_RanksByDistance(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel, corpus...)
	searcher, err := NewSearcher(idx, mock.NewMockProvider())
	require.NoError(t, err)

	hits, err := searcher.Search(context.Background(), Query{Text: "deploy pipeline", Limit: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.ElementsMatch(t, []string{"1", "2"}, ids(hits))
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
	assert.Nil(t, hits[0].Record.Vector)

	all, err := searcher.Search(context.Background(), Query{Text: "deploy pipeline"})
	require.NoError(t, err)
	assert.Len(t, all, len(corpus))
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Distance, all[i].Distance)
	}
}

func TestSearch_Filters(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel, corpus...)
	searcher, err := NewSearcher(idx, mock.NewMockProvider())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    Query
		expected []string
	}{
		{"channel only", Query{Text: "deploy", Channel: "random"}, []string{"3", "4"}},
		{"author only", Query{Text: "deploy", Author: "alice"}, []string{"1", "3"}},
		{"channel and author", Query{Text: "deploy", Channel: "general", Author: "carol"}, []string{"5"}},
		{"no match", Query{Text: "deploy", Channel: "random", Author: "bob"}, []string{}},
		{"case sensitive", Query{Text: "deploy", Channel: "General"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := searcher.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, ids(hits))
		})
	}
}

func TestSearch_InvalidQueries(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel, corpus...)
	searcher, err := NewSearcher(idx, mock.NewMockProvider())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = searcher.Search(ctx, Query{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = searcher.Search(ctx, Query{Text: "deploy", Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSearch_IndexNotFound(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel, corpus...)
	searcher, err := NewSearcher(idx, mock.NewMockProvider(), WithCollection("never-built"))
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), Query{Text: "deploy"})
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestSearch_EmptyCollectionIsNotAnError(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel)
	searcher, err := NewSearcher(idx, mock.NewMockProvider())
	require.NoError(t, err)

	hits, err := searcher.Search(context.Background(), Query{Text: "deploy"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_ModelMismatch(t *testing.T) {
	idx := setupIndex(t, "other-model", corpus...)
	searcher, err := NewSearcher(idx, mock.NewMockProvider())
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), Query{Text: "deploy"})
	assert.ErrorIs(t, err, ErrEmbeddingModelMismatch)

	// A collection without a recorded model is accepted.
	idx = setupIndex(t, "", corpus...)
	searcher, err = NewSearcher(idx, mock.NewMockProvider())
	require.NoError(t, err)
	_, err = searcher.Search(context.Background(), Query{Text: "deploy"})
	assert.NoError(t, err)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel, corpus...)
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 16
	searcher, err := NewSearcher(idx, mock.NewMockProviderWithEmbedder(embedder, mock.DefaultModel))
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), Query{Text: "deploy"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_EmbedderError(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel, corpus...)
	down := errors.New("embedding service down")
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, down
	})
	searcher, err := NewSearcher(idx, mock.NewMockProviderWithEmbedder(embedder, mock.DefaultModel))
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), Query{Text: "deploy"})
	assert.ErrorIs(t, err, down)
}

type testMonitor struct {
	stages []string
}

func (m *testMonitor) Start(q Query) { m.stages = append(m.stages, "start:"+q.Text) }

func (m *testMonitor) AfterCollectionLookup(info *core.CollectionInfo) {
	m.stages = append(m.stages, "collection")
}

func (m *testMonitor) AfterQueryEmbedding(vector []float32) { m.stages = append(m.stages, "embedding") }

func (m *testMonitor) AfterIndexQuery(hits []*core.SearchHit) { m.stages = append(m.stages, "index") }

func (m *testMonitor) Finish(hits []*core.SearchHit) { m.stages = append(m.stages, "finish") }

func TestSearchWithMonitor(t *testing.T) {
	idx := setupIndex(t, mock.DefaultModel, corpus...)
	searcher, err := NewSearcher(idx, mock.NewMockProvider())
	require.NoError(t, err)

	monitor := &testMonitor{}
	_, err = searcher.SearchWithMonitor(context.Background(), Query{Text: "lunch"}, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"start:lunch", "collection", "embedding", "index", "finish"}, monitor.stages)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		limit    int
		expected string
	}{
		{"short", "hello", 200, "hello"},
		{"exact", strings.Repeat("a", 200), 200, strings.Repeat("a", 200)},
		{"long", strings.Repeat("a", 201), 200, strings.Repeat("a", 200) + "..."},
		{"multibyte", "héllo wörld", 5, "héllo..."},
		{"emoji", "🙂🙂🙂", 2, "🙂🙂..."},
		{"negative limit", "hello", -1, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.content, tt.limit))
		})
	}
}
