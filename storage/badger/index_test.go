package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIndex(t *testing.T) storage.VectorIndex {
	t.Helper()
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func rec(id, channel, author string, vec ...float32) *core.IndexedRecord {
	return &core.IndexedRecord{
		ID:        id,
		Channel:   channel,
		Author:    author,
		Content:   "content of " + id,
		Timestamp: "2024-01-15T10:30:00+00:00",
		Vector:    vec,
	}
}

func ids(hits []*core.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.ID
	}
	return out
}

func TestIndex_CollectionNotFound(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	_, err := idx.Collection(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	_, err = idx.Search(ctx, "missing", []float32{1, 0}, core.SearchFilter{}, 10)
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestIndex_ReplaceAndSearch(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	err := idx.Replace(ctx, core.CollectionInfo{Name: "c", Model: "m"}, []*core.IndexedRecord{
		rec("far", "general", "alice", 0, 1),
		rec("near", "general", "bob", 1, 0),
		rec("mid", "random", "alice", 0.6, 0.8),
	})
	require.NoError(t, err)

	info, err := idx.Collection(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Count)
	assert.Equal(t, 2, info.Dimension)
	assert.Equal(t, "m", info.Model)
	assert.False(t, info.BuiltAt.IsZero())

	hits, err := idx.Search(ctx, "c", []float32{1, 0}, core.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid", "far"}, ids(hits))
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
	assert.InDelta(t, 0.8, hits[1].Distance, 1e-6) // (0.4)^2 + (0.8)^2
	assert.InDelta(t, 2.0, hits[2].Distance, 1e-6)
	assert.Nil(t, hits[0].Record.Vector)
	assert.Equal(t, "content of near", hits[0].Record.Content)
}

func TestIndex_SearchLimit(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	var records []*core.IndexedRecord
	for i := 0; i < 20; i++ {
		records = append(records, rec(fmt.Sprintf("m%02d", i), "general", "alice", float32(i), 0))
	}
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, records))

	hits, err := idx.Search(ctx, "c", []float32{0, 0}, core.SearchFilter{}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"m00", "m01", "m02", "m03", "m04"}, ids(hits))

	_, err = idx.Search(ctx, "c", []float32{0, 0}, core.SearchFilter{}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	// More than 255 records so positions span multiple key bytes.
	var records []*core.IndexedRecord
	for i := 0; i < 300; i++ {
		records = append(records, rec(fmt.Sprintf("r%03d", 299-i), "general", "alice", 1, 1))
	}
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, records))

	hits, err := idx.Search(ctx, "c", []float32{0, 0}, core.SearchFilter{}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"r299", "r298", "r297"}, ids(hits))
}

func TestIndex_FilterConjunction(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{
		rec("1", "general", "alice", 1, 0),
		rec("2", "general", "bob", 1, 0),
		rec("3", "random", "alice", 1, 0),
		rec("4", "random", "bob", 1, 0),
	}))

	tests := []struct {
		name   string
		filter core.SearchFilter
		want   []string
	}{
		{"no filter", core.SearchFilter{}, []string{"1", "2", "3", "4"}},
		{"channel", core.SearchFilter{Channel: "general"}, []string{"1", "2"}},
		{"author", core.SearchFilter{Author: "alice"}, []string{"1", "3"}},
		{"channel and author", core.SearchFilter{Channel: "random", Author: "bob"}, []string{"4"}},
		{"no match", core.SearchFilter{Channel: "general", Author: "carol"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(ctx, "c", []float32{1, 0}, tt.filter, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(hits))
		})
	}
}

func TestIndex_RebuildReplaces(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{
		rec("old1", "general", "alice", 1, 0),
		rec("old2", "general", "alice", 0, 1),
	}))
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{
		rec("new1", "general", "alice", 1, 0),
	}))

	hits, err := idx.Search(ctx, "c", []float32{1, 0}, core.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new1"}, ids(hits))

	info, err := idx.Collection(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Count)
}

func TestIndex_ReplaceWithEmptySet(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{rec("1", "general", "alice", 1, 0)}))
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, nil))

	info, err := idx.Collection(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, info.Count)

	hits, err := idx.Search(ctx, "c", []float32{1, 0}, core.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_CollectionsAreIsolated(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "a"}, []*core.IndexedRecord{rec("a1", "general", "alice", 1, 0)}))
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "a:b"}, []*core.IndexedRecord{rec("ab1", "general", "alice", 1, 0)}))
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "a"}, []*core.IndexedRecord{rec("a2", "general", "alice", 1, 0)}))

	hits, err := idx.Search(ctx, "a:b", []float32{1, 0}, core.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab1"}, ids(hits))

	hits, err = idx.Search(ctx, "a", []float32{1, 0}, core.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, ids(hits))
}

func TestIndex_DimensionChecks(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	err := idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{
		rec("1", "general", "alice", 1, 0),
		rec("2", "general", "alice", 1, 0, 0),
	})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{rec("1", "general", "alice", 1, 0)}))
	_, err = idx.Search(ctx, "c", []float32{1, 0, 0}, core.SearchFilter{}, 10)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestIndex_InvalidReplaceKeepsExisting(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{rec("1", "general", "alice", 1, 0)}))
	err := idx.Replace(ctx, core.CollectionInfo{Name: "c"}, []*core.IndexedRecord{{ID: "no-vector"}})
	require.Error(t, err)

	info, err := idx.Collection(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Count)
}

func TestNewIndex_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	idx, err := NewIndex(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c", Model: "m"}, []*core.IndexedRecord{rec("1", "general", "alice", 1, 0)}))
	require.NoError(t, idx.Close())

	idx, err = NewIndex(dir)
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search(ctx, "c", []float32{1, 0}, core.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(hits))
}

func TestNewVectorIndex_DoesNotCloseSharedBackend(t *testing.T) {
	backend, err := OpenBackend("", nil)
	require.NoError(t, err)
	defer backend.Close()

	idx, err := NewVectorIndex(backend)
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	assert.False(t, backend.IsClosed())

	_, err = NewVectorIndex(nil)
	assert.Error(t, err)
}

func TestNewIndex_EmptyPath(t *testing.T) {
	_, err := NewIndex("")
	assert.ErrorIs(t, err, storage.ErrInvalidLocation)
}

func TestNewIndex_ReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")

	idx, err := NewIndex(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Replace(ctx, core.CollectionInfo{Name: "c", Model: "m"}, []*core.IndexedRecord{
		rec("1", "general", "alice", 1, 0),
		rec("2", "general", "bob", 0, 1),
	}))
	require.NoError(t, idx.Close())

	ro, err := NewIndex(dir, WithReadOnly())
	require.NoError(t, err)
	defer ro.Close()

	info, err := ro.Collection(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Count)

	hits, err := ro.Search(ctx, "c", []float32{1, 0}, core.SearchFilter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(hits))

	err = ro.Replace(ctx, core.CollectionInfo{Name: "c"}, nil)
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}

func TestNewIndex_ReadOnlyLeavesPlainDirectoryUntouched(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	_, err := NewIndex(dir, WithReadOnly())
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes.txt", entries[0].Name())

	missing := filepath.Join(t.TempDir(), "missing")
	_, err = NewIndex(missing, WithReadOnly())
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}
