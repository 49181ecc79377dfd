package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
)

// Index implements storage.VectorIndex on BadgerDB with exact brute-force
// search. Distances are squared Euclidean.
type Index struct {
	backend    *Backend
	ownsStore  bool
	readOnly   bool
	baseLogger *slog.Logger
	logger     *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets the logger used by the index.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.baseLogger = logger
		i.logger = logger.With("component", "badger-index")
		return nil
	}
}

// WithReadOnly opens the directory read-only. Nothing is created or written;
// a directory that holds no index reports storage.ErrCollectionNotFound, and
// Replace fails with storage.ErrReadOnly.
func WithReadOnly() Option {
	return func(i *Index) error {
		i.readOnly = true
		return nil
	}
}

// NewIndex opens a BadgerDB directory and returns an index that owns it.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func NewIndex(path string, opts ...Option) (storage.VectorIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty index path", storage.ErrInvalidLocation)
	}
	return openOwned(path, opts)
}

// NewVectorIndex creates an index on an already opened backend.
// Closing the index does not close the backend.
func NewVectorIndex(backend *Backend, opts ...Option) (*Index, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	idx, err := configure(opts)
	if err != nil {
		return nil, err
	}
	idx.backend = backend
	return idx, nil
}

// openOwned opens a backend at path with the index's logger. An empty path
// means in memory.
func openOwned(path string, opts []Option) (*Index, error) {
	idx, err := configure(opts)
	if err != nil {
		return nil, err
	}
	open := OpenBackend
	if idx.readOnly {
		open = OpenBackendReadOnly
	}
	backend, err := open(path, idx.baseLogger)
	if err != nil {
		return nil, err
	}
	idx.backend = backend
	idx.ownsStore = true
	return idx, nil
}

func configure(opts []Option) (*Index, error) {
	idx := &Index{
		baseLogger: slog.Default(),
		logger:     slog.Default().With("component", "badger-index"),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Close closes the backend if the index opened it.
func (i *Index) Close() error {
	if i.ownsStore {
		return i.backend.Close()
	}
	return nil
}

// Replace discards the collection's records and writes the new set.
// The metadata key is removed first and written last, so an interrupted
// Replace leaves the collection missing rather than half built.
func (i *Index) Replace(ctx context.Context, info core.CollectionInfo, records []*core.IndexedRecord) error {
	if i.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if i.readOnly || i.backend.ReadOnly() {
		return fmt.Errorf("%w: cannot replace collection %s", storage.ErrReadOnly, info.Name)
	}
	if info.Name == "" {
		return fmt.Errorf("%w: collection name is required", storage.ErrInvalidQuery)
	}

	dim, err := storage.CheckDimensions(records)
	if err != nil {
		return err
	}
	info.Dimension = dim
	info.Count = len(records)
	if info.BuiltAt.IsZero() {
		info.BuiltAt = time.Now().UTC()
	}

	if err := i.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeMetaKey(info.Name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true); err != nil {
		return fmt.Errorf("clearing collection metadata: %w", err)
	}

	if err := i.backend.DropPrefix(makeRecordPrefix(info.Name)); err != nil {
		return fmt.Errorf("dropping collection records: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	err = i.backend.WriteAll(len(records), func(n int) ([]byte, []byte) {
		return makeRecordKey(info.Name, uint64(n)), storage.MarshalIndexedRecord(records[n])
	})
	if err != nil {
		return fmt.Errorf("writing collection records: %w", err)
	}

	err = i.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeMetaKey(info.Name), storage.MarshalCollectionInfo(&info)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("writing collection metadata: %w", err)
	}

	i.logger.Debug("replaced collection", "collection", info.Name, "count", info.Count, "dimension", info.Dimension)
	return nil
}

// Collection returns the metadata of a built collection.
func (i *Index) Collection(ctx context.Context, name string) (*core.CollectionInfo, error) {
	if i.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var info *core.CollectionInfo
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeMetaKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			info, err = storage.UnmarshalCollectionInfo(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Search scans every record of the collection, keeps those matching filter
// and returns the limit nearest by squared Euclidean distance. Equal
// distances keep insertion order. Returned records carry no vector.
func (i *Index) Search(ctx context.Context, collection string, vector []float32, filter core.SearchFilter, limit int) ([]*core.SearchHit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	info, err := i.Collection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if info.Count > 0 && len(vector) != info.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s has %d",
			storage.ErrDimensionMismatch, len(vector), collection, info.Dimension)
	}

	var hits []*core.SearchHit
	err = i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.IndexedRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalIndexedRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			if !filter.Matches(record) {
				continue
			}

			distance := squaredL2(vector, record.Vector)
			record.Vector = nil
			hits = append(hits, &core.SearchHit{Record: record, Distance: distance})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(hits, func(a, b *core.SearchHit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// squaredL2 calculates the squared Euclidean distance of two vectors.
func squaredL2(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
