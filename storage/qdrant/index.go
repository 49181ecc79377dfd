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


package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
	qc "github.com/qdrant/go-client/qdrant"
)

const (
	defaultPort      = 6334
	defaultBatchSize = 256
)

// Payload field names.
const (
	fieldID        = "id"
	fieldChannel   = "channel"
	fieldAuthor    = "author"
	fieldContent   = "content"
	fieldTimestamp = "timestamp"
	fieldPosition  = "position"
)

// pointsClient is the subset of *qc.Client used by Index.
type pointsClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qc.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qc.CollectionInfo, error)
	Count(ctx context.Context, request *qc.CountPoints) (uint64, error)
	Upsert(ctx context.Context, request *qc.UpsertPoints) (*qc.UpdateResult, error)
	Query(ctx context.Context, request *qc.QueryPoints) ([]*qc.ScoredPoint, error)
	Close() error
}

// Index implements storage.VectorIndex on a Qdrant server. Collections use
// Euclidean distance. Qdrant stores no embedding model name, so Collection
// reports an empty Model.
type Index struct {
	client    pointsClient
	batchSize int
	logger    *slog.Logger
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
		i.logger = logger.With("component", "qdrant-index")
		return nil
	}
}

// WithBatchSize sets how many points are sent per upsert request.
func WithBatchSize(n int) Option {
	return func(i *Index) error {
		if n <= 0 {
			return errors.New("batch size must be positive")
		}
		i.batchSize = n
		return nil
	}
}

// NewIndex connects to the Qdrant gRPC endpoint at host:port.
// A zero port means the default gRPC port 6334.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func NewIndex(host string, port int, opts ...Option) (storage.VectorIndex, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: qdrant host is required", storage.ErrInvalidLocation)
	}
	if port == 0 {
		port = defaultPort
	}

	client, err := qc.NewClient(&qc.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	idx, err := newIndex(client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

func newIndex(client pointsClient, opts ...Option) (*Index, error) {
	idx := &Index{
		client:    client,
		batchSize: defaultBatchSize,
		logger:    slog.Default().With("component", "qdrant-index"),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Close closes the gRPC connection.
func (i *Index) Close() error {
	return i.client.Close()
}

// Replace drops and recreates the collection, then upserts records in batches.
func (i *Index) Replace(ctx context.Context, info core.CollectionInfo, records []*core.IndexedRecord) error {
	if info.Name == "" {
		return fmt.Errorf("%w: collection name is required", storage.ErrInvalidQuery)
	}

	dim, err := storage.CheckDimensions(records)
	if err != nil {
		return err
	}
	if dim == 0 {
		// Qdrant needs a vector size to create a collection.
		dim = info.Dimension
	}
	if dim <= 0 {
		return fmt.Errorf("%w: vector dimension unknown for empty collection", storage.ErrInvalidQuery)
	}

	exists, err := i.client.CollectionExists(ctx, info.Name)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if exists {
		if err := i.client.DeleteCollection(ctx, info.Name); err != nil {
			return fmt.Errorf("deleting collection: %w", err)
		}
	}

	err = i.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: info.Name,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(dim),
			Distance: qc.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	wait := true
	for start := 0; start < len(records); start += i.batchSize {
		end := min(start+i.batchSize, len(records))
		points := make([]*qc.PointStruct, 0, end-start)
		for pos := start; pos < end; pos++ {
			points = append(points, toPoint(records[pos], pos))
		}

		if _, err := i.client.Upsert(ctx, &qc.UpsertPoints{
			CollectionName: info.Name,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return fmt.Errorf("upserting points %d-%d: %w", start, end, err)
		}
	}

	i.logger.Debug("replaced collection", "collection", info.Name, "count", len(records), "dimension", dim)
	return nil
}

// Collection reports the vector size and point count of a collection.
func (i *Index) Collection(ctx context.Context, name string) (*core.CollectionInfo, error) {
	exists, err := i.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking collection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}

	ci, err := i.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading collection info: %w", err)
	}

	exact := true
	count, err := i.client.Count(ctx, &qc.CountPoints{CollectionName: name, Exact: &exact})
	if err != nil {
		return nil, fmt.Errorf("counting points: %w", err)
	}

	return &core.CollectionInfo{
		Name:      name,
		Dimension: int(ci.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()),
		Count:     int(count),
	}, nil
}

// Search queries the collection with exact-match payload filters.
func (i *Index) Search(ctx context.Context, collection string, vector []float32, filter core.SearchFilter, limit int) ([]*core.SearchHit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	exists, err := i.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}

	n := uint64(limit)
	points, err := i.client.Query(ctx, &qc.QueryPoints{
		CollectionName: collection,
		Query:          qc.NewQuery(vector...),
		Limit:          &n,
		Filter:         buildFilter(filter),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	return toHits(points), nil
}

// toPoint converts a record to a point keyed by the hash of its message id.
func toPoint(record *core.IndexedRecord, pos int) *qc.PointStruct {
	return &qc.PointStruct{
		Id:      qc.NewIDNum(uint64(record.Key())),
		Vectors: qc.NewVectors(record.Vector...),
		Payload: qc.NewValueMap(map[string]any{
			fieldID:        record.ID,
			fieldChannel:   record.Channel,
			fieldAuthor:    record.Author,
			fieldContent:   record.Content,
			fieldTimestamp: record.Timestamp,
			fieldPosition:  int64(pos),
		}),
	}
}

// buildFilter returns nil when no field is set.
func buildFilter(filter core.SearchFilter) *qc.Filter {
	var must []*qc.Condition
	if filter.Channel != "" {
		must = append(must, qc.NewMatch(fieldChannel, filter.Channel))
	}
	if filter.Author != "" {
		must = append(must, qc.NewMatch(fieldAuthor, filter.Author))
	}
	if len(must) == 0 {
		return nil
	}
	return &qc.Filter{Must: must}
}

// toHits converts scored points and orders them by distance, breaking ties
// by the position the record had when the collection was built.
func toHits(points []*qc.ScoredPoint) []*core.SearchHit {
	type positioned struct {
		hit *core.SearchHit
		pos int64
	}

	items := make([]positioned, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		items = append(items, positioned{
			hit: &core.SearchHit{
				Record: &core.IndexedRecord{
					ID:        payload[fieldID].GetStringValue(),
					Channel:   payload[fieldChannel].GetStringValue(),
					Author:    payload[fieldAuthor].GetStringValue(),
					Content:   payload[fieldContent].GetStringValue(),
					Timestamp: payload[fieldTimestamp].GetStringValue(),
				},
				Distance: p.GetScore(),
			},
			pos: payload[fieldPosition].GetIntegerValue(),
		})
	}

	slices.SortStableFunc(items, func(a, b positioned) int {
		switch {
		case a.hit.Distance < b.hit.Distance:
			return -1
		case a.hit.Distance > b.hit.Distance:
			return 1
		case a.pos < b.pos:
			return -1
		case a.pos > b.pos:
			return 1
		}
		return 0
	})

	hits := make([]*core.SearchHit, len(items))
	for i, it := range items {
		hits[i] = it.hit
	}
	return hits
}
