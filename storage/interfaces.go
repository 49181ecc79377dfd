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


package storage

import (
	"context"

	"github.com/kgeesawor/discord-intel/core"
)

// MessageStore is the relational store holding every ingested message
// regardless of safety status.
type MessageStore interface {
	// UpsertChannel inserts or replaces a channel row.
	UpsertChannel(ctx context.Context, channel *core.Channel) error

	// UpsertMessages inserts messages or, for existing ids, replaces every
	// ingestion-owned column. Safety columns of existing rows are never
	// modified; new rows start as SafetyStatusPending.
	UpsertMessages(ctx context.Context, messages ...*core.Message) error

	// GetMessage retrieves a single message by id.
	// Returns ErrNotFound if the message doesn't exist.
	GetMessage(ctx context.Context, id string) (*core.Message, error)

	// Classify writes safety decisions. It is the only write path for the
	// safety columns. Returns the number of messages updated; unknown ids
	// are ignored.
	Classify(ctx context.Context, classifications ...core.Classification) (int, error)

	// SafeMessages returns messages with status safe and non-null content of
	// at least minLength characters, ordered by timestamp_epoch then id.
	// This is the only read path feeding the vector index.
	SafeMessages(ctx context.Context, minLength int) ([]*core.Message, error)

	// Stats summarizes the store.
	Stats(ctx context.Context) (*Stats, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn carries the transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the store and releases resources.
	Close() error
}

// Stats is a summary of the relational store.
type Stats struct {
	Messages int
	ByStatus map[core.SafetyStatus]int
	Channels []*core.Channel
}

// VectorIndex stores named collections of embedded records.
type VectorIndex interface {
	// Replace discards every record of the collection named by info and
	// writes records in their place together with info. Count and
	// Dimension of info are set from records. Replacing with no records
	// leaves an empty collection.
	Replace(ctx context.Context, info core.CollectionInfo, records []*core.IndexedRecord) error

	// Collection returns metadata of a built collection.
	// Returns ErrCollectionNotFound if it was never built.
	Collection(ctx context.Context, name string) (*core.CollectionInfo, error)

	// Search returns up to limit records of the collection matching filter,
	// ordered by ascending distance to vector.
	// Returns ErrCollectionNotFound if the collection doesn't exist.
	Search(ctx context.Context, collection string, vector []float32, filter core.SearchFilter, limit int) ([]*core.SearchHit, error)

	// Close releases resources held by the index.
	Close() error
}

// CheckDimensions returns the common vector size of records, or
// ErrDimensionMismatch if they differ. An empty slice has dimension 0.
func CheckDimensions(records []*core.IndexedRecord) (int, error) {
	dim := 0
	for i, r := range records {
		if err := core.ValidateIndexedRecord(r); err != nil {
			return 0, err
		}
		if i == 0 {
			dim = len(r.Vector)
			continue
		}
		if len(r.Vector) != dim {
			return 0, ErrDimensionMismatch
		}
	}
	return dim, nil
}
