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


package search

import (
	"errors"
	"fmt"

	"github.com/kgeesawor/discord-intel/storage"
)

var (
	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmptyQuery is returned when the query text is blank.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrInvalidLimit is returned for a result limit that is not positive.
	ErrInvalidLimit = errors.New("limit must be a positive integer")

	// ErrIndexNotFound is returned when the collection has never been built.
	// It matches storage.ErrCollectionNotFound with errors.Is.
	ErrIndexNotFound = fmt.Errorf("index not found: %w", storage.ErrCollectionNotFound)

	// ErrEmbeddingModelMismatch is returned when the collection was built
	// with a different embedding model than the one configured for queries.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")

	// ErrDimensionMismatch is returned when the query vector size differs
	// from the collection's.
	ErrDimensionMismatch = fmt.Errorf("query dimension mismatch: %w", storage.ErrDimensionMismatch)
)
