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


// Package storage provides the storage abstraction layer for discord-intel.
//
// Two stores exist and they never share data directly:
//
//   - MessageStore: the relational quarantine. Every ingested message lands
//     here whatever its safety status. Implemented by storage/sqlite.
//   - VectorIndex: the searchable projection. Only safe messages, copied
//     through MessageStore.SafeMessages, ever reach it. Implemented by
//     storage/badger (local directory) and storage/qdrant (server).
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces:
//
//	store, err := sqlite.Open(path)            // returns storage.MessageStore
//	index, err := badger.NewIndex(path)        // returns storage.VectorIndex
//	index, err := qdrant.NewIndex("localhost", 6334)
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Serialization
//
// The badger index stores IndexedRecord and CollectionInfo values with the
// mus-go serializers in this package (IndexedRecordMUS, CollectionInfoMUS).
//
// # Thread Safety
//
// All implementations must be safe for concurrent use. The SQLite store
// serializes access through a single connection.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
