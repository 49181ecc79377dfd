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


// Package search provides semantic search over the vector index.
//
// A Searcher embeds the query text with the same kind of model used to
// build the collection, normalizes the vector and asks the index for the
// nearest records. Channel and author filters are exact-match and both
// must hold when both are set. Results ascend by distance.
//
// A collection that was never built is reported as ErrIndexNotFound,
// which is distinct from a search that simply matches nothing.
package search
