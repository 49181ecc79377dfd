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


// Package ai provides abstractions for the embedding service used by
// discord-intel.
//
// The indexer and the searcher depend on the Embedder interface only. The
// embedding model itself is an external collaborator: this package specifies
// how it is reached and how its availability is checked, not how it works.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - AIProvider: Owns an Embedder and names the model behind it
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Deterministic test double for unit testing without a server
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types. Test constructors (mock.NewMockEmbedder) return CONCRETE
// types so tests can inject behavior and assert on call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	mockEmbed := mock.NewMockEmbedder()          // returns *mock.MockEmbedder
//
// # Capability Check
//
// Commands that need embeddings call CheckEmbedder once before touching any
// data, so an unreachable service fails the run before partial work is done:
//
//	dim, err := ai.CheckEmbedder(ctx, provider.Embedder())
//	if errors.Is(err, ai.ErrEmbedderUnavailable) {
//	    // exit non-zero
//	}
//
// The same model must be used to build an index and to query it. Providers
// report their model through EmbeddingModel so the index can record it.
package ai
