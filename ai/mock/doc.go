// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder and
// ai.AIProvider for unit tests that must not reach an embedding server.
//
// # Usage
//
//	mockEmbedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns unit-length bag-of-words vectors. Identical texts
//     get identical vectors and texts sharing words are closer than texts
//     that share none.
//   - MockProvider: Wraps a MockEmbedder and reports DefaultModel
package mock
