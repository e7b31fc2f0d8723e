// Package mock provides a test double implementation of ai.Embedder.
//
// The mock allows tests to run without an embedding service and gives
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Deterministic hash-based vectors
//	embedder := mock.NewMockEmbedder()
//
//	// Fixed vector for every text
//	embedder := mock.NewMockEmbedder().WithFixedVector([]float32{0.1, 0.2})
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        if text == "bad" {
//	            return nil, errors.New("quota exceeded")
//	        }
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	// Check calls
//	count := embedder.CallCount()
//	texts := embedder.Texts()
package mock
