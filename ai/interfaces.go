package ai

import "context"

// Embedder generates vector embeddings from text.
// An Embedder is bound to a single embedding model; it is the model handle
// passed through to the enrichment stage.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

var _ Embedder = EmbedderFunc(nil)

// EmbedText calls f(ctx, text).
func (f EmbedderFunc) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// EmbedTexts calls f once per text, in order, and stops at the first error.
func (f EmbedderFunc) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
