package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/dataprep/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// noAuthToken is sent to local OpenAI-compatible services that don't require authentication.
const noAuthToken = "none"

var (
	// ErrEmptyResponse is returned when the service answers without any vector.
	ErrEmptyResponse = errors.New("embedding service returned no vectors")

	// ErrResultCount is returned when the number of vectors differs from the number of texts.
	ErrResultCount = errors.New("embedding service returned a different number of vectors")
)

// Embedder implements ai.Embedder over an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client embeddings.Embedder
	model  string
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	token := config.APIKey
	if token == "" {
		token = noAuthToken
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}

	client, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(config.StripNewLines))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}

	return &Embedder{
		client: client,
		model:  config.EmbeddingModel,
		logger: slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder for the host and model in config.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds one text with a single request.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in order. The service may split them into several requests.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.embed(ctx, texts)
}

// embed returns exactly one vector per text or an error naming the model.
func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()

	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Debug("embedding request failed", "texts", len(texts), "err", err)
		return nil, fmt.Errorf("%s: %w", e.model, err)
	}

	switch {
	case len(vectors) == 0:
		err = ErrEmptyResponse
	case len(vectors) != len(texts):
		err = fmt.Errorf("%w: want %d, got %d", ErrResultCount, len(texts), len(vectors))
	}
	if err != nil {
		e.logger.Warn("unusable embedding response", "texts", len(texts), "err", err)
		return nil, fmt.Errorf("%s: %w", e.model, err)
	}

	e.logger.Debug("embedded texts", "texts", len(texts), "elapsed", time.Since(start))
	return vectors, nil
}
