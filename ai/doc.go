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


// Package ai provides abstractions for the embedding service used by dataprep.
//
// The enrichment stage depends on the Embedder interface rather than on a
// concrete client, so the embedding model can be swapped (or stubbed in tests)
// without touching the pipeline.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Plain functions can be used directly through EmbedderFunc:
//
//	embedder := ai.EmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2}, nil
//	})
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder INTERFACE to
// prevent accidental coupling to a concrete client. Test utility constructors
// (mock.NewMockEmbedder) return CONCRETE types so tests can inject behavior
// and assert on call counts.
//
// # Configuration
//
// Config is built from defaults plus functional options, or loaded from a
// YAML file:
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	)
//
//	cfg, err := ai.LoadConfigFile("dataprep.yaml")
package ai
