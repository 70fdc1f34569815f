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


package ai

import "context"

// Embedder generates fixed-dimensionality vector embeddings from text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error wrapping ErrEmbedding if generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice has one vector per input, in input order.
	// A failure covers the whole batch; no partial results are returned.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of every vector produced by this embedder.
	Dimensions() int
}

// ProviderType selects the embedding backend.
type ProviderType string

const (
	// ProviderOpenAI uses an OpenAI-compatible HTTP API.
	ProviderOpenAI ProviderType = "openai"
	// ProviderLocal uses a model served by a local Ollama instance.
	ProviderLocal ProviderType = "local"
)
