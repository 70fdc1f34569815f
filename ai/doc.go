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


// Package ai defines the embedding contract used by navd.
//
// Embedding generation is an external concern: navd consumes it through the
// Embedder interface and never depends on a concrete backend.
//
//   - Embedder: turns text into fixed-dimensionality float32 vectors
//   - Config: provider selection and connection settings
//   - CheckBatch: verifies a batch result honors the contract
//
// # Contract
//
// Every Embedder must:
//
//   - return vectors of exactly Dimensions() elements, on every call
//   - return one vector per input text, in input order
//   - report failure for a batch as a single error matching ErrEmbedding,
//     with no partial results
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible HTTP APIs (hosted or local servers)
//   - ai/local: models served by a local Ollama instance, initialized lazily
//   - ai/mock: deterministic test doubles
//
// Public constructors return the ai.Embedder interface. Test doubles return
// concrete types so tests can inject behavior and count calls.
//
// # Configuration
//
//	cfg := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderOpenAI),
//	    ai.WithHost("https://api.openai.com"),  // /v1 added automatically
//	    ai.WithModel("text-embedding-3-small"),
//	    ai.WithDimensions(1536),
//	)
//
// or from a YAML file:
//
//	cfg, err := ai.LoadConfigFile("navd.yaml")
package ai
