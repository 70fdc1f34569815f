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


// Package navd is a durable conversation history store.
//
// Every message is appended to a flat, newline-delimited log (package
// logstore) and addressed afterwards by its byte offset and length. A BadgerDB
// index (package storage/badger) maps entry IDs and timestamps to those
// locators and records a digest of each text so corruption is detected on
// read. Embeddings are generated in the background by the ingestion pipeline
// using a local Ollama model or an OpenAI-compatible API.
//
// Basic usage:
//
//	mem, err := navd.Open("/var/lib/navd", navd.WithAIConfig(ai.NewConfig(
//		ai.WithProvider(ai.ProviderOpenAI),
//		ai.WithHost("https://api.openai.com/v1"),
//		ai.WithModel("text-embedding-3-small"),
//		ai.WithDimensions(1536),
//	)))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer mem.Close()
//
//	entries, err := mem.Add(ctx, []string{"hello"}, nil)
package navd
