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


// Package storage provides the index layer that sits beside the append-only log.
//
// The log holds the text of every conversation entry. This package stores
// what is needed to find and trust that text later: the locator (offset and
// length), a content digest, timestamps, metadata and, once the ingestion
// pipeline has run, an embedding vector.
//
// # Architecture
//
//   - EntryRepository: entries keyed by ID with a timestamp index
//   - CheckpointRepository: progress markers for background processors
//
// Values are encoded with mus-go (see serialization.go). Every encoded value
// starts with a version number so the layout can evolve.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/index", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewEntryRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, checkpoints, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
