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


package reembed

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/logstore"
	"github.com/poiesic/navd/storage"
	"github.com/poiesic/navd/storage/badger"
	"github.com/stretchr/testify/require"
)

// setupTest returns an in-memory index and a log store in a temp dir.
func setupTest(t *testing.T) (storage.EntryRepository, *logstore.Store) {
	t.Helper()
	store, err := logstore.Open(t.TempDir())
	require.NoError(t, err)

	repo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	t.Cleanup(func() {
		repo.Close()
		backend.Close()
		store.Close()
	})
	return repo, store
}

// addEntries appends texts to the log and indexes them.
func addEntries(t *testing.T, repo storage.EntryRepository, store *logstore.Store, texts ...string) []*core.Entry {
	t.Helper()
	entries := make([]*core.Entry, len(texts))
	for i, text := range texts {
		loc, err := store.Append(text)
		require.NoError(t, err)
		entries[i] = &core.Entry{
			Speaker:   core.SpeakerTypeHuman,
			Offset:    loc.Offset,
			Length:    loc.Length,
			Digest:    core.DigestOf(text),
			Timestamp: time.Now().UTC(),
		}
	}
	added, err := repo.AddEntries(context.Background(), entries...)
	require.NoError(t, err)
	return added
}
