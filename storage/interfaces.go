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


package storage

import (
	"context"
	"time"

	"github.com/poiesic/navd/core"
)

// EntryRepository indexes conversation entries stored in the append-only log.
// It holds locators, digests, timestamps and vectors; the text itself stays
// in the log. Implementations must be thread-safe.
type EntryRepository interface {
	// AddEntries adds one or more entries to the index.
	// Generates new IDs from a sequence, in argument order.
	// Sets InsertedAt and UpdatedAt.
	// Returns the entries with generated IDs and timestamps populated.
	AddEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error)

	// UpdateEntries updates existing entries.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any entry doesn't exist.
	UpdateEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error)

	// GetEntry retrieves a single entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, id core.ID) (*core.Entry, error)

	// GetEntries retrieves multiple entries by their IDs.
	// Returns only the entries that exist (no error for missing entries).
	GetEntries(ctx context.Context, ids ...core.ID) ([]*core.Entry, error)

	// GetEntriesByDateRange retrieves entries with start <= Timestamp < end,
	// ordered by timestamp.
	GetEntriesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Entry, error)

	// GetRecentEntries retrieves up to limit entries, most recent first.
	GetRecentEntries(ctx context.Context, limit int) ([]*core.Entry, error)

	// GetEntriesAfter retrieves up to limit entries with ID > after,
	// in ascending ID order. A limit <= 0 means no limit.
	GetEntriesAfter(ctx context.Context, after core.ID, limit int) ([]*core.Entry, error)

	// Close releases resources held by the repository.
	Close() error
}

// CheckpointRepository persists background processor progress.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)
}
