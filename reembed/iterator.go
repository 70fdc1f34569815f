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

	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/storage"
)

const (
	// DefaultBatchSize is the default number of entries fetched per page.
	DefaultBatchSize = 100
)

// EntryIterator pages through all indexed entries in ID order.
type EntryIterator struct {
	repo      storage.EntryRepository
	batchSize int
}

// NewEntryIterator creates a new entry iterator. A batchSize <= 0 uses
// DefaultBatchSize.
func NewEntryIterator(repo storage.EntryRepository, batchSize int) *EntryIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EntryIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with successive pages of entries. Only one page is held in
// memory at a time. Iteration stops at the first error from fn, and context
// cancellation is checked between pages.
func (it *EntryIterator) ForEach(ctx context.Context, fn func([]*core.Entry) error) error {
	var after core.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.repo.GetEntriesAfter(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		after = page[len(page)-1].Id

		if err := fn(page); err != nil {
			return err
		}
		if len(page) < it.batchSize {
			return nil
		}
	}
}

// Count returns the number of indexed entries.
func (it *EntryIterator) Count(ctx context.Context) (int, error) {
	total := 0
	err := it.ForEach(ctx, func(page []*core.Entry) error {
		total += len(page)
		return nil
	})
	return total, err
}
