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


package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/storage"
)

// EntryRepository implements storage.EntryRepository for BadgerDB.
type EntryRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.EntryRepository = (*EntryRepository)(nil)

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(backend *Backend) (*EntryRepository, error) {
	idSeq, err := backend.GetSequence(entryIDSeq)
	if err != nil {
		return nil, err
	}

	return &EntryRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *EntryRepository) Close() error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.idSeq.Release()
}

// AddEntries adds one or more entries to the index.
func (r *EntryRepository) AddEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := core.ValidateEntry(entry); err != nil {
			return nil, err
		}
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, entry := range entries {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			entry.Id = core.ID(nextID)
			entry.InsertedAt = now
			entry.UpdatedAt = now

			if err := tx.Set(makeEntryKey(entry.Id), storage.MarshalEntry(entry)); err != nil {
				return err
			}
			dateKey := makeEntryDateKey(entry.Timestamp, entry.Id)
			if err := tx.Set(dateKey, storage.MarshalID(entry.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateEntries updates existing entries.
func (r *EntryRepository) UpdateEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			key := makeEntryKey(entry.Id)

			old, err := r.readEntry(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: id %d", storage.ErrNotFound, entry.Id)
			}

			entry.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
			if err := tx.Set(key, storage.MarshalEntry(entry)); err != nil {
				return err
			}

			if !old.Timestamp.Equal(entry.Timestamp) {
				if err := tx.Delete(makeEntryDateKey(old.Timestamp, old.Id)); err != nil {
					return err
				}
				dateKey := makeEntryDateKey(entry.Timestamp, entry.Id)
				if err := tx.Set(dateKey, storage.MarshalID(entry.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry retrieves a single entry by ID.
func (r *EntryRepository) GetEntry(ctx context.Context, id core.ID) (*core.Entry, error) {
	var result *core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readEntry(tx, makeEntryKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("%w: id %d", storage.ErrNotFound, id)
		}
		return nil
	}, false)
	return result, err
}

// GetEntries retrieves multiple entries by their IDs.
func (r *EntryRepository) GetEntries(ctx context.Context, ids ...core.ID) ([]*core.Entry, error) {
	var result []*core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entry, err := r.readEntry(tx, makeEntryKey(id))
			if err != nil {
				return err
			}
			if entry != nil {
				result = append(result, entry)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetEntriesByDateRange retrieves entries with start <= Timestamp < end.
func (r *EntryRepository) GetEntriesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Entry, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", storage.ErrInvalidQuery, end, start)
	}

	var results []*core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialEntryDateKey(start)
		endKey := makePartialEntryDateKey(end)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryDatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if bytes.Compare(iter.Item().Key(), endKey) >= 0 {
				break
			}
			entry, err := r.readIndexed(tx, iter.Item())
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentEntries retrieves the N most recent entries, ordered by timestamp descending.
func (r *EntryRepository) GetRecentEntries(ctx context.Context, limit int) ([]*core.Entry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storage.ErrInvalidQuery, limit)
	}

	var results []*core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(entryDatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the last possible key with this prefix
		startKey := append([]byte(entryDatePrefix), bytes.Repeat([]byte{0xff}, 16)...)

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			entry, err := r.readIndexed(tx, iter.Item())
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetEntriesAfter retrieves entries with ID > after in ascending ID order.
func (r *EntryRepository) GetEntriesAfter(ctx context.Context, after core.ID, limit int) ([]*core.Entry, error) {
	var results []*core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeEntryKey(after)); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			id, ok := entryIDFromKey(item.Key())
			if !ok || id <= after {
				continue
			}
			var entry *core.Entry
			if err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalEntry(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, entry)
		}
		return nil
	}, false)

	return results, err
}

// readEntry reads an entry from the transaction. Returns nil, nil if the key
// does not exist.
func (r *EntryRepository) readEntry(tx *badger.Txn, key []byte) (*core.Entry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.Entry
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		entry, unmarshalErr = storage.UnmarshalEntry(val)
		return unmarshalErr
	})
	return entry, err
}

// readIndexed resolves a date index item to its entry.
func (r *EntryRepository) readIndexed(tx *badger.Txn, item *badger.Item) (*core.Entry, error) {
	var id core.ID
	if err := item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return nil, err
	}
	return r.readEntry(tx, makeEntryKey(id))
}
