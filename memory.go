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


package navd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/ingestion"
	"github.com/poiesic/navd/logstore"
	"github.com/poiesic/navd/metrics"
	"github.com/poiesic/navd/reembed"
	"github.com/poiesic/navd/storage"
	"github.com/poiesic/navd/storage/badger"
)

// IndexDir is the directory under the data directory that holds the index.
const IndexDir = "index"

// Record is an indexed entry together with its text.
type Record struct {
	*core.Entry
	Text string
}

// Memory is a conversation history store. Text goes to the append-only log;
// locators, digests and embeddings go to the index.
type Memory struct {
	store       *logstore.Store
	backend     *badger.Backend
	entries     storage.EntryRepository
	checkpoints storage.CheckpointRepository
	embedder    ai.Embedder
	pipeline    *ingestion.Pipeline
	logger      *slog.Logger

	// mu orders appends with their index inserts so IDs follow log order.
	// It also guards embedder and closed.
	mu     sync.Mutex
	closed bool
}

// Open opens or creates a Memory in dir. Entries left unembedded by a previous
// process are resubmitted to the ingestion pipeline.
func Open(dir string, opts ...Option) (*Memory, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	embedder := o.embedder
	if embedder == nil {
		var err error
		embedder, err = NewEmbedder(o.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	sinks := append([]logstore.EventSink{logstore.NewSlogSink(o.logger)}, o.sinks...)
	if o.registerer != nil {
		sinks = append(sinks, metrics.NewSink(o.registerer))
	}
	store, err := logstore.Open(dir,
		logstore.WithEventSink(logstore.MultiSink(sinks...)),
		logstore.WithSyncOnAppend(o.syncOnAppend))
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackendWithLogger(filepath.Join(dir, IndexDir), false, o.logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	entries, err := badger.NewEntryRepository(backend)
	if err != nil {
		backend.Close()
		store.Close()
		return nil, err
	}
	checkpoints := badger.NewCheckpointRepository(backend)

	pipelineOpts := append([]ingestion.Option{ingestion.WithLogger(o.logger)}, o.pipelineOptions...)
	pipeline, err := ingestion.NewPipeline(entries, checkpoints, embedder, store, pipelineOpts...)
	if err != nil {
		entries.Close()
		backend.Close()
		store.Close()
		return nil, err
	}

	m := &Memory{
		store:       store,
		backend:     backend,
		entries:     entries,
		checkpoints: checkpoints,
		embedder:    embedder,
		pipeline:    pipeline,
		logger:      o.logger.With("component", "memory"),
	}

	if !o.skipResume {
		if _, err := pipeline.ResumePending(context.Background()); err != nil {
			m.logger.Error("error resuming pending embeddings", "err", err)
		}
	}

	return m, nil
}

// Add appends texts to the log, indexes them and schedules them for
// embedding. Embedding happens in the background; use Flush to wait for it.
func (m *Memory) Add(ctx context.Context, texts []string, opts *AddOptions) ([]*core.Entry, error) {
	if opts == nil {
		opts = &AddOptions{}
	}
	speaker := opts.Speaker
	if speaker == 0 {
		speaker = core.SpeakerTypeHuman
	}
	if err := core.ValidateSpeakerType(speaker); err != nil {
		return nil, err
	}
	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	if !core.IsValidTimestamp(timestamp) {
		return nil, core.ErrInvalidTimestamp
	}

	entries := make([]*core.Entry, len(texts))
	for i, text := range texts {
		if err := core.ValidateText(text); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		entries[i] = &core.Entry{
			Speaker:   speaker,
			Digest:    core.DigestOf(text),
			Timestamp: timestamp,
			Metadata:  maps.Clone(opts.Metadata),
		}
	}
	if len(entries) == 0 {
		return entries, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrMemoryClosed
	}
	for i, text := range texts {
		loc, err := m.store.Append(text)
		if err != nil {
			m.mu.Unlock()
			if i > 0 {
				m.logger.Warn("batch partially appended to log but not indexed", "appended", i, "total", len(texts))
			}
			return nil, err
		}
		entries[i].Offset = loc.Offset
		entries[i].Length = loc.Length
	}
	added, err := m.entries.AddEntries(ctx, entries...)
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("error indexing appended entries", "entries", len(entries), "err", err)
		return nil, err
	}

	ids := make([]core.ID, len(added))
	for i, entry := range added {
		ids[i] = entry.Id
	}
	if err := m.pipeline.Submit(ids...); err != nil {
		// Entries stay pending and are picked up on the next Open.
		m.logger.Error("error scheduling embeddings", "err", err)
	}

	return added, nil
}

// Get returns the entry with the given ID and its text.
func (m *Memory) Get(ctx context.Context, id core.ID) (*Record, error) {
	entry, err := m.entries.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.resolve(entry)
}

// Recent returns up to n entries, most recent first.
func (m *Memory) Recent(ctx context.Context, n int) ([]*Record, error) {
	entries, err := m.entries.GetRecentEntries(ctx, n)
	if err != nil {
		return nil, err
	}
	return m.resolveAll(entries)
}

// Range returns entries with start <= Timestamp < end, oldest first.
func (m *Memory) Range(ctx context.Context, start, end time.Time) ([]*Record, error) {
	entries, err := m.entries.GetEntriesByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return m.resolveAll(entries)
}

func (m *Memory) resolveAll(entries []*core.Entry) ([]*Record, error) {
	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		record, err := m.resolve(entry)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// resolve reads an entry's text from the log and verifies its digest.
func (m *Memory) resolve(entry *core.Entry) (*Record, error) {
	raw, err := m.store.Read(entry.Offset, entry.Length)
	if err != nil {
		return nil, err
	}
	text, err := core.CheckText(entry, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	return &Record{Entry: entry, Text: text}, nil
}

// Position returns the current end of the log in bytes.
func (m *Memory) Position() (int64, error) {
	return m.store.Position()
}

// Embedder returns the embedder used by the ingestion pipeline.
func (m *Memory) Embedder() ai.Embedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedder
}

// Pending returns the IDs of entries still waiting for an embedding.
func (m *Memory) Pending(ctx context.Context) ([]core.ID, error) {
	return m.pipeline.Pending(ctx)
}

// Reembed regenerates the vector of every entry with embedder, or with the
// Memory's own embedder if nil. A non-nil embedder also replaces the Memory's
// embedder, so entries added afterwards get vectors from the same model.
// Scheduled embeddings finish first. Progress lines are written to progress if
// it is non-nil.
func (m *Memory) Reembed(ctx context.Context, embedder ai.Embedder, config *reembed.Config, progress io.Writer) (*reembed.Summary, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrMemoryClosed
	}
	if embedder == nil {
		embedder = m.embedder
	} else if embedder != m.embedder {
		if err := m.pipeline.SetEmbedder(embedder); err != nil {
			m.mu.Unlock()
			return nil, err
		}
		m.embedder = embedder
		m.logger.Info("switched embedder", "dimensions", embedder.Dimensions())
	}
	m.mu.Unlock()
	m.pipeline.Wait()

	r, err := reembed.NewReembedder(m.entries, m.store, embedder, config, progress)
	if err != nil {
		return nil, err
	}
	summary, err := r.Run(ctx)
	if err != nil {
		m.logger.Error("reembedding stopped", "err", err)
		return summary, err
	}
	m.logger.Info("reembedding complete", "embedded", summary.Embedded, "skipped", summary.Skipped)
	return summary, nil
}

// Flush waits for scheduled embeddings to finish and syncs the log to disk.
func (m *Memory) Flush() error {
	m.pipeline.Wait()
	return m.store.Sync()
}

// Close waits for in-flight embeddings, then closes the index and the log.
// Every component is closed even if an earlier one fails; the first error is
// returned.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMemoryClosed
	}
	m.closed = true
	m.mu.Unlock()

	m.pipeline.Release()

	var firstErr error
	record := func(what string, err error) {
		if err == nil {
			return
		}
		m.logger.Error("error closing "+what, "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	record("entry repository", m.entries.Close())
	record("index", m.backend.Close())
	record("log store", m.store.Close())
	return firstErr
}
