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


package ingestion

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/storage"
)

// EmbeddingsProcessor is the checkpoint name used by the embedding processor.
const EmbeddingsProcessor = "embeddings"

// checkpointScanSize bounds each index scan while advancing the checkpoint.
const checkpointScanSize = 256

// embeddingProcessor generates embeddings for indexed entries.
type embeddingProcessor struct {
	entries     storage.EntryRepository
	checkpoints storage.CheckpointRepository
	reader      TextReader
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger

	embedderMu sync.RWMutex
	embedder   ai.Embedder

	// mu serializes checkpoint updates.
	mu sync.Mutex
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(p *Pipeline) *embeddingProcessor {
	return &embeddingProcessor{
		entries:     p.entries,
		checkpoints: p.checkpoints,
		embedder:    p.embedder,
		reader:      p.reader,
		maxAttempts: p.maxRetries + 1,
		retryDelay:  p.retryDelay,
		logger:      p.logger.With("processor", EmbeddingsProcessor),
	}
}

func (ep *embeddingProcessor) currentEmbedder() ai.Embedder {
	ep.embedderMu.RLock()
	defer ep.embedderMu.RUnlock()
	return ep.embedder
}

func (ep *embeddingProcessor) setEmbedder(embedder ai.Embedder) {
	ep.embedderMu.Lock()
	ep.embedder = embedder
	ep.embedderMu.Unlock()
}

// readText reads an entry's text from the log and verifies its digest.
// The returned text has the record delimiter removed.
func (ep *embeddingProcessor) readText(entry *core.Entry) (string, error) {
	raw, err := ep.reader.Read(entry.Offset, entry.Length)
	if err != nil {
		return "", err
	}
	return core.CheckText(entry, raw)
}

// process generates embeddings for the specified entries. Entries that are
// already embedded are skipped; entries whose text cannot be read or fails
// digest verification are logged and skipped.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	found, err := ep.entries.GetEntries(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving entries", "err", err)
		return err
	}

	var (
		pending []*core.Entry
		texts   []string
	)
	for _, entry := range found {
		if entry.Embedded() {
			continue
		}
		text, err := ep.readText(entry)
		if err != nil {
			ep.logger.Error("skipping unreadable entry", "id", entry.Id, "err", err)
			continue
		}
		pending = append(pending, entry)
		texts = append(texts, text)
	}
	if len(pending) == 0 {
		return nil
	}

	ep.logger.Debug("generating embeddings", "entries", len(texts))
	embedder := ep.currentEmbedder()
	var vectors [][]float32
	err = RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = embedder.EmbedTexts(ctx, texts)
		if embedErr != nil {
			return embedErr
		}
		if checkErr := ai.CheckBatch(texts, vectors, embedder.Dimensions()); checkErr != nil {
			return Permanent(checkErr)
		}
		return nil
	}, ep.maxAttempts, ep.retryDelay)
	if err != nil {
		ep.logger.Error("error generating embeddings", "entries", len(texts), "err", err)
		return err
	}

	for i := range vectors {
		pending[i].Vector = vectors[i]
	}
	if _, err := ep.entries.UpdateEntries(ctx, pending...); err != nil {
		return err
	}

	ep.logger.Info("embedded entries", "entries", len(pending))
	return nil
}

// checkpoint advances the checkpoint across every contiguous embedded entry
// after the current one. Entries that failed stay above the checkpoint so a
// restart finds them again.
func (ep *embeddingProcessor) checkpoint(ctx context.Context) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	current, err := ep.checkpoints.LoadCheckpoint(ctx, EmbeddingsProcessor)
	if err != nil {
		return err
	}
	if current == nil {
		current = &core.Checkpoint{ProcessorType: EmbeddingsProcessor}
	}

	last := current.LastID
scan:
	for {
		batch, err := ep.entries.GetEntriesAfter(ctx, last, checkpointScanSize)
		if err != nil {
			return err
		}
		for _, entry := range batch {
			if !entry.Embedded() {
				break scan
			}
			last = entry.Id
		}
		if len(batch) < checkpointScanSize {
			break
		}
	}

	if last == current.LastID {
		return nil
	}
	current.LastID = last
	ep.logger.Debug("advancing checkpoint", "last_id", last)
	return ep.checkpoints.SaveCheckpoint(ctx, current)
}

// pending lists entries after the checkpoint that have no vector.
func (ep *embeddingProcessor) pending(ctx context.Context) ([]core.ID, error) {
	current, err := ep.checkpoints.LoadCheckpoint(ctx, EmbeddingsProcessor)
	if err != nil {
		return nil, err
	}
	var after core.ID
	if current != nil {
		after = current.LastID
	}

	entries, err := ep.entries.GetEntriesAfter(ctx, after, 0)
	if err != nil {
		return nil, err
	}
	var ids []core.ID
	for _, entry := range entries {
		if !entry.Embedded() {
			ids = append(ids, entry.Id)
		}
	}
	return ids, nil
}
