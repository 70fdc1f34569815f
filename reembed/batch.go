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
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/ingestion"
	"github.com/poiesic/navd/storage"
)

// BatchResult counts what happened to one batch.
type BatchResult struct {
	Embedded int
	Skipped  int // unreadable or failed digest verification
}

// BatchProcessor embeds a batch of entries and stores the new vectors.
type BatchProcessor struct {
	repo           storage.EntryRepository
	reader         ingestion.TextReader
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	normalize      bool
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: retries after the first failed embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.EntryRepository, reader ingestion.TextReader, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &BatchProcessor{
		repo:           repo,
		reader:         reader,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("component", "reembed"),
	}
}

// Process generates embeddings for a batch of entries and updates them in the
// index. Entries whose text cannot be read or verified are skipped.
func (bp *BatchProcessor) Process(ctx context.Context, entries []*core.Entry) (BatchResult, error) {
	var (
		result  BatchResult
		targets []*core.Entry
		texts   []string
	)
	for _, entry := range entries {
		raw, err := bp.reader.Read(entry.Offset, entry.Length)
		if err == nil {
			var text string
			text, err = core.CheckText(entry, raw)
			if err == nil {
				targets = append(targets, entry)
				texts = append(texts, text)
				continue
			}
		}
		bp.logger.Warn("skipping entry", "id", entry.Id, "err", err)
		result.Skipped++
	}
	if len(targets) == 0 {
		return result, nil
	}

	var vectors [][]float32
	err := ingestion.RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if err := ai.CheckBatch(texts, vectors, bp.embedder.Dimensions()); err != nil {
			return ingestion.Permanent(err)
		}
		return nil
	}, bp.maxRetries+1, bp.retryBaseDelay)
	if err != nil {
		return result, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	for i, entry := range targets {
		if bp.normalize {
			entry.Vector = NormalizeVector(vectors[i])
		} else {
			entry.Vector = vectors[i]
		}
	}

	if _, err := bp.repo.UpdateEntries(ctx, targets...); err != nil {
		return result, fmt.Errorf("failed to update entries: %w", err)
	}
	result.Embedded = len(targets)
	return result, nil
}

// NormalizeVector returns v scaled to unit length. A zero vector is returned
// as a new zero vector.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	scale := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out
}
