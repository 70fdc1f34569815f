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
	"io"
	"time"

	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/ingestion"
	"github.com/poiesic/navd/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of entries embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxRetries is the number of retries for a failed embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Normalize scales every vector to unit length before storing it
	Normalize bool

	// OnlyMissing limits the pass to entries without a vector
	OnlyMissing bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary describes a finished pass.
type Summary struct {
	Total    int
	Embedded int
	Skipped  int
	Elapsed  time.Duration
}

// Reembedder regenerates embeddings for every indexed entry.
type Reembedder struct {
	repo      storage.EntryRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *EntryIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.EntryRepository, reader ingestion.TextReader, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrEntryRepositoryRequired
	}
	if reader == nil {
		return nil, ErrTextReaderRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	processor := NewBatchProcessor(repo, reader, embedder, config.MaxRetries, config.RetryDelay)
	processor.normalize = config.Normalize

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: processor,
		iterator:  NewEntryIterator(repo, config.BatchSize),
	}, nil
}

// Run embeds every entry with the configured embedder. A failed batch stops
// the pass; batches already stored keep their new vectors.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	total, err := r.iterator.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	summary := &Summary{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No entries found (0 entries)\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d entries (batch size: %d)\n",
		total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(page []*core.Entry) error {
		batch := page
		if r.config.OnlyMissing {
			batch = batch[:0:0]
			for _, entry := range page {
				if !entry.Embedded() {
					batch = append(batch, entry)
				}
			}
		}

		result, err := r.processor.Process(ctx, batch)
		summary.Embedded += result.Embedded
		summary.Skipped += result.Skipped
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Add(len(page), result.Skipped)
		return nil
	})
	summary.Elapsed = tracker.Elapsed()
	if err != nil {
		return summary, err
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Reembedding complete. Embedded %d of %d entries in %v (%.1f entries/sec)\n",
		summary.Embedded, total, summary.Elapsed.Round(time.Millisecond), float64(total)/summary.Elapsed.Seconds())

	return summary, nil
}
