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
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/storage"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultBatchSize  = 32
)

// Pipeline embeds indexed entries asynchronously on a worker pool.
type Pipeline struct {
	entries       storage.EntryRepository
	checkpoints   storage.CheckpointRepository
	embedder      ai.Embedder
	reader        TextReader
	embeddingPool *ants.Pool
	embeddingProc *embeddingProcessor
	maxRetries    int
	retryDelay    time.Duration
	batchSize     int
	logger        *slog.Logger
	wg            sync.WaitGroup

	// mu orders Submit's wg.Add against Release.
	mu       sync.RWMutex
	released bool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMaxRetries sets how many times a failed embedding batch is retried.
// Default is 3; 0 disables retries.
func WithMaxRetries(retries int) Option {
	return func(p *Pipeline) error {
		if retries < 0 {
			retries = 0
		}
		p.maxRetries = retries
		return nil
	}
}

// WithRetryDelay sets the base delay between retries. The delay doubles on
// each attempt. Default is 500ms.
func WithRetryDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay < 0 {
			delay = 0
		}
		p.retryDelay = delay
		return nil
	}
}

// WithBatchSize caps the number of entries embedded by one job.
// Default is 32.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	entries storage.EntryRepository,
	checkpoints storage.CheckpointRepository,
	embedder ai.Embedder,
	reader TextReader,
	opts ...Option,
) (*Pipeline, error) {
	if entries == nil {
		return nil, ErrEntryRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if reader == nil {
		return nil, ErrTextReaderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		entries:       entries,
		checkpoints:   checkpoints,
		embedder:      embedder,
		reader:        reader,
		embeddingPool: embeddingPool,
		maxRetries:    defaultMaxRetries,
		retryDelay:    defaultRetryDelay,
		batchSize:     defaultBatchSize,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Created after options so the processor gets the final config
	p.embeddingProc = newEmbeddingProcessor(p)

	return p, nil
}

// Submit schedules the given entries for embedding. IDs are split into jobs
// of at most the configured batch size. Errors during processing are logged
// and leave the entries pending; they are never returned here.
func (p *Pipeline) Submit(ids ...core.ID) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.released {
		return ErrPipelineReleased
	}

	for start := 0; start < len(ids); start += p.batchSize {
		end := min(start+p.batchSize, len(ids))
		batch := ids[start:end:end]

		p.wg.Add(1)
		err := p.embeddingPool.Submit(func() {
			defer p.wg.Done()
			p.run(batch)
		})
		if err != nil {
			p.wg.Done()
			if errors.Is(err, ants.ErrPoolClosed) {
				return ErrPipelineReleased
			}
			return err
		}
	}
	return nil
}

func (p *Pipeline) run(ids []core.ID) {
	ctx := context.Background()
	if err := p.embeddingProc.process(ctx, ids...); err != nil {
		p.logger.Error("error processing embeddings", "entries", len(ids), "err", err)
		return
	}
	if err := p.embeddingProc.checkpoint(ctx); err != nil {
		p.logger.Error("error applying embedding checkpoint", "err", err)
	}
}

// Pending returns the IDs of entries after the checkpoint that have not been
// embedded yet, in ascending order.
func (p *Pipeline) Pending(ctx context.Context) ([]core.ID, error) {
	return p.embeddingProc.pending(ctx)
}

// ResumePending submits every pending entry and returns how many were
// scheduled.
func (p *Pipeline) ResumePending(ctx context.Context) (int, error) {
	ids, err := p.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	p.logger.Info("resuming pending embeddings", "entries", len(ids))
	return len(ids), p.Submit(ids...)
}

// SetEmbedder replaces the embedder used for jobs that start after the call.
// Jobs already running finish with the previous embedder.
func (p *Pipeline) SetEmbedder(embedder ai.Embedder) error {
	if embedder == nil {
		return ErrEmbedderRequired
	}
	p.embeddingProc.setEmbedder(embedder)
	return nil
}

// Wait blocks until every submitted job has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Release waits for in-flight jobs and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	p.mu.Unlock()

	p.wg.Wait()
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
