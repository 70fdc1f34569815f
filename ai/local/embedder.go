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


package local

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/navd/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Loader initializes the model and returns an embedder backed by it.
// It may be slow: loading weights or downloading the model happens here.
type Loader func(ctx context.Context) (embeddings.Embedder, error)

// Embedder generates embeddings with a locally served model.
//
// The model is initialized on first use. Concurrent callers arriving before
// the model is ready wait for the same initialization. A failed
// initialization is returned to every waiter and retried on the next call.
type Embedder struct {
	load   Loader
	dims   int
	logger *slog.Logger

	mu       sync.Mutex
	model    embeddings.Embedder
	inflight *initCall
}

type initCall struct {
	done  chan struct{}
	model embeddings.Embedder
	err   error
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder for the Ollama server at config.Host.
// Nothing is contacted until the first embedding request.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewEmbedderWithLoader(ollamaLoader(config), config.Dimensions, nil), nil
}

// NewEmbedderWithLoader creates an embedder that initializes its model with
// load. A nil logger uses slog.Default().
func NewEmbedderWithLoader(load Loader, dims int, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		load:   load,
		dims:   dims,
		logger: logger.With("component", "local-embedder"),
	}
}

func ollamaLoader(config *ai.Config) Loader {
	host := config.Host
	model := config.Model
	batchSize := config.BatchSize
	pull := config.PullModel
	dims := config.Dimensions

	return func(ctx context.Context) (embeddings.Embedder, error) {
		opts := []ollama.Option{
			ollama.WithServerURL(host),
			ollama.WithModel(model),
		}
		if pull {
			opts = append(opts, ollama.WithPullModel())
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		embedder, err := embeddings.NewEmbedder(llm,
			embeddings.WithStripNewLines(true),
			embeddings.WithBatchSize(batchSize),
		)
		if err != nil {
			return nil, err
		}

		// The first request loads (and if enabled, pulls) the model.
		probe, err := embedder.EmbedQuery(ctx, "warmup")
		if err != nil {
			return nil, err
		}
		if len(probe) != dims {
			return nil, fmt.Errorf("model %s produces %d dimensions, configured for %d", model, len(probe), dims)
		}
		return embedder, nil
	}
}

// Ready reports whether the model has been initialized.
func (e *Embedder) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model != nil
}

func (e *Embedder) Dimensions() int {
	return e.dims
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("embedding batch", "count", len(texts))

	model, err := e.getModel(ctx)
	if err != nil {
		e.logger.Error("model initialization failed", "count", len(texts), "err", err)
		return nil, ai.EmbeddingError(err)
	}

	batch := append([]string(nil), texts...)
	vectors, err := model.EmbedDocuments(ctx, batch)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, ai.EmbeddingError(err)
	}
	if err := ai.CheckBatch(texts, vectors, e.dims); err != nil {
		return nil, err
	}

	e.logger.Debug("embedding batch complete", "vectors", len(vectors))
	return vectors, nil
}

// getModel returns the initialized model, starting or joining the
// initialization if needed. ctx bounds only this caller's wait.
func (e *Embedder) getModel(ctx context.Context) (embeddings.Embedder, error) {
	e.mu.Lock()
	if e.model != nil {
		model := e.model
		e.mu.Unlock()
		return model, nil
	}
	call := e.inflight
	if call == nil {
		e.logger.Info("initializing local model (first call may download it)")
		call = &initCall{done: make(chan struct{})}
		e.inflight = call
		go e.initialize(call)
	}
	e.mu.Unlock()

	select {
	case <-call.done:
		return call.model, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Embedder) initialize(call *initCall) {
	call.model, call.err = e.load(context.Background())

	e.mu.Lock()
	if call.err == nil {
		e.model = call.model
		e.logger.Info("local model ready")
	}
	e.inflight = nil
	e.mu.Unlock()

	close(call.done)
}
