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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/ai/mock"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/logstore"
	"github.com/poiesic/navd/storage"
	"github.com/poiesic/navd/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store       *logstore.Store
	entries     storage.EntryRepository
	checkpoints storage.CheckpointRepository
	embedder    *mock.MockEmbedder
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := logstore.Open(t.TempDir())
	require.NoError(t, err)

	entries, checkpoints, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	t.Cleanup(func() {
		entries.Close()
		backend.Close()
		store.Close()
	})

	return &testEnv{
		store:       store,
		entries:     entries,
		checkpoints: checkpoints,
		embedder:    mock.NewMockEmbedderWithDimensions(8),
	}
}

// add appends texts to the log and indexes them.
func (e *testEnv) add(t *testing.T, texts ...string) []core.ID {
	t.Helper()
	var toAdd []*core.Entry
	for _, text := range texts {
		loc, err := e.store.Append(text)
		require.NoError(t, err)
		toAdd = append(toAdd, &core.Entry{
			Speaker:   core.SpeakerTypeHuman,
			Offset:    loc.Offset,
			Length:    loc.Length,
			Digest:    core.DigestOf(text),
			Timestamp: time.Now().UTC(),
		})
	}
	added, err := e.entries.AddEntries(context.Background(), toAdd...)
	require.NoError(t, err)

	ids := make([]core.ID, len(added))
	for i, entry := range added {
		ids[i] = entry.Id
	}
	return ids
}

func (e *testEnv) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithPoolSize(2), WithRetryDelay(time.Millisecond)}, opts...)
	p, err := NewPipeline(e.entries, e.checkpoints, e.embedder, e.store, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func (e *testEnv) lastCheckpoint(t *testing.T) core.ID {
	t.Helper()
	checkpoint, err := e.checkpoints.LoadCheckpoint(context.Background(), EmbeddingsProcessor)
	require.NoError(t, err)
	if checkpoint == nil {
		return 0
	}
	return checkpoint.LastID
}

func TestNewPipeline_RequiredArguments(t *testing.T) {
	env := setupTestEnv(t)

	_, err := NewPipeline(nil, env.checkpoints, env.embedder, env.store)
	assert.ErrorIs(t, err, ErrEntryRepositoryRequired)
	_, err = NewPipeline(env.entries, nil, env.embedder, env.store)
	assert.ErrorIs(t, err, ErrCheckpointRepositoryRequired)
	_, err = NewPipeline(env.entries, env.checkpoints, nil, env.store)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewPipeline(env.entries, env.checkpoints, env.embedder, nil)
	assert.ErrorIs(t, err, ErrTextReaderRequired)
}

func TestPipeline_EmbedsSubmittedEntries(t *testing.T) {
	env := setupTestEnv(t)
	p := env.pipeline(t)
	ctx := context.Background()

	texts := []string{"hello", "multi\nline", "ünïcode"}
	ids := env.add(t, texts...)

	require.NoError(t, p.Submit(ids...))
	p.Wait()

	got, err := env.entries.GetEntries(ctx, ids...)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, entry := range got {
		assert.Equal(t, mock.GenerateDeterministicVector(texts[i], 8), entry.Vector)
	}

	// Text reaches the embedder without the record delimiter.
	assert.ElementsMatch(t, texts, env.embedder.Texts())

	assert.Equal(t, ids[2], env.lastCheckpoint(t))
	pending, err := p.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPipeline_SkipsEmbeddedEntries(t *testing.T) {
	env := setupTestEnv(t)
	p := env.pipeline(t)

	ids := env.add(t, "once")
	require.NoError(t, p.Submit(ids...))
	p.Wait()
	require.NoError(t, p.Submit(ids...))
	p.Wait()

	assert.Equal(t, 1, env.embedder.CallCount())
}

func TestPipeline_BatchSize(t *testing.T) {
	env := setupTestEnv(t)
	p := env.pipeline(t, WithBatchSize(2))

	ids := env.add(t, "a", "b", "c", "d", "e")
	require.NoError(t, p.Submit(ids...))
	p.Wait()

	assert.Equal(t, 3, env.embedder.CallCount())
	assert.Equal(t, ids[4], env.lastCheckpoint(t))
}

func TestPipeline_RetriesTransientFailures(t *testing.T) {
	env := setupTestEnv(t)
	var calls atomic.Int32
	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) < 3 {
			return nil, ai.EmbeddingError(errors.New("connection refused"))
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.GenerateDeterministicVector(text, 8)
		}
		return out, nil
	}
	p := env.pipeline(t, WithMaxRetries(3))

	ids := env.add(t, "flaky")
	require.NoError(t, p.Submit(ids...))
	p.Wait()

	assert.Equal(t, int32(3), calls.Load())
	entry, err := env.entries.GetEntry(context.Background(), ids[0])
	require.NoError(t, err)
	assert.True(t, entry.Embedded())
}

func TestPipeline_FailureLeavesEntriesPending(t *testing.T) {
	env := setupTestEnv(t)
	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, ai.EmbeddingError(errors.New("model not loaded"))
	}
	p := env.pipeline(t, WithMaxRetries(1))

	ids := env.add(t, "a", "b")
	require.NoError(t, p.Submit(ids...))
	p.Wait()

	assert.Equal(t, 2, env.embedder.CallCount())
	assert.Zero(t, env.lastCheckpoint(t))

	pending, err := p.Pending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ids, pending)
}

func TestPipeline_DimensionMismatchIsNotRetried(t *testing.T) {
	env := setupTestEnv(t)
	env.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 2}
		}
		return out, nil
	}
	p := env.pipeline(t, WithMaxRetries(5))

	ids := env.add(t, "short")
	require.NoError(t, p.Submit(ids...))
	p.Wait()

	assert.Equal(t, 1, env.embedder.CallCount())
	entry, err := env.entries.GetEntry(context.Background(), ids[0])
	require.NoError(t, err)
	assert.False(t, entry.Embedded())
}

func TestPipeline_DigestMismatchIsSkipped(t *testing.T) {
	env := setupTestEnv(t)
	p := env.pipeline(t)
	ctx := context.Background()

	ids := env.add(t, "alpha", "beta", "gamma")
	corrupt, err := env.entries.GetEntry(ctx, ids[1])
	require.NoError(t, err)
	corrupt.Digest = core.DigestOf("not beta")
	_, err = env.entries.UpdateEntries(ctx, corrupt)
	require.NoError(t, err)

	require.NoError(t, p.Submit(ids...))
	p.Wait()

	assert.ElementsMatch(t, []string{"alpha", "gamma"}, env.embedder.Texts())
	assert.Equal(t, ids[0], env.lastCheckpoint(t))

	pending, err := p.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{ids[1]}, pending)
}

func TestPipeline_CheckpointIsLowWaterMark(t *testing.T) {
	env := setupTestEnv(t)
	p := env.pipeline(t)

	ids := env.add(t, "first", "second", "third")

	require.NoError(t, p.Submit(ids[1:]...))
	p.Wait()
	assert.Zero(t, env.lastCheckpoint(t), "first entry is still pending")

	require.NoError(t, p.Submit(ids[0]))
	p.Wait()
	assert.Equal(t, ids[2], env.lastCheckpoint(t))
}

func TestPipeline_ResumePending(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	ids := env.add(t, "left", "over")

	p := env.pipeline(t)
	n, err := p.ResumePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	p.Wait()

	assert.Equal(t, ids[1], env.lastCheckpoint(t))

	n, err = p.ResumePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPipeline_SubmitAfterRelease(t *testing.T) {
	env := setupTestEnv(t)
	p, err := NewPipeline(env.entries, env.checkpoints, env.embedder, env.store)
	require.NoError(t, err)
	p.Release()

	err = p.Submit(1)
	assert.ErrorIs(t, err, ErrPipelineReleased)
}

func TestPipeline_SetEmbedder(t *testing.T) {
	env := setupTestEnv(t)
	p := env.pipeline(t)
	ctx := context.Background()

	first := env.add(t, "before")
	require.NoError(t, p.Submit(first...))
	p.Wait()

	replacement := mock.NewMockEmbedderWithDimensions(4)
	require.NoError(t, p.SetEmbedder(replacement))
	assert.ErrorIs(t, p.SetEmbedder(nil), ErrEmbedderRequired)

	second := env.add(t, "after")
	require.NoError(t, p.Submit(second...))
	p.Wait()

	before, err := env.entries.GetEntry(ctx, first[0])
	require.NoError(t, err)
	assert.Len(t, before.Vector, 8)

	after, err := env.entries.GetEntry(ctx, second[0])
	require.NoError(t, err)
	assert.Len(t, after.Vector, 4)
	assert.Equal(t, 1, replacement.CallCount())
}

func TestPipeline_ConcurrentSubmitAndRelease(t *testing.T) {
	env := setupTestEnv(t)
	ids := env.add(t, "a", "b", "c", "d")
	p, err := NewPipeline(env.entries, env.checkpoints, env.embedder, env.store, WithPoolSize(2))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Submit(ids...)
			if err != nil {
				assert.ErrorIs(t, err, ErrPipelineReleased)
			}
		}()
	}
	p.Release()
	wg.Wait()

	assert.ErrorIs(t, p.Submit(ids...), ErrPipelineReleased)
	p.Release()
}
