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
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/navd/ai/mock"
	"github.com/poiesic/navd/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchProcessor_Process(t *testing.T) {
	repo, store := setupTest(t)
	ctx := context.Background()
	added := addEntries(t, repo, store, "first", "second\nline")

	embedder := mock.NewMockEmbedderWithDimensions(4)
	bp := NewBatchProcessor(repo, store, embedder, 2, time.Millisecond)

	result, err := bp.Process(ctx, added)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Embedded: 2}, result)
	assert.Equal(t, []string{"first", "second\nline"}, embedder.Texts())

	got, err := repo.GetEntry(ctx, added[1].Id)
	require.NoError(t, err)
	assert.Equal(t, mock.GenerateDeterministicVector("second\nline", 4), got.Vector)
}

func TestBatchProcessor_SkipsCorruptEntries(t *testing.T) {
	repo, store := setupTest(t)
	added := addEntries(t, repo, store, "good", "bad")
	added[1].Digest = core.DigestOf("tampered")

	embedder := mock.NewMockEmbedderWithDimensions(4)
	result, err := NewBatchProcessor(repo, store, embedder, 0, 0).Process(context.Background(), added)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Embedded: 1, Skipped: 1}, result)
	assert.Equal(t, []string{"good"}, embedder.Texts())
}

func TestBatchProcessor_RetriesThenFails(t *testing.T) {
	repo, store := setupTest(t)
	added := addEntries(t, repo, store, "x")

	embedder := mock.NewMockEmbedderWithDimensions(4)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("unavailable")
	}

	_, err := NewBatchProcessor(repo, store, embedder, 2, time.Millisecond).Process(context.Background(), added)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, 3, embedder.CallCount())
}

func TestBatchProcessor_WrongDimensions(t *testing.T) {
	repo, store := setupTest(t)
	added := addEntries(t, repo, store, "x")

	embedder := mock.NewMockEmbedderWithDimensions(4)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	_, err := NewBatchProcessor(repo, store, embedder, 5, time.Millisecond).Process(context.Background(), added)
	require.Error(t, err)
	assert.Equal(t, 1, embedder.CallCount(), "contract violations are not retried")
}

func TestBatchProcessor_Normalize(t *testing.T) {
	repo, store := setupTest(t)
	added := addEntries(t, repo, store, "x")

	embedder := mock.NewMockEmbedderWithDimensions(2)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{3, 4}}, nil
	}
	bp := NewBatchProcessor(repo, store, embedder, 0, 0)
	bp.normalize = true

	_, err := bp.Process(context.Background(), added)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, added[0].Vector, 1e-6)
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{"unit vector unchanged", []float32{1, 0, 0}, []float32{1, 0, 0}},
		{"scale", []float32{3, 4}, []float32{0.6, 0.8}},
		{"negative values", []float32{-1, 1}, []float32{-1 / float32(math.Sqrt2), 1 / float32(math.Sqrt2)}},
		{"zero vector", []float32{0, 0}, []float32{0, 0}},
		{"empty", []float32{}, []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Len(t, result, len(tt.expected))
			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
		})
	}

	input := []float32{3, 4}
	NormalizeVector(input)
	assert.Equal(t, []float32{3, 4}, input, "input must not be modified")
}
