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


package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poiesic/navd/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

// newTestServer serves /v1/embeddings. respond builds the vectors for a request.
func newTestServer(t *testing.T, respond func(req embeddingRequest) ([][]float32, int)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vectors, status := respond(req)
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "boom"}})
			return
		}
		resp := embeddingResponse{Object: "list", Model: req.Model}
		for i, v := range vectors {
			resp.Data = append(resp.Data, embeddingData{Object: "embedding", Embedding: v, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// positional returns vectors whose first element is the input's position.
func positional(dims int) func(req embeddingRequest) ([][]float32, int) {
	return func(req embeddingRequest) ([][]float32, int) {
		out := make([][]float32, len(req.Input))
		for i := range req.Input {
			v := make([]float32, dims)
			v[0] = float32(len(req.Input[i]))
			out[i] = v
		}
		return out, http.StatusOK
	}
}

func testConfig(host string, dims int) *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderOpenAI),
		ai.WithHost(host),
		ai.WithModel("test-embed"),
		ai.WithDimensions(dims),
		ai.WithBatchSize(2),
	)
}

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	_, err := NewEmbedder(ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithModel("")))
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
}

func TestEmbedTexts_PreservesOrderAcrossBatches(t *testing.T) {
	srv, calls := newTestServer(t, positional(4))
	embedder, err := NewEmbedder(testConfig(srv.URL, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, embedder.Dimensions())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := embedder.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		assert.Len(t, v, 4)
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
	assert.Equal(t, int32(3), calls.Load(), "batch size 2 splits five texts into three requests")
}

func TestEmbedText(t *testing.T) {
	srv, _ := newTestServer(t, positional(3))
	embedder, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)

	v, err := embedder.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0, 0}, v)
}

func TestEmbedTexts_Empty(t *testing.T) {
	srv, calls := newTestServer(t, positional(3))
	embedder, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, int32(0), calls.Load())
}

func TestEmbedTexts_ServerError(t *testing.T) {
	srv, _ := newTestServer(t, func(req embeddingRequest) ([][]float32, int) {
		return nil, http.StatusInternalServerError
	})
	embedder, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrEmbedding)
	assert.Nil(t, vectors)
}

func TestEmbedTexts_WrongDimensions(t *testing.T) {
	srv, _ := newTestServer(t, positional(2))
	embedder, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrEmbedding)
	assert.Nil(t, vectors, "no partial results")
}
