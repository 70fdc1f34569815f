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


package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedding indicates that embedding generation failed. It covers both
	// local model and remote API failures.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInvalidConfig indicates an AI configuration failed validation.
	ErrInvalidConfig = errors.New("invalid ai config")
)

// EmbeddingError wraps err so that it matches ErrEmbedding. Errors that
// already match ErrEmbedding are returned unchanged.
func EmbeddingError(err error) error {
	if err == nil || errors.Is(err, ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEmbedding, err)
}

// CheckBatch verifies that vectors is a complete result for texts: one
// vector per text, each with exactly dims elements.
func CheckBatch(texts []string, vectors [][]float32, dims int) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: expected %d vectors, received %d", ErrEmbedding, len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrEmbedding, i, len(v), dims)
		}
	}
	return nil
}
