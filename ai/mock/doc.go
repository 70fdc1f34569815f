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


// Package mock provides test doubles for the ai package.
//
// MockEmbedder returns deterministic unit vectors derived from a hash of the
// input text, so identical texts always embed identically and tests need no
// model or network access.
//
//	embedder := mock.NewMockEmbedderWithDimensions(8)
//	vectors, err := embedder.EmbedTexts(ctx, []string{"a", "b"})
//
// Behavior can be overridden per test:
//
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("unavailable")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
