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
	"fmt"
	"testing"

	"github.com/poiesic/navd/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryIterator_Pages(t *testing.T) {
	repo, store := setupTest(t)
	var texts []string
	for i := 0; i < 7; i++ {
		texts = append(texts, fmt.Sprintf("entry %d", i))
	}
	added := addEntries(t, repo, store, texts...)

	var sizes []int
	var seen []core.ID
	err := NewEntryIterator(repo, 3).ForEach(context.Background(), func(page []*core.Entry) error {
		sizes = append(sizes, len(page))
		for _, entry := range page {
			seen = append(seen, entry.Id)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
	require.Len(t, seen, 7)
	for i, entry := range added {
		assert.Equal(t, entry.Id, seen[i])
	}
}

func TestEntryIterator_ExactMultiple(t *testing.T) {
	repo, store := setupTest(t)
	addEntries(t, repo, store, "a", "b", "c", "d")

	calls := 0
	err := NewEntryIterator(repo, 2).ForEach(context.Background(), func(page []*core.Entry) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestEntryIterator_Empty(t *testing.T) {
	repo, _ := setupTest(t)

	called := false
	err := NewEntryIterator(repo, 10).ForEach(context.Background(), func(page []*core.Entry) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)

	count, err := NewEntryIterator(repo, 10).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEntryIterator_StopsOnError(t *testing.T) {
	repo, store := setupTest(t)
	addEntries(t, repo, store, "a", "b", "c")

	boom := errors.New("boom")
	calls := 0
	err := NewEntryIterator(repo, 1).ForEach(context.Background(), func(page []*core.Entry) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestEntryIterator_ContextCanceled(t *testing.T) {
	repo, store := setupTest(t)
	addEntries(t, repo, store, "a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewEntryIterator(repo, 1).ForEach(ctx, func(page []*core.Entry) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewEntryIterator_DefaultBatchSize(t *testing.T) {
	repo, _ := setupTest(t)
	assert.Equal(t, DefaultBatchSize, NewEntryIterator(repo, 0).batchSize)
}

func TestEntryIterator_Count(t *testing.T) {
	repo, store := setupTest(t)
	addEntries(t, repo, store, "a", "b", "c", "d", "e")

	count, err := NewEntryIterator(repo, 2).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
