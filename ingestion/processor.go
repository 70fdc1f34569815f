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

	"github.com/poiesic/navd/core"
)

// TextReader reads raw bytes back from the append-only log.
// *logstore.Store satisfies it.
type TextReader interface {
	Read(offset, length int64) (string, error)
}

// processor enriches indexed entries.
type processor interface {
	// process enriches the entries identified by the given IDs.
	process(ctx context.Context, ids ...core.ID) error

	// checkpoint advances the processor's persisted progress.
	checkpoint(ctx context.Context) error
}
