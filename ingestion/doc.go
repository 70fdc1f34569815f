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


// Package ingestion embeds log entries in the background.
//
// Entries are appended to the log and indexed synchronously by the caller.
// The Pipeline then reads each entry's text back through its locator, checks
// it against the recorded digest, generates an embedding and stores the
// vector in the index. Work runs on an ants worker pool; failures are retried
// with exponential backoff and otherwise logged, never surfaced to the
// writer.
//
// Progress is checkpointed as a low-water mark: every entry with an ID at or
// below the checkpoint has a vector. Pending and ResumePending use it to pick
// up unembedded entries after a restart.
package ingestion
