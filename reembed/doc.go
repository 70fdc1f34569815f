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


// Package reembed regenerates embeddings for every indexed entry, typically
// after switching embedding models or providers.
//
// Entries are paged out of the index in ID order, their text is read back
// from the log and verified against the recorded digest, and the new vectors
// replace the old ones batch by batch. Embedding calls are retried with
// exponential backoff. Progress is written to an io.Writer.
package reembed
