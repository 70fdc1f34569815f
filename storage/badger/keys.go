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


package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/navd/core"
)

// Key prefixes for different data types
const (
	entryPrefix     = "ent:"
	entryDatePrefix = "entd:"
	entryIDSeq      = "entseq"
)

// makeEntryKey generates a key for an entry by ID.
// IDs are big-endian so keys sort in ID order.
func makeEntryKey(id core.ID) []byte {
	buf := make([]byte, len(entryPrefix)+8)
	offset := copy(buf, entryPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// entryIDFromKey extracts the ID from an entry key.
func entryIDFromKey(key []byte) (core.ID, bool) {
	if len(key) != len(entryPrefix)+8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[len(entryPrefix):])), true
}

// makeEntryDateKey generates a composite key for the date index.
// Format: prefix|timestamp|id
func makeEntryDateKey(timestamp time.Time, id core.ID) []byte {
	buf := make([]byte, len(entryDatePrefix)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, entryDatePrefix)
	binary.BigEndian.PutUint64(buf[offset:], dateKeyTime(timestamp))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialEntryDateKey generates a partial key for date range queries.
// Format: prefix|timestamp
func makePartialEntryDateKey(timestamp time.Time) []byte {
	buf := make([]byte, len(entryDatePrefix)+8)
	offset := copy(buf, entryDatePrefix)
	binary.BigEndian.PutUint64(buf[offset:], dateKeyTime(timestamp))
	return buf
}

// dateKeyTime encodes a timestamp as microseconds with the sign bit flipped,
// so big-endian byte order matches time order on both sides of 1970.
func dateKeyTime(timestamp time.Time) uint64 {
	return uint64(timestamp.UnixMicro()) ^ (1 << 63)
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
