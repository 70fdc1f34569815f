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


package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for log entries, generated from a database sequence.
type ID uint64

// Digest is a 64-bit content hash used to verify text read back from the log.
type Digest uint64

// DigestOf hashes text using BLAKE2b-64. Identical text always produces the
// same digest.
func DigestOf(text string) Digest {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return Digest(binary.LittleEndian.Uint64(sum))
}

// SpeakerType identifies the source of a conversation entry.
type SpeakerType int

const (
	// SpeakerTypeHuman represents a human user.
	SpeakerTypeHuman SpeakerType = iota + 1
	// SpeakerTypeAI represents an AI assistant.
	SpeakerTypeAI
)

func (s SpeakerType) String() string {
	switch s {
	case SpeakerTypeHuman:
		return "human"
	case SpeakerTypeAI:
		return "ai"
	default:
		return "unknown"
	}
}

// Entry indexes one conversation entry stored in the append-only log.
// The text itself lives in the log at [Offset, Offset+Length); Length
// includes the trailing newline.
type Entry struct {
	Id         ID
	Speaker    SpeakerType
	Offset     int64
	Length     int64
	Digest     Digest            // DigestOf the text without the trailing newline
	Timestamp  time.Time         // When the message was originally sent
	InsertedAt time.Time         // When the entry was inserted into the index
	UpdatedAt  time.Time         // When the entry was last updated
	Vector     []float32         // Embedding vector (populated by the ingestion pipeline)
	Metadata   map[string]string // Optional metadata (e.g., "role", "session")
}

// Embedded reports whether the entry has an embedding vector.
func (e *Entry) Embedded() bool {
	return len(e.Vector) > 0
}

// Checkpoint records how far a background processor has progressed.
type Checkpoint struct {
	ProcessorType string
	LastID        ID
	UpdatedAt     time.Time
}
