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


package storage

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/navd/core"
)

const (
	entryVersion      = 1
	checkpointVersion = 1
)

// serializer is the subset of a mus-go serializer used here.
type serializer[T any] interface {
	Marshal(v T, bs []byte) int
	Unmarshal(bs []byte) (T, int, error)
	Size(v T) int
}

type encoder struct {
	buf []byte
	n   int
}

func put[T any](e *encoder, s serializer[T], v T) {
	e.n += s.Marshal(v, e.buf[e.n:])
}

type decoder struct {
	data []byte
	n    int
	err  error
}

func get[T any](d *decoder, s serializer[T]) T {
	var zero T
	if d.err != nil {
		return zero
	}
	v, n, err := s.Unmarshal(d.data[d.n:])
	if err != nil {
		d.err = err
		return zero
	}
	d.n += n
	return v
}

// count reads a collection length and checks that at least minSize bytes per
// element remain, so corrupt data cannot trigger huge allocations.
func (d *decoder) count(minSize int) int {
	c := get(d, varint.Int)
	if d.err != nil {
		return 0
	}
	if c < 0 || c*minSize > len(d.data)-d.n {
		d.err = ErrTruncatedData
		return 0
	}
	return c
}

func (d *decoder) finish(what string) error {
	if d.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, d.err)
	}
	return nil
}

func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microsToTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

func entrySize(entry *core.Entry) int {
	size := varint.Int.Size(entryVersion)
	size += varint.Uint64.Size(uint64(entry.Id))
	size += varint.Int.Size(int(entry.Speaker))
	size += varint.Int64.Size(entry.Offset)
	size += varint.Int64.Size(entry.Length)
	size += raw.Uint64.Size(uint64(entry.Digest))
	size += varint.Int64.Size(timeToMicros(entry.Timestamp))
	size += varint.Int64.Size(timeToMicros(entry.InsertedAt))
	size += varint.Int64.Size(timeToMicros(entry.UpdatedAt))
	size += varint.Int.Size(len(entry.Vector))
	for _, f := range entry.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.Int.Size(len(entry.Metadata))
	for k, v := range entry.Metadata {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}

// MarshalEntry serializes an Entry to bytes.
// Metadata keys are written in sorted order so encoding is deterministic.
func MarshalEntry(entry *core.Entry) []byte {
	e := &encoder{buf: make([]byte, entrySize(entry))}
	put(e, varint.Int, entryVersion)
	put(e, varint.Uint64, uint64(entry.Id))
	put(e, varint.Int, int(entry.Speaker))
	put(e, varint.Int64, entry.Offset)
	put(e, varint.Int64, entry.Length)
	put(e, raw.Uint64, uint64(entry.Digest))
	put(e, varint.Int64, timeToMicros(entry.Timestamp))
	put(e, varint.Int64, timeToMicros(entry.InsertedAt))
	put(e, varint.Int64, timeToMicros(entry.UpdatedAt))
	put(e, varint.Int, len(entry.Vector))
	for _, f := range entry.Vector {
		put(e, raw.Float32, f)
	}
	keys := make([]string, 0, len(entry.Metadata))
	for k := range entry.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	put(e, varint.Int, len(keys))
	for _, k := range keys {
		put(e, ord.String, k)
		put(e, ord.String, entry.Metadata[k])
	}
	return e.buf[:e.n]
}

// UnmarshalEntry deserializes an Entry from bytes.
func UnmarshalEntry(data []byte) (*core.Entry, error) {
	d := &decoder{data: data}
	if v := get(d, varint.Int); d.err == nil && v != entryVersion {
		return nil, fmt.Errorf("%w: unsupported entry version %d", ErrSerializationFailed, v)
	}

	entry := &core.Entry{}
	entry.Id = core.ID(get(d, varint.Uint64))
	entry.Speaker = core.SpeakerType(get(d, varint.Int))
	entry.Offset = get(d, varint.Int64)
	entry.Length = get(d, varint.Int64)
	entry.Digest = core.Digest(get(d, raw.Uint64))
	entry.Timestamp = microsToTime(get(d, varint.Int64))
	entry.InsertedAt = microsToTime(get(d, varint.Int64))
	entry.UpdatedAt = microsToTime(get(d, varint.Int64))

	if n := d.count(4); n > 0 {
		entry.Vector = make([]float32, n)
		for i := range entry.Vector {
			entry.Vector[i] = get(d, raw.Float32)
		}
	}
	if n := d.count(2); n > 0 {
		entry.Metadata = make(map[string]string, n)
		for i := 0; i < n; i++ {
			k := get(d, ord.String)
			v := get(d, ord.String)
			if d.err != nil {
				break
			}
			entry.Metadata[k] = v
		}
	}

	if err := d.finish("entry"); err != nil {
		return nil, err
	}
	return entry, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	size := varint.Int.Size(checkpointVersion) +
		ord.String.Size(checkpoint.ProcessorType) +
		varint.Uint64.Size(uint64(checkpoint.LastID)) +
		varint.Int64.Size(timeToMicros(checkpoint.UpdatedAt))
	e := &encoder{buf: make([]byte, size)}
	put(e, varint.Int, checkpointVersion)
	put(e, ord.String, checkpoint.ProcessorType)
	put(e, varint.Uint64, uint64(checkpoint.LastID))
	put(e, varint.Int64, timeToMicros(checkpoint.UpdatedAt))
	return e.buf[:e.n]
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	d := &decoder{data: data}
	if v := get(d, varint.Int); d.err == nil && v != checkpointVersion {
		return nil, fmt.Errorf("%w: unsupported checkpoint version %d", ErrSerializationFailed, v)
	}
	checkpoint := &core.Checkpoint{
		ProcessorType: get(d, ord.String),
		LastID:        core.ID(get(d, varint.Uint64)),
		UpdatedAt:     microsToTime(get(d, varint.Int64)),
	}
	if err := d.finish("checkpoint"); err != nil {
		return nil, err
	}
	return checkpoint, nil
}
