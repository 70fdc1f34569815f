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


package logstore

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the name of the log file created inside the store directory.
const FileName = "conversations.log"

const delimiter = '\n'

// Locator identifies one appended record: the byte offset where it starts and
// its length including the trailing newline.
type Locator struct {
	Offset int64
	Length int64
}

// End returns the offset immediately after the record.
func (l Locator) End() int64 {
	return l.Offset + l.Length
}

// Store is an append-only log of newline-terminated text records.
//
// Appends are serialized internally; Read may be called concurrently with
// other reads and appends. A Store owns its file exclusively. Only one Store
// (in one process) may append to a given file at a time.
type Store struct {
	path string
	sink EventSink
	sync bool

	mu     sync.RWMutex
	file   *os.File
	offset int64
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithEventSink sets the sink notified about appends, reads and errors.
// The default sink discards everything.
func WithEventSink(sink EventSink) Option {
	return func(s *Store) {
		if sink == nil {
			sink = nopSink{}
		}
		s.sink = sink
	}
}

// WithLogger logs store events to logger. It replaces any previously
// configured sink; use MultiSink to combine sinks.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.sink = NewSlogSink(logger)
	}
}

// WithSyncOnAppend makes every append fsync the file before returning.
func WithSyncOnAppend(enabled bool) Option {
	return func(s *Store) {
		s.sync = enabled
	}
}

// Open opens or creates the log file inside dir and positions the store at
// the end of any existing data. The directory must already exist.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		path: filepath.Join(dir, FileName),
		sink: nopSink{},
	}
	for _, opt := range opts {
		opt(s)
	}

	file, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, s.fail(&Error{Op: "open", Kind: ErrStoreOpen, Path: s.path, Err: err})
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, s.fail(&Error{Op: "open", Kind: ErrStoreOpen, Path: s.path, Err: err})
	}

	s.file = file
	s.offset = info.Size()
	return s, nil
}

// Path returns the location of the log file.
func (s *Store) Path() string {
	return s.path
}

// Append writes line followed by a newline and returns its locator.
//
// If the write fails the store re-reads the file size so the next append
// starts at the true end of file. Bytes from a failed append may be partially
// on disk but no locator refers to them.
func (s *Store) Append(line string) (Locator, error) {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, delimiter)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Locator{}, s.fail(&Error{Op: "append", Kind: ErrStoreClosed, Path: s.path})
	}

	loc := Locator{Offset: s.offset, Length: int64(len(buf))}
	n, err := s.file.Write(buf)
	if err == nil && s.sync {
		err = s.file.Sync()
	}
	if err != nil {
		s.resync()
		return Locator{}, s.fail(&Error{
			Op:      "append",
			Kind:    ErrWrite,
			Path:    s.path,
			Offset:  loc.Offset,
			Length:  loc.Length,
			Written: int64(n),
			Err:     err,
		})
	}

	s.offset += int64(n)
	s.sink.OnAppend(AppendEvent{Path: s.path, Locator: loc, Position: s.offset})
	return loc, nil
}

// resync resets the in-memory offset to the file size after a failed write.
// Must be called with mu held.
func (s *Store) resync() {
	if info, err := s.file.Stat(); err == nil {
		s.offset = info.Size()
	}
}

// Read returns exactly length bytes starting at offset, including any
// newline inside the range. A range extending past the end of the file is an
// error; partial content is never returned.
func (s *Store) Read(offset, length int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", s.fail(&Error{Op: "read", Kind: ErrStoreClosed, Path: s.path, Offset: offset, Length: length})
	}
	if offset < 0 || length < 0 {
		return "", s.fail(&Error{
			Op:     "read",
			Kind:   ErrRead,
			Path:   s.path,
			Offset: offset,
			Length: length,
			Err:    errors.New("negative offset or length"),
		})
	}
	if length == 0 {
		s.sink.OnRead(ReadEvent{Path: s.path, Offset: offset})
		return "", nil
	}

	buf := make([]byte, length)
	n, err := s.file.ReadAt(buf, offset)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", s.fail(&Error{Op: "read", Kind: ErrRead, Path: s.path, Offset: offset, Length: length, Err: err})
	}

	s.sink.OnRead(ReadEvent{Path: s.path, Offset: offset, Length: length})
	return string(buf), nil
}

// ReadLocator reads the record identified by loc.
func (s *Store) ReadLocator(loc Locator) (string, error) {
	return s.Read(loc.Offset, loc.Length)
}

// Position returns the offset at which the next record will be written.
func (s *Store) Position() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, s.fail(&Error{Op: "position", Kind: ErrStoreClosed, Path: s.path})
	}
	return s.offset, nil
}

// Sync commits the file contents to stable storage.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.fail(&Error{Op: "sync", Kind: ErrStoreClosed, Path: s.path})
	}
	if err := s.file.Sync(); err != nil {
		return s.fail(&Error{Op: "sync", Kind: ErrWrite, Path: s.path, Err: err})
	}
	return nil
}

// Close releases the file. The store cannot be used afterwards, even if
// closing the file fails.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.fail(&Error{Op: "close", Kind: ErrStoreClosed, Path: s.path})
	}
	s.closed = true
	if err := s.file.Close(); err != nil {
		return s.fail(&Error{Op: "close", Kind: ErrClose, Path: s.path, Err: err})
	}
	return nil
}

func (s *Store) fail(err *Error) error {
	s.sink.OnError(ErrorEvent{Op: err.Op, Path: err.Path, Err: err})
	return err
}
