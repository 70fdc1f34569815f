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


// Package logstore implements an append-only log of text records with
// byte-precise random access.
//
// Each record is written as the caller's text followed by a single newline.
// Append returns a Locator (offset, length) for the record, with the length
// counting the newline, so that Read(offset, length) returns exactly the
// bytes written:
//
//	s, err := logstore.Open(dir)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	loc, err := s.Append("hello")     // {Offset: 0, Length: 6}
//	text, err := s.ReadLocator(loc)   // "hello\n"
//
// The on-disk format is plain UTF-8 text with no header, length prefix or
// checksum. Locators must be kept by the caller.
//
// # Restarts
//
// Open positions the store at the current size of the file, so a reopened
// store continues appending after existing data without overwriting it.
//
// # Errors
//
// Every failure is returned as an *Error that matches one of ErrStoreOpen,
// ErrWrite, ErrRead, ErrClose or ErrStoreClosed with errors.Is, and also
// matches the underlying OS error. Short reads and writes are reported as
// errors. The store never retries.
//
// # Observability
//
// The store writes nothing on its own. Pass WithEventSink or WithLogger to
// receive append, read and error events.
package logstore
