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
	"fmt"
)

var (
	// ErrStoreOpen indicates the log file could not be opened or created.
	ErrStoreOpen = errors.New("log store open failed")

	// ErrWrite indicates an append did not complete.
	ErrWrite = errors.New("log store write failed")

	// ErrRead indicates a read could not be satisfied in full.
	ErrRead = errors.New("log store read failed")

	// ErrClose indicates the underlying file could not be closed.
	ErrClose = errors.New("log store close failed")

	// ErrStoreClosed indicates an operation was attempted after Close.
	ErrStoreClosed = errors.New("log store is closed")
)

// Error describes a failed store operation with enough context to diagnose
// it without access to the store. It matches both its Kind and the
// underlying cause with errors.Is.
type Error struct {
	Op      string // "open", "append", "read", "sync" or "close"
	Kind    error  // one of the Err* sentinels
	Path    string
	Offset  int64
	Length  int64
	Written int64 // bytes the OS reported written, appends only
	Err     error
}

func (e *Error) Error() string {
	var msg string
	switch e.Op {
	case "append":
		msg = fmt.Sprintf("%v: %s offset=%d length=%d written=%d",
			e.Kind, e.Path, e.Offset, e.Length, e.Written)
	case "read":
		msg = fmt.Sprintf("%v: %s offset=%d length=%d", e.Kind, e.Path, e.Offset, e.Length)
	default:
		msg = fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
