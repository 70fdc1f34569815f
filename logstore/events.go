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

import "log/slog"

// AppendEvent is emitted after a successful append.
type AppendEvent struct {
	Path     string
	Locator  Locator
	Position int64 // position after the append
}

// ReadEvent is emitted after a successful read.
type ReadEvent struct {
	Path   string
	Offset int64
	Length int64
}

// ErrorEvent is emitted whenever an operation fails.
type ErrorEvent struct {
	Op   string
	Path string
	Err  error
}

// EventSink receives notifications about store I/O. Implementations must be
// safe for concurrent use and must not call back into the store.
type EventSink interface {
	OnAppend(AppendEvent)
	OnRead(ReadEvent)
	OnError(ErrorEvent)
}

type nopSink struct{}

func (nopSink) OnAppend(AppendEvent) {}
func (nopSink) OnRead(ReadEvent)     {}
func (nopSink) OnError(ErrorEvent)   {}

// SlogSink writes store events to a structured logger.
// Appends and reads are logged at debug level, errors at error level.
type SlogSink struct {
	logger *slog.Logger
}

var _ EventSink = (*SlogSink)(nil)

// NewSlogSink creates a sink that logs to logger, or slog.Default() if nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "logstore")}
}

func (s *SlogSink) OnAppend(e AppendEvent) {
	s.logger.Debug("append", "path", e.Path, "offset", e.Locator.Offset,
		"length", e.Locator.Length, "position", e.Position)
}

func (s *SlogSink) OnRead(e ReadEvent) {
	s.logger.Debug("read", "path", e.Path, "offset", e.Offset, "length", e.Length)
}

func (s *SlogSink) OnError(e ErrorEvent) {
	s.logger.Error("operation failed", "op", e.Op, "path", e.Path, "err", e.Err)
}

type multiSink []EventSink

// MultiSink returns a sink that forwards every event to each of sinks in order.
func MultiSink(sinks ...EventSink) EventSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) OnAppend(e AppendEvent) {
	for _, s := range m {
		s.OnAppend(e)
	}
}

func (m multiSink) OnRead(e ReadEvent) {
	for _, s := range m {
		s.OnRead(e)
	}
}

func (m multiSink) OnError(e ErrorEvent) {
	for _, s := range m {
		s.OnError(e)
	}
}
