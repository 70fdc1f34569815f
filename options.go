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


package navd

import (
	"log/slog"
	"time"

	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/ingestion"
	"github.com/poiesic/navd/logstore"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Memory.
type Option func(*options)

type options struct {
	aiConfig        *ai.Config
	embedder        ai.Embedder
	logger          *slog.Logger
	sinks           []logstore.EventSink
	registerer      prometheus.Registerer
	syncOnAppend    bool
	pipelineOptions []ingestion.Option
	skipResume      bool
}

// WithAIConfig selects the embedding provider. Ignored when WithEmbedder is
// also given. Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = config
	}
}

// WithEmbedder uses an existing embedder instead of building one from config.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithLogger sets the logger for every component. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventSink adds a sink for log store events.
func WithEventSink(sink logstore.EventSink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sink)
	}
}

// WithMetrics registers Prometheus log store metrics with registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = registerer
	}
}

// WithSyncOnAppend makes every append fsync the log before returning.
func WithSyncOnAppend(enabled bool) Option {
	return func(o *options) {
		o.syncOnAppend = enabled
	}
}

// WithPipelineOptions passes options through to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) Option {
	return func(o *options) {
		o.pipelineOptions = append(o.pipelineOptions, opts...)
	}
}

// WithResumePending controls whether Open resubmits entries left unembedded
// by a previous process. Default is true.
func WithResumePending(enabled bool) Option {
	return func(o *options) {
		o.skipResume = !enabled
	}
}

// AddOptions holds optional parameters for Add.
type AddOptions struct {
	Speaker   core.SpeakerType  // Defaults to SpeakerTypeHuman
	Timestamp time.Time         // Uses the current time if zero
	Metadata  map[string]string // Attached to every entry in the batch
}
