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


// Package metrics exposes log store activity as Prometheus metrics.
package metrics

import (
	"github.com/poiesic/navd/logstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "navd"

// Sink is a logstore.EventSink that records Prometheus metrics.
type Sink struct {
	Appends       prometheus.Counter
	AppendedBytes prometheus.Counter
	Reads         prometheus.Counter
	ReadBytes     prometheus.Counter
	Errors        *prometheus.CounterVec
	Position      prometheus.Gauge
	RecordSize    prometheus.Histogram
}

var _ logstore.EventSink = (*Sink)(nil)

// NewSink registers the log store metrics with registerer. A nil registerer
// uses prometheus.DefaultRegisterer.
func NewSink(registerer prometheus.Registerer) *Sink {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Sink{
		Appends: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "appends_total",
			Help:      "Total number of records appended",
		}),
		AppendedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "appended_bytes_total",
			Help:      "Total bytes appended including delimiters",
		}),
		Reads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "reads_total",
			Help:      "Total number of positional reads",
		}),
		ReadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "read_bytes_total",
			Help:      "Total bytes returned by reads",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "errors_total",
			Help:      "Total number of failed operations",
		}, []string{"op"}),
		Position: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "position_bytes",
			Help:      "Current write position of the log",
		}),
		RecordSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "record_size_bytes",
			Help:      "Size of appended records in bytes",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8), // 16B to 256KB
		}),
	}
}

func (s *Sink) OnAppend(e logstore.AppendEvent) {
	s.Appends.Inc()
	s.AppendedBytes.Add(float64(e.Locator.Length))
	s.RecordSize.Observe(float64(e.Locator.Length))
	s.Position.Set(float64(e.Position))
}

func (s *Sink) OnRead(e logstore.ReadEvent) {
	s.Reads.Inc()
	s.ReadBytes.Add(float64(e.Length))
}

func (s *Sink) OnError(e logstore.ErrorEvent) {
	s.Errors.WithLabelValues(e.Op).Inc()
}
