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


package metrics

import (
	"testing"

	"github.com/poiesic/navd/logstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_CountsStoreActivity(t *testing.T) {
	registry := prometheus.NewRegistry()
	sink := NewSink(registry)

	s, err := logstore.Open(t.TempDir(), logstore.WithEventSink(sink))
	require.NoError(t, err)

	loc, err := s.Append("hello")
	require.NoError(t, err)
	_, err = s.Append("world!")
	require.NoError(t, err)
	_, err = s.ReadLocator(loc)
	require.NoError(t, err)
	_, err = s.Read(0, 1000)
	require.Error(t, err)
	require.NoError(t, s.Close())
	_, err = s.Append("late")
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.Appends))
	assert.Equal(t, 13.0, testutil.ToFloat64(sink.AppendedBytes))
	assert.Equal(t, 13.0, testutil.ToFloat64(sink.Position))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.Reads))
	assert.Equal(t, 6.0, testutil.ToFloat64(sink.ReadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.Errors.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.Errors.WithLabelValues("append")))
}

func TestSink_RegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	sink := NewSink(registry)
	sink.OnAppend(logstore.AppendEvent{Locator: logstore.Locator{Length: 10}, Position: 10})
	sink.OnError(logstore.ErrorEvent{Op: "open"})

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "navd_logstore_appends_total")
	assert.Contains(t, names, "navd_logstore_position_bytes")
	assert.Contains(t, names, "navd_logstore_errors_total")
	assert.Contains(t, names, "navd_logstore_record_size_bytes")
}

func TestNewSink_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewSink(registry)
	assert.Panics(t, func() { NewSink(registry) })
}
