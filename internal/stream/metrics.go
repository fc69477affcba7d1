// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records streaming outcomes.
type Metrics interface {
	// Served records a response started with status (200, 206, 416, 404).
	Served(status int)
	// Bytes records body bytes delivered.
	Bytes(n int64)
	// Aborted records a transfer that ended early: "client_gone" or "io_error".
	Aborted(reason string)
}

type noopMetrics struct{}

func (noopMetrics) Served(int)     {}
func (noopMetrics) Bytes(int64)    {}
func (noopMetrics) Aborted(string) {}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics {
	return noopMetrics{}
}

type promMetrics struct {
	responses *prometheus.CounterVec
	bytes     prometheus.Counter
	aborted   *prometheus.CounterVec
}

// NewPromMetrics registers the streaming counters on reg.
func NewPromMetrics(reg prometheus.Registerer) Metrics {
	f := promauto.With(reg)
	return &promMetrics{
		responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reelbox_stream_responses_total",
			Help: "Stream responses by HTTP status",
		}, []string{"status"}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Name: "reelbox_stream_bytes_total",
			Help: "Video bytes written to clients",
		}),
		aborted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reelbox_stream_aborted_total",
			Help: "Stream transfers ended before the last byte",
		}, []string{"reason"}),
	}
}

func (m *promMetrics) Served(status int) {
	m.responses.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *promMetrics) Bytes(n int64) {
	if n > 0 {
		m.bytes.Add(float64(n))
	}
}

func (m *promMetrics) Aborted(reason string) {
	m.aborted.WithLabelValues(reason).Inc()
}
