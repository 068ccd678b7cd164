// Package metrics exposes Prometheus metrics for serialization and
// transport activity.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("cli")
//	s := serializer.New(transports, serializer.WithMetrics(collector))
//
//	// Serve /metrics
//	srv := metrics.NewServer(":9090")
//	go srv.ListenAndServe()
//
// A nil *Collector is valid and records nothing, so components can hold
// one unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Record kinds used as the "kind" label of RecordsTotal.
const (
	KindRoot   = "root"
	KindObject = "object"
	KindChunk  = "chunk"
)

var (
	// RecordsTotal counts records produced by the serializer.
	// Labels: component, kind (root/object/chunk)
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objectdag_records_total",
			Help: "Total number of records produced",
		},
		[]string{"component", "kind"},
	)

	// RecordBytes tracks the canonical size of produced records.
	RecordBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "objectdag_record_bytes",
			Help:    "Canonical JSON size of produced records in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 9), // 64B .. 4MB
		},
		[]string{"component"},
	)

	// TransportSaves counts save calls per transport.
	// Labels: transport, status (success/failure)
	TransportSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objectdag_transport_saves_total",
			Help: "Total number of transport save calls",
		},
		[]string{"transport", "status"},
	)

	// TransportSaveSeconds tracks save latency per transport.
	TransportSaveSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "objectdag_transport_save_seconds",
			Help: "Transport save latency in seconds",
			Buckets: []float64{
				0.0001, // in-memory
				0.001,
				0.01, // local disk
				0.05,
				0.1, // network stores
				0.5,
				1,
				5,
			},
		},
		[]string{"transport"},
	)
)

// Collector records metrics on behalf of one component.
type Collector struct {
	name string
}

// NewCollector creates a collector labelled with the component name.
func NewCollector(name string) *Collector {
	return &Collector{name: name}
}

// Name returns the component name.
func (c *Collector) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// RecordProduced counts one produced record of the given kind and size.
func (c *Collector) RecordProduced(kind string, size int) {
	if c == nil {
		return
	}
	RecordsTotal.WithLabelValues(c.name, kind).Inc()
	RecordBytes.WithLabelValues(c.name).Observe(float64(size))
}

// TransportSave records the outcome and latency of one save call.
func (c *Collector) TransportSave(transport string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	TransportSaves.WithLabelValues(transport, status(err)).Inc()
	TransportSaveSeconds.WithLabelValues(transport).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time since the timer started. It can be
// called more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// NewServer returns an HTTP server exposing the default registry at
// /metrics.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
