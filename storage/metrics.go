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
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by an instrumented backend.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec   // strata_backend_operations_total{operation,status}
	OperationDuration *prometheus.HistogramVec // strata_backend_operation_duration_seconds{operation}
	BytesWritten      prometheus.Counter       // strata_backend_bytes_written_total
}

// NewMetrics registers the backend metrics with registry. A nil registry
// means prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Metrics{
		OperationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "strata_backend_operations_total",
			Help: "Total backend operations by operation and status",
		}, []string{"operation", "status"}),

		OperationDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "strata_backend_operation_duration_seconds",
			Help:    "Backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		BytesWritten: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "strata_backend_bytes_written_total",
			Help: "Total bytes written through the backend",
		}),
	}
}

// Record records one operation outcome.
func (m *Metrics) Record(operation string, err error, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, status(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

type instrumented struct {
	next    Backend
	metrics *Metrics
}

// Instrument wraps b so that every call is recorded in m.
func Instrument(b Backend, m *Metrics) Backend {
	return &instrumented{next: b, metrics: m}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	i.metrics.Record(op, err, time.Since(start))
}

func (i *instrumented) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := i.next.Get(ctx, path)
	i.observe("get", start, err)
	return rc, err
}

func (i *instrumented) Put(ctx context.Context, path string, r io.Reader, opts ...PutOption) error {
	start := time.Now()
	cr := &countingReader{r: r}
	err := i.next.Put(ctx, path, cr, opts...)
	i.observe("put", start, err)
	if err == nil {
		i.metrics.BytesWritten.Add(float64(cr.n))
	}
	return err
}

func (i *instrumented) Remove(ctx context.Context, path string, recursive bool) error {
	start := time.Now()
	err := i.next.Remove(ctx, path, recursive)
	i.observe("remove", start, err)
	return err
}

func (i *instrumented) Exists(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx, path)
	i.observe("exists", start, err)
	return ok, err
}

func (i *instrumented) IsDirectory(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := i.next.IsDirectory(ctx, path)
	i.observe("is_directory", start, err)
	return ok, err
}

func (i *instrumented) Stat(ctx context.Context, path string) (Metadata, error) {
	start := time.Now()
	md, err := i.next.Stat(ctx, path)
	i.observe("stat", start, err)
	return md, err
}

func (i *instrumented) List(ctx context.Context, path string) ([]string, error) {
	start := time.Now()
	names, err := i.next.List(ctx, path)
	i.observe("list", start, err)
	return names, err
}

func (i *instrumented) MakeDirectory(ctx context.Context, path string) error {
	start := time.Now()
	err := i.next.MakeDirectory(ctx, path)
	i.observe("mkdir", start, err)
	return err
}

func (i *instrumented) Move(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := i.next.Move(ctx, src, dst)
	i.observe("move", start, err)
	return err
}

func (i *instrumented) Separator() string {
	return i.next.Separator()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
