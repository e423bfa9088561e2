// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records client-side Prometheus metrics for API calls,
// status polling, and uploads.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build independent instances.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pollTotal       *prometheus.CounterVec
	uploadBytes     prometheus.Counter
}

// New registers the client metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idp",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by operation and response status class.",
		},
		[]string{"operation", "code"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "idp",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	pollTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idp",
			Subsystem: "poller",
			Name:      "events_total",
			Help:      "Status poll events: fetch, skipped, failure, stale, terminal, gave_up, cancelled.",
		},
		[]string{"event"},
	)
	uploadBytes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "idp",
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Bytes sent in document uploads.",
		},
	)

	registry.MustRegister(requestTotal, requestDuration, pollTotal, uploadBytes)

	return &Metrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		pollTotal:       pollTotal,
		uploadBytes:     uploadBytes,
	}
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one API call. code is the HTTP status, or 0 when
// the request failed before a response arrived.
func (m *Metrics) ObserveRequest(operation string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(operation, codeClass(code)).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// PollEvent counts a poller event.
func (m *Metrics) PollEvent(event string) {
	if m == nil {
		return
	}
	m.pollTotal.WithLabelValues(event).Inc()
}

// UploadBytes adds n to the uploaded byte counter.
func (m *Metrics) UploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics_listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func codeClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}
