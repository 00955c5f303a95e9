package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imageindex"

// Record outcomes.
const (
	OutcomeDocument = "document"
	OutcomeFailed   = "failed"
)

// Metrics holds the pipeline's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	records        *prometheus.CounterVec
	vectorsOmitted *prometheus.CounterVec
	retries        *prometheus.CounterVec
	providerCalls  *prometheus.HistogramVec
	uploadBatches  *prometheus.CounterVec
	uploadFailures prometheus.Counter
	files          *prometheus.CounterVec
}

// New registers the pipeline collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records enriched, by outcome.",
		}, []string{"outcome"}),
		vectorsOmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vectors_omitted_total",
			Help:      "Embedding vectors left out of a document after a failed call.",
		}, []string{"field"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Provider calls retried after throttling.",
		}, []string{"capability"}),
		providerCalls: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_seconds",
			Help:      "Latency of provider calls including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"capability", "status"}),
		uploadBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_batches_total",
			Help:      "Upload batches sent, by result.",
		}, []string{"result"}),
		uploadFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failed_documents_total",
			Help:      "Documents the index rejected.",
		}),
		files: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Chunk files processed, by status.",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry. Nil for nil Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordOutcome counts one enriched record.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(outcome).Inc()
}

// VectorOmitted counts a vector dropped from a document.
func (m *Metrics) VectorOmitted(field string) {
	if m == nil {
		return
	}
	m.vectorsOmitted.WithLabelValues(field).Inc()
}

// Retry counts a retried provider call.
func (m *Metrics) Retry(capability string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(capability).Inc()
}

// ObserveCall records the duration of a provider call.
func (m *Metrics) ObserveCall(capability string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.providerCalls.WithLabelValues(capability, status).Observe(time.Since(start).Seconds())
}

// UploadBatch counts one upload batch and its rejected documents.
func (m *Metrics) UploadBatch(failed int, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.uploadBatches.WithLabelValues("error").Inc()
	case failed > 0:
		m.uploadBatches.WithLabelValues("partial").Inc()
	default:
		m.uploadBatches.WithLabelValues("ok").Inc()
	}
	m.uploadFailures.Add(float64(failed))
}

// File counts one processed file.
func (m *Metrics) File(status string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format. Nil Metrics
// serve an empty registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
