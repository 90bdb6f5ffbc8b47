// Package metrics exposes pipeline outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Recorder implements the interface.
var _ driven.Metrics = (*Recorder)(nil)

const namespace = "sercha_rag"

// Recorder records pipeline outcomes into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	ingested      prometheus.Counter
	ingestFailed  *prometheus.CounterVec
	chunksIndexed prometheus.Counter
	answers       *prometheus.CounterVec
	answerSeconds *prometheus.HistogramVec
	chunksDropped prometheus.Counter
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents committed by ingestion.",
		}),
		ingestFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_failures_total",
			Help:      "Failed ingestions by reason.",
		}, []string{"reason"}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded and stored by ingestion.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answer requests by final state and failed stage.",
		}, []string{"state", "stage"}),
		answerSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Answer request latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"state"}),
		chunksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_chunks_dropped_total",
			Help:      "Retrieved chunks removed to fit the context budget.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ingested,
		r.ingestFailed,
		r.chunksIndexed,
		r.answers,
		r.answerSeconds,
		r.chunksDropped,
	)
	return r
}

// DocumentIngested records a successful ingestion.
func (r *Recorder) DocumentIngested(chunks int) {
	r.ingested.Inc()
	r.chunksIndexed.Add(float64(chunks))
}

// IngestionFailed records a failed ingestion.
func (r *Recorder) IngestionFailed(reason string) {
	r.ingestFailed.WithLabelValues(reason).Inc()
}

// AnswerCompleted records a finished answer request.
func (r *Recorder) AnswerCompleted(state, failedStage domain.AnswerState, seconds float64) {
	r.answers.WithLabelValues(string(state), string(failedStage)).Inc()
	r.answerSeconds.WithLabelValues(string(state)).Observe(seconds)
}

// ChunksDropped records chunks removed by prompt truncation.
func (r *Recorder) ChunksDropped(n int) {
	if n > 0 {
		r.chunksDropped.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics on %s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
