// Package metrics exposes the pipeline's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionsTotal counts completed extractions by the engine that
	// actually produced the result and the classified type.
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certidocs_extractions_total",
		Help: "Completed extractions by producing engine and document type.",
	}, []string{"engine", "document_type"})

	// EngineFallbacksTotal counts cross-engine fallbacks taken by the
	// selector after a preferred-engine failure.
	EngineFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certidocs_engine_fallbacks_total",
		Help: "Cross-engine fallbacks after a preferred engine failed.",
	}, []string{"failed_engine"})

	// ExtractionDuration observes wall-clock time of the full pipeline call.
	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "certidocs_extraction_duration_seconds",
		Help:    "Duration of processDocument calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"engine"})

	// DocumentsProcessed counts document lifecycle outcomes.
	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certidocs_documents_processed_total",
		Help: "Documents reaching a terminal status.",
	}, []string{"status"})
)
