package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsProcessed counts processed documents.
	// Labels: operation (process, re_extract), result (success, error)
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfqd",
			Subsystem: "pipeline",
			Name:      "documents_processed_total",
			Help:      "Total number of processed documents",
		},
		[]string{"operation", "result"},
	)

	// ProcessDuration tracks end-to-end document processing time.
	ProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rfqd",
			Subsystem: "pipeline",
			Name:      "process_duration_seconds",
			Help:      "Duration of document processing in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ItemsExtracted counts extracted line items by terminal status.
	// Labels: status (accepted, verified_correct, auto_corrected_by_verifier,
	// flagged_by_verifier, low_confidence_unverified)
	ItemsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfqd",
			Subsystem: "pipeline",
			Name:      "items_extracted_total",
			Help:      "Total number of extracted line items by terminal status",
		},
		[]string{"status"},
	)

	// HintsInjected counts learned-correction hints injected into prompts.
	HintsInjected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rfqd",
			Subsystem: "pipeline",
			Name:      "hints_injected_total",
			Help:      "Total number of learned corrections injected into extraction prompts",
		},
	)

	// CorrectionsSaved counts accepted correction writes.
	// Labels: result (success, error)
	CorrectionsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rfqd",
			Subsystem: "pipeline",
			Name:      "corrections_saved_total",
			Help:      "Total number of correction write attempts",
		},
		[]string{"result"},
	)
)

// terminalStatusLabel maps an annotated item to its metric label.
func terminalStatusLabel(status string, score, floor, threshold float64) string {
	if status != "" {
		return status
	}
	if score >= threshold {
		return "accepted"
	}
	if score < floor {
		return "low_confidence_unverified"
	}
	return "unset"
}
