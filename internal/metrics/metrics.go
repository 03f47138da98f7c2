// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics provides Prometheus metrics for the translation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "yoga_i18n"

var (
	// TranslationsTotal counts persisted auto translations.
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Total number of auto translations written",
		},
		[]string{"tier", "locale"},
	)

	// BatchesTotal counts model batches by outcome.
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of translation batches sent to the model",
		},
		[]string{"tier", "status"},
	)

	// LLMRequestDuration measures model call latency.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_seconds",
			Help:      "Duration of language model calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90},
		},
		[]string{"provider", "model"},
	)

	// QueueItemsTotal counts processed queue items by final status.
	QueueItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_items_total",
			Help:      "Total number of queue items processed",
		},
		[]string{"status"},
	)
)

// Batch outcomes.
const (
	BatchOK          = "ok"
	BatchModelError  = "model_error"
	BatchParseError  = "parse_error"
	BatchEmptyResult = "empty"
)

// RecordBatch records one model batch and its latency.
func RecordBatch(tier, status, provider, model string, seconds float64) {
	BatchesTotal.WithLabelValues(tier, status).Inc()
	LLMRequestDuration.WithLabelValues(provider, model).Observe(seconds)
}

// RecordTranslation records one written translation.
func RecordTranslation(tier, locale string) {
	TranslationsTotal.WithLabelValues(tier, locale).Inc()
}

// RecordQueueItem records a queue item reaching a final status.
func RecordQueueItem(status string) {
	QueueItemsTotal.WithLabelValues(status).Inc()
}
