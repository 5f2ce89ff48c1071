// Package metrics defines Prometheus collectors for the answer pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AskRequestsTotal counts answered queries by outcome ("ok", "degraded",
	// or the error kind).
	AskRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kotae_ask_requests_total",
		Help: "Answered queries by outcome.",
	}, []string{"outcome"})

	// StageDuration observes per-stage pipeline latency.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kotae_stage_duration_seconds",
		Help:    "Pipeline stage latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// GenerationRequestsTotal counts provider calls by model and status.
	GenerationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kotae_generation_requests_total",
		Help: "Generation provider calls by model and status.",
	}, []string{"model", "status"})

	// GenerationRetriesTotal counts retried provider calls.
	GenerationRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kotae_generation_retries_total",
		Help: "Generation provider retries.",
	})

	// RetrievedChunks observes how many chunks each query retrieved.
	RetrievedChunks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kotae_retrieved_chunks",
		Help:    "Chunks returned per retrieval.",
		Buckets: []float64{0, 1, 2, 4, 6, 8, 12},
	})
)
