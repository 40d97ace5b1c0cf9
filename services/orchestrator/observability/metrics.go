// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Metrics cover the chat pipeline end to end:
//   - Request counters by resolved intent and outcome
//   - Per-stage latency histograms for the answer pipeline
//   - Safety counters (blocked inputs/outputs, distress detections)
//   - Meditation session counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "guru"

const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for the chat pipeline.
// Initialize once at startup via NewChatMetrics().
type ChatMetrics struct {
	// RequestsTotal counts chat requests.
	// Labels: intent (QUERY, CASUAL, DISTRESS, MEDITATION_CONTINUE, ERROR),
	// status (success, error, blocked)
	RequestsTotal *prometheus.CounterVec

	// StageDurationSeconds observes wall time per pipeline stage.
	// Labels: stage
	StageDurationSeconds *prometheus.HistogramVec

	// PipelineDurationSeconds observes whole-run wall time.
	PipelineDurationSeconds prometheus.Histogram

	// RewritesTotal counts CRAG query rewrites.
	RewritesTotal prometheus.Counter

	// FallbacksTotal counts runs that ended in the honest fallback.
	FallbacksTotal prometheus.Counter

	// BlockedTotal counts moderation blocks.
	// Labels: rail (input, output)
	BlockedTotal *prometheus.CounterVec

	// DistressDetectionsTotal counts distress routings.
	// Labels: source (precheck, intent_router)
	DistressDetectionsTotal *prometheus.CounterVec

	// MeditationStepsTotal counts delivered meditation steps.
	MeditationStepsTotal prometheus.Counter
}

// NewChatMetrics registers and returns the chat metrics. Call once;
// promauto panics on duplicate registration.
func NewChatMetrics() *ChatMetrics {
	return &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "requests_total",
			Help:      "Chat requests by resolved intent and status.",
		}, []string{"intent", "status"}),

		StageDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),

		PipelineDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "pipeline_duration_seconds",
			Help:      "Whole pipeline run wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),

		RewritesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "rewrites_total",
			Help:      "Self-correcting query rewrites.",
		}),

		FallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "fallbacks_total",
			Help:      "Runs that ended in the fallback response.",
		}),

		BlockedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "blocked_total",
			Help:      "Messages blocked by moderation rails.",
		}, []string{"rail"}),

		DistressDetectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "distress_detections_total",
			Help:      "Distress routings by detection source.",
		}, []string{"source"}),

		MeditationStepsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: chatSubsystem,
			Name:      "meditation_steps_total",
			Help:      "Delivered Serene Mind meditation steps.",
		}),
	}
}

// ObserveStage is the pipeline.StageObserver hook.
func (m *ChatMetrics) ObserveStage(stage string, d time.Duration) {
	m.StageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}
