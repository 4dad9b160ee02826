// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the brain service.
//
// Metrics are exposed via the /metrics endpoint. All metric operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "delilah"

const brainSubsystem = "brain"

// BrainMetrics holds all Prometheus metrics for the turn pipeline.
//
// # Fields
//
//   - TurnsTotal: Counter of completed turns by answer source.
//   - ToolExecutionsTotal: Counter of tool executions by tool and outcome.
//   - RetrievalDegradedTotal: Counter of retrieval calls that failed and
//     degraded to empty context, by collection.
//   - TurnDurationSeconds: Histogram of end-to-end turn latency by source.
//   - ToolDurationSeconds: Histogram of tool execution latency by tool.
type BrainMetrics struct {
	// TurnsTotal counts turns by source (tool, tool_error, rag_llm_graph).
	TurnsTotal *prometheus.CounterVec

	// ToolExecutionsTotal counts executions by tool and outcome (ok, error).
	ToolExecutionsTotal *prometheus.CounterVec

	// RetrievalDegradedTotal counts degraded retrieval calls by collection.
	RetrievalDegradedTotal *prometheus.CounterVec

	// TurnDurationSeconds measures end-to-end turn latency by source.
	TurnDurationSeconds *prometheus.HistogramVec

	// ToolDurationSeconds measures tool execution latency by tool.
	ToolDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance, populated by InitMetrics.
var DefaultMetrics *BrainMetrics

var initOnce sync.Once

// InitMetrics creates and registers all metrics on the default registry.
// Safe to call more than once; registration happens on the first call.
func InitMetrics() *BrainMetrics {
	initOnce.Do(func() {
		DefaultMetrics = &BrainMetrics{
			TurnsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: brainSubsystem,
					Name:      "turns_total",
					Help:      "Total completed turns by answer source",
				},
				[]string{"source"},
			),
			ToolExecutionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: brainSubsystem,
					Name:      "tool_executions_total",
					Help:      "Total tool executions by tool and outcome",
				},
				[]string{"tool", "outcome"},
			),
			RetrievalDegradedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: brainSubsystem,
					Name:      "retrieval_degraded_total",
					Help:      "Retrieval calls that failed and degraded to empty context",
				},
				[]string{"collection"},
			),
			TurnDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: brainSubsystem,
					Name:      "turn_duration_seconds",
					Help:      "End-to-end turn latency by source",
					Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
				},
				[]string{"source"},
			),
			ToolDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: brainSubsystem,
					Name:      "tool_duration_seconds",
					Help:      "Tool execution latency by tool",
					Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 15, 30},
				},
				[]string{"tool"},
			),
		}
	})
	return DefaultMetrics
}
