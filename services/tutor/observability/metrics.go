// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "precalc"

// Subsystem for tutor API metrics
const tutorSubsystem = "tutor"

// TutorMetrics holds all Prometheus metrics for the tutoring API.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring tutoring
// requests, streaming performance, LaTeX cleanup output, and OCR usage.
// Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type TutorMetrics struct {
	// RequestsTotal counts tutoring requests by endpoint and status.
	// Labels: endpoint (tutor, tutor_stream, tutor_ws, ocr), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// TokensTotal counts streamed tokens by model.
	// Labels: model
	TokensTotal *prometheus.CounterVec

	// TimeToFirstTokenSeconds measures latency to first token.
	// Labels: endpoint
	TimeToFirstTokenSeconds *prometheus.HistogramVec

	// StreamDurationSeconds measures total stream duration.
	// Labels: endpoint, status
	StreamDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently active streaming connections.
	// Labels: endpoint
	ActiveStreams *prometheus.GaugeVec

	// ErrorsTotal counts errors by type and endpoint.
	// Labels: endpoint, error_code (validation, llm_error, ocr_error, timeout, internal)
	ErrorsTotal *prometheus.CounterVec

	// LatexIssuesTotal counts issues found while cleaning model output.
	// Labels: severity (warning, error), code
	LatexIssuesTotal *prometheus.CounterVec

	// OCRImagesTotal counts OCR image recognitions.
	// Labels: status (success, error)
	OCRImagesTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of TutorMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *TutorMetrics

var initMetricsOnce sync.Once

// InitMetrics creates and registers all Prometheus metrics. Safe to call
// more than once; registration happens on the first call only.
func InitMetrics() *TutorMetrics {
	initMetricsOnce.Do(registerMetrics)
	return DefaultMetrics
}

func registerMetrics() {
	DefaultMetrics = &TutorMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "requests_total",
				Help:      "Total number of tutoring requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		TokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "tokens_total",
				Help:      "Total streamed tokens by model",
			},
			[]string{"model"},
		),

		TimeToFirstTokenSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "time_to_first_token_seconds",
				Help:      "Time from request to first token in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by type and endpoint",
			},
			[]string{"endpoint", "error_code"},
		),

		LatexIssuesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "latex_issues_total",
				Help:      "Total LaTeX cleanup issues by severity and code",
			},
			[]string{"severity", "code"},
		),

		OCRImagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "ocr_images_total",
				Help:      "Total OCR image recognitions by status",
			},
			[]string{"status"},
		),
	}
}

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates LLM API failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeOCRError indicates OCR provider failure.
	ErrorCodeOCRError ErrorCode = "ocr_error"

	// ErrorCodeTimeout indicates operation timeout.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"

	// ErrorCodeClientDisconnect indicates client disconnected.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// Endpoint represents an API endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointTutor is the synchronous tutoring endpoint.
	EndpointTutor Endpoint = "tutor"

	// EndpointTutorStream is the SSE streaming endpoint.
	EndpointTutorStream Endpoint = "tutor_stream"

	// EndpointTutorWS is the WebSocket endpoint.
	EndpointTutorWS Endpoint = "tutor_ws"

	// EndpointOCR is the image recognition endpoint.
	EndpointOCR Endpoint = "ocr"
)

// RecordRequest records a completed request.
func (m *TutorMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records a categorized error.
func (m *TutorMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordTokens records streamed token counts for a model.
func (m *TutorMetrics) RecordTokens(tokens int, model string) {
	m.TokensTotal.WithLabelValues(model).Add(float64(tokens))
}

// RecordLatexIssue records one cleanup issue.
func (m *TutorMetrics) RecordLatexIssue(severity, code string) {
	m.LatexIssuesTotal.WithLabelValues(severity, code).Inc()
}

// RecordOCRImage records one image recognition outcome.
func (m *TutorMetrics) RecordOCRImage(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.OCRImagesTotal.WithLabelValues(status).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *TutorMetrics) StreamStarted(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *TutorMetrics) StreamEnded(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordTimeToFirstToken records time-to-first-token latency in seconds.
func (m *TutorMetrics) RecordTimeToFirstToken(endpoint Endpoint, seconds float64) {
	m.TimeToFirstTokenSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordStreamDuration records total stream duration in seconds.
func (m *TutorMetrics) RecordStreamDuration(endpoint Endpoint, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), status).Observe(seconds)
}
