// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package metrics holds the Prometheus instruments for the bot. It satisfies
// the observer interfaces of the health, media and transcription packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scribe-dev/scribe/internal/health"
	"github.com/scribe-dev/scribe/internal/media"
	"github.com/scribe-dev/scribe/internal/transcription"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

const namespace = "scribe"

// Metrics contains all instruments, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Session health
	SessionReady    prometheus.Gauge
	SessionEvents   *prometheus.CounterVec
	HealthChecks    *prometheus.CounterVec
	RecoveryActions *prometheus.CounterVec

	// Message pipeline
	Messages        *prometheus.CounterVec
	MessageDuration prometheus.Histogram

	// Transcription
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionFailures *prometheus.CounterVec
	TranscriptionDuration *prometheus.HistogramVec

	// Status server
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	_ health.Observer        = (*Metrics)(nil)
	_ media.Observer         = (*Metrics)(nil)
	_ transcription.Observer = (*Metrics)(nil)
)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionReady: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_ready",
			Help:      "1 while the messaging session is ready",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events received, by kind",
		}, []string{"kind"}),
		HealthChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_checks_total",
			Help:      "Health check ticks, by result",
		}, []string{"result"}),
		RecoveryActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_actions_total",
			Help:      "Recovery actions scheduled, by kind",
		}, []string{"kind"}),

		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages handled, by outcome",
		}, []string{"outcome"}),
		MessageDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "Time spent handling one inbound message",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),

		TranscriptionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_requests_total",
			Help:      "Transcription attempts, by provider",
		}, []string{"provider"}),
		TranscriptionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_failures_total",
			Help:      "Failed transcription attempts, by provider and error code",
		}, []string{"provider", "code"}),
		TranscriptionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Duration of transcription attempts",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		}, []string{"provider"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Status server requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Status server request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) HealthCheck(result string) {
	m.HealthChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) RecoveryScheduled(kind health.ActionKind) {
	m.RecoveryActions.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ReadyChanged(ready bool) {
	if ready {
		m.SessionReady.Set(1)
		return
	}
	m.SessionReady.Set(0)
}

func (m *Metrics) SessionEvent(kind string) {
	m.SessionEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) MessageHandled(outcome media.Outcome, elapsed time.Duration) {
	m.Messages.WithLabelValues(string(outcome)).Inc()
	m.MessageDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) TranscriptionAttempted(provider string, elapsed time.Duration, err error) {
	m.TranscriptionRequests.WithLabelValues(provider).Inc()
	m.TranscriptionDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		code := string(scribeerr.CodeOf(err))
		if code == "" {
			code = "unknown"
		}
		m.TranscriptionFailures.WithLabelValues(provider, code).Inc()
	}
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
