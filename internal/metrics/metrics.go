// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus instrumentation for providers, the
// rate limiter and setup plans.
//
// Each Recorder owns its registry so that tests and multiple providers in one
// process never collide on global collectors. A nil *Recorder is valid and
// records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aca"

// Recorder holds the collectors for one process.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	tokenUsageTotal *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	activeRequests  *prometheus.GaugeVec
	setupSteps      *prometheus.CounterVec
	setupStepTime   *prometheus.HistogramVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM requests by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		requestLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM request latency in seconds, including permit acquisition.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"provider"},
		),
		tokenUsageTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_token_usage_total",
				Help:      "Total number of tokens consumed.",
			},
			[]string{"provider", "direction"}, // direction: "input" or "output"
		),
		rateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_rate_limited_total",
				Help:      "Requests rejected by the local rate limiter.",
			},
			[]string{"provider"},
		),
		activeRequests: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "llm_active_requests",
				Help:      "Number of in-flight LLM requests.",
			},
			[]string{"provider"},
		),
		setupSteps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "setup_steps_total",
				Help:      "Setup steps by final state.",
			},
			[]string{"state"},
		),
		setupStepTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "setup_step_duration_seconds",
				Help:      "Setup step duration in seconds across all attempts.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
			},
			[]string{"state"},
		),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRequest records one finished LLM request.
func (r *Recorder) ObserveRequest(provider, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(provider, outcome).Inc()
	r.requestLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// AddTokens records token consumption for a successful request.
func (r *Recorder) AddTokens(provider string, input, output uint64) {
	if r == nil {
		return
	}
	r.tokenUsageTotal.WithLabelValues(provider, "input").Add(float64(input))
	r.tokenUsageTotal.WithLabelValues(provider, "output").Add(float64(output))
}

// RateLimited records a local limiter rejection.
func (r *Recorder) RateLimited(provider string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(provider).Inc()
}

// RequestStarted increments the in-flight gauge and returns a func that
// decrements it.
func (r *Recorder) RequestStarted(provider string) func() {
	if r == nil {
		return func() {}
	}
	g := r.activeRequests.WithLabelValues(provider)
	g.Inc()
	return g.Dec
}

// ObserveSetupStep records the final state of one setup step.
func (r *Recorder) ObserveSetupStep(state string, d time.Duration) {
	if r == nil {
		return
	}
	r.setupSteps.WithLabelValues(state).Inc()
	r.setupStepTime.WithLabelValues(state).Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the Prometheus text format,
// suitable for the node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
