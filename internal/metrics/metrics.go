/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
    "net/http"
    "strconv"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sprint_pulse"

// Manager owns a private registry so /metrics only exposes planning series.
type Manager struct {
    registry *prometheus.Registry

    estimates   *prometheus.CounterVec
    clamped     *prometheus.CounterVec
    persisted   *prometheus.CounterVec
    runs        *prometheus.CounterVec
    runDuration prometheus.Histogram
    httpReqs    *prometheus.CounterVec
    httpLatency *prometheus.HistogramVec
}

var _ planning.Recorder = (*Manager)(nil)

func New() *Manager {
    reg := prometheus.NewRegistry()
    auto := promauto.With(reg)
    return &Manager{
        registry: reg,
        estimates: auto.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Subsystem: "planning", Name: "estimates_total",
            Help: "Story point estimates by source (basic, ai, fallback).",
        }, []string{"source"}),
        clamped: auto.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Subsystem: "planning", Name: "points_clamped_total",
            Help: "Estimates moved into the assignee tier's point range.",
        }, []string{"tier"}),
        persisted: auto.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Subsystem: "planning", Name: "assignments_persisted_total",
            Help: "Assignment rows written, by kind (inserted, updated, reassigned).",
        }, []string{"kind"}),
        runs: auto.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Subsystem: "planning", Name: "runs_total",
            Help: "Planning runs by outcome.",
        }, []string{"outcome"}),
        runDuration: auto.NewHistogram(prometheus.HistogramOpts{
            Namespace: namespace, Subsystem: "planning", Name: "run_duration_seconds",
            Help:    "Wall time of a planning run.",
            Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
        }),
        httpReqs: auto.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Subsystem: "http", Name: "requests_total",
            Help: "HTTP requests by route, method and status.",
        }, []string{"route", "method", "status"}),
        httpLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
            Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
            Help:    "HTTP request latency.",
            Buckets: prometheus.DefBuckets,
        }, []string{"route", "method"}),
    }
}

func (m *Manager) EstimateRecorded(source planning.EstimateSource) {
    m.estimates.WithLabelValues(string(source)).Inc()
}

func (m *Manager) PointsClamped(tier domain.Tier) {
    m.clamped.WithLabelValues(tier.String()).Inc()
}

func (m *Manager) AssignmentsPersisted(inserted, updated, reassigned int) {
    m.persisted.WithLabelValues("inserted").Add(float64(inserted))
    m.persisted.WithLabelValues("updated").Add(float64(updated))
    m.persisted.WithLabelValues("reassigned").Add(float64(reassigned))
}

func (m *Manager) RunFinished(success bool, d time.Duration) {
    outcome := "success"
    if !success { outcome = "failure" }
    m.runs.WithLabelValues(outcome).Inc()
    m.runDuration.Observe(d.Seconds())
}

func (m *Manager) HTTPRequest(route, method string, status int, d time.Duration) {
    if route == "" { route = "unmatched" }
    m.httpReqs.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
    m.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Manager) Registry() *prometheus.Registry { return m.registry }

func (m *Manager) Handler() http.Handler {
    return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
