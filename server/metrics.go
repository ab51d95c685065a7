// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"strings"
	"time"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mlocate"

type metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	locateTotal       *prometheus.CounterVec
	locateDuration    *prometheus.HistogramVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		locateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "locate_requests_total",
				Help:      "Locate calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		locateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "locate_duration_seconds",
				Help:      "Locate call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),
	}
}

// outcome is "ok" or the error kind in snake case.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}

	kind := locator.KindOf(err)
	if kind == 0 {
		return "error"
	}

	return strings.ReplaceAll(kind.String(), " ", "_")
}

func (m *metrics) observeLocate(provider string, err error, elapsed time.Duration) {
	m.locateTotal.WithLabelValues(provider, outcome(err)).Inc()
	m.locateDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
