package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP traffic by route pattern and status code.
	RequestDuration *prometheus.HistogramVec
	TotalRequests   *prometheus.CounterVec

	// Invocations accepted per ingestion path (api, otlp-http, grpc).
	UsageRecorded *prometheus.CounterVec
}

// NewMetrics registers the server collectors on reg. dropped reports the
// store's dropped-write count and is exported as a gauge.
func NewMetrics(reg prometheus.Registerer, dropped func() float64) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tooltop_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"route", "code"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tooltop_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"route", "code"}),

		UsageRecorded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tooltop_usage_recorded_total",
			Help: "Tool invocations accepted, by ingestion source.",
		}, []string{"source"}),
	}

	if dropped != nil {
		promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tooltop_storage_dropped_writes",
			Help: "Usage records dropped because the write buffer was full.",
		}, dropped)
	}

	return m
}
