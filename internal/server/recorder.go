package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nixlim/tooltop/internal/storage"
)

// countingRecorder forwards records to the store and counts them per source.
type countingRecorder struct {
	store   storage.Store
	counter prometheus.Counter
}

func (s *Server) recorder(source string) *countingRecorder {
	return &countingRecorder{
		store:   s.store,
		counter: s.metrics.UsageRecorded.WithLabelValues(source),
	}
}

func (c *countingRecorder) Record(rec storage.UsageRecord) {
	c.store.Record(rec)
	c.counter.Inc()
}
