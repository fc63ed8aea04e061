package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK        = "ok"
	outcomeNotFound  = "not_found"
	outcomeError     = "error"
	outcomeMalformed = "malformed"
)

// Metrics counts manifest and document resolutions.
type Metrics struct {
	manifestLoads      *prometheus.CounterVec
	documentFetches    *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg yields collectors
// that are not exported anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		manifestLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamdirectory",
			Name:      "manifest_loads_total",
			Help:      "Manifest retrievals by outcome.",
		}, []string{"outcome"}),
		documentFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamdirectory",
			Name:      "document_resolutions_total",
			Help:      "Member document resolutions by outcome.",
		}, []string{"outcome"}),
		resolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "teamdirectory",
			Name:      "listing_resolution_seconds",
			Help:      "Time to settle all documents of a listing.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
