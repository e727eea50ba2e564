// Package metrics exposes Prometheus metrics for playlist loading.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load results recorded by PlaylistLoads.
const (
	ResultParsed   = "parsed"
	ResultFallback = "fallback"
	ResultEmpty    = "empty"
	ResultFailed   = "failed"
)

// PlaylistLoads counts playlist load attempts by outcome.
var PlaylistLoads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_playlist_loads_total",
	Help: "Number of playlist loads by result",
}, []string{"result"})

// Records tracks the number of records in the current catalog per content type.
var Records = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "iptv_catalog_records",
	Help: "Number of records in the current catalog",
}, []string{"type"})

// DroppedLines counts playlist lines discarded while pairing, by kind.
var DroppedLines = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_dropped_lines_total",
	Help: "Number of orphaned playlist lines dropped during parsing",
}, []string{"kind"})

// FetchDuration observes how long upstream playlist fetches take.
var FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "iptv_catalog_fetch_duration_seconds",
	Help:    "Duration of upstream playlist fetches",
	Buckets: prometheus.DefBuckets,
})
