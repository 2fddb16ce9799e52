package kladov

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var IndexEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kladov",
	Name:      "index_entries",
}, []string{"index", "op"})

var DeleteCascade = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kladov",
	Name:      "delete_cascade",
}, []string{"action"})

var ReindexCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kladov",
	Name:      "reindex",
}, []string{"index"})

var ReindexResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kladov",
	Name:      "reindex_results",
}, []string{"index", "result"})

var ReindexDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "kladov",
	Name:      "reindex_duration",
	Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
}, []string{"index"})

// Metrics lists the package collectors for registration.
func Metrics() []prometheus.Collector {
	return []prometheus.Collector{
		IndexEntries,
		DeleteCascade,
		ReindexCount,
		ReindexResults,
		ReindexDuration,
	}
}

func sidLabel(sid uint64) string { return strconv.FormatUint(sid, 10) }
