package pebblekv

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

type pebbleMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(m *pebble.Metrics) float64
}

// Collector exports pebble engine statistics of one database.
type Collector struct {
	db      *pebble.DB
	metrics []pebbleMetric
}

func newMetric(name, help string, kind prometheus.ValueType, value func(m *pebble.Metrics) float64) pebbleMetric {
	return pebbleMetric{
		desc:  prometheus.NewDesc("kladov_pebble_"+name, help, nil, nil),
		kind:  kind,
		value: value,
	}
}

func (d *DB) Collector() *Collector { return NewCollector(d.db) }

func NewCollector(db *pebble.DB) *Collector {
	return &Collector{
		db: db,
		metrics: []pebbleMetric{
			newMetric("compaction_count_total", "Total number of compactions performed",
				prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.Count) }),
			newMetric("compaction_estimated_debt_bytes", "Estimated number of bytes that need to be compacted to reach a stable state",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.EstimatedDebt) }),
			newMetric("compaction_in_progress_bytes", "Number of bytes being compacted currently",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.Compact.InProgressBytes) }),
			newMetric("memtable_size_bytes", "Current size of the memtable in bytes",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.MemTable.Size) }),
			newMetric("memtable_count", "Current count of memtables",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.MemTable.Count) }),
			newMetric("block_cache_hits_total", "Block cache hits",
				prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.BlockCache.Hits) }),
			newMetric("block_cache_misses_total", "Block cache misses",
				prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.BlockCache.Misses) }),
			newMetric("wal_size_bytes", "Size of live WAL data in bytes",
				prometheus.GaugeValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.Size) }),
			newMetric("wal_bytes_written_total", "Total physical bytes written to the WAL",
				prometheus.CounterValue, func(m *pebble.Metrics) float64 { return float64(m.WAL.BytesWritten) }),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.db.Metrics()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(stats))
	}
}
