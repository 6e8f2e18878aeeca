package surf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "surf",
		Name:      "build_duration_seconds",
		Help:      "Time spent constructing a trie from a sorted key set.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	indexMemoryBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "surf",
		Name:      "index_memory_bytes",
		Help:      "Resident size in bytes of the most recently built trie.",
	})

	lookupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "surf",
		Name:      "lookups_total",
		Help:      "Number of Get calls served.",
	})

	lookupHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "surf",
		Name:      "lookup_hits_total",
		Help:      "Number of Get calls that found a value.",
	})
)

func init() {
	prometheus.MustRegister(buildDuration, indexMemoryBytes, lookupsTotal, lookupHitsTotal)
}

func observeBuild(d time.Duration, memBytes uint32) {
	buildDuration.Observe(d.Seconds())
	indexMemoryBytes.Set(float64(memBytes))
}
