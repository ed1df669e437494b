// Package metrics holds the Prometheus collectors exported by the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit outcomes used as the "result" label of Commits.
const (
	CommitApplied  = "applied"
	CommitConflict = "conflict"
	CommitNoop     = "noop"
)

// Metrics groups the collectors of one open database. Collectors created with
// a nil registerer are live but unregistered, so a Metrics value is always
// safe to update.
type Metrics struct {
	RecordsAppended *prometheus.CounterVec
	BytesAppended   prometheus.Counter
	TruncatedBytes  prometheus.Counter
	Commits         *prometheus.CounterVec
	VersionsCreated prometheus.Counter
	NodeCacheHits   prometheus.Counter
	NodeCacheMisses prometheus.Counter
	FileSize        prometheus.Gauge
	CurrentVersion  prometheus.Gauge
}

// New creates the collectors and registers them with reg when it is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aodb_records_appended_total",
			Help: "Records appended to the store, by record kind.",
		}, []string{"kind"}),
		BytesAppended: f.NewCounter(prometheus.CounterOpts{
			Name: "aodb_bytes_appended_total",
			Help: "Bytes appended to the store including record framing.",
		}),
		TruncatedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "aodb_recovery_truncated_bytes_total",
			Help: "Bytes of incomplete tail records discarded during recovery.",
		}),
		Commits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aodb_commits_total",
			Help: "Commit attempts, by result.",
		}, []string{"result"}),
		VersionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "aodb_versions_created_total",
			Help: "Versions minted by set, del and apply.",
		}),
		NodeCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "aodb_node_cache_hits_total",
			Help: "Decoded node cache hits.",
		}),
		NodeCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "aodb_node_cache_misses_total",
			Help: "Decoded node cache misses.",
		}),
		FileSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "aodb_file_size_bytes",
			Help: "Size of the database file.",
		}),
		CurrentVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "aodb_current_version",
			Help: "Offset of the current committed version.",
		}),
	}
}

// ObserveAppend records one appended record of the given kind and size.
func (m *Metrics) ObserveAppend(kind string, size int) {
	m.RecordsAppended.WithLabelValues(kind).Inc()
	m.BytesAppended.Add(float64(size))
}

// ObserveCommit counts a commit attempt by result.
func (m *Metrics) ObserveCommit(result string) {
	m.Commits.WithLabelValues(result).Inc()
}
