package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics track the delivery log store.
var (
	// DBQueryDuration measures statement latency by operation and result.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation", "result"}, // result: ok, error, rejected
	)

	// DBQueriesRejectedTotal counts statements refused by the open breaker.
	DBQueriesRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_queries_rejected_total",
			Help: "Total number of database statements rejected by the circuit breaker",
		},
	)
)

// BuildInfo is constant 1, labelled with the running version.
var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "casetrack_build_info",
		Help: "Build information of the running notifier",
	},
	[]string{"version", "db_driver"},
)

// Query result labels.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultRejected = "rejected"
)

// RecordDBQuery records one database statement.
func RecordDBQuery(operation, result string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
	if result == ResultRejected {
		DBQueriesRejectedTotal.Inc()
	}
}

// RegisterDBStats exposes the connection pool statistics of db on reg.
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, name string) error {
	return reg.Register(collectors.NewDBStatsCollector(db, name))
}

// SetBuildInfo publishes the version and database driver.
func SetBuildInfo(version, driver string) {
	BuildInfo.Reset()
	BuildInfo.WithLabelValues(version, driver).Set(1)
}
