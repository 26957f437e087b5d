// Package metrics holds the process-level Prometheus metrics that do not
// belong to a single use case: database query timings, connection pool
// statistics and build information.
//
// Delivery metrics are defined in usecase/notify, HTTP metrics in
// handler/http and redelivery sweep metrics in infra/worker.
package metrics
