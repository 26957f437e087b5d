// Package observability groups the logging, metrics and tracing helpers shared
// by the notifier binary.
//
// Subpackages:
//   - logging: slog loggers with request and notification context
//   - metrics: database and build information metrics
//   - tracing: OpenTelemetry provider setup, tracer and HTTP middleware
//
// Delivery metrics live next to the code that records them
// (usecase/notify/metrics.go, infra/worker/metrics.go).
package observability
