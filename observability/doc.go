// Package observability provides an OpenTelemetry-based metrics extension
// for the training service. The MetricsExtension implements lifecycle hooks
// to record system-wide counters for job admission, completion, failure,
// cancellation, and degraded publish events, plus a duration histogram for
// completed jobs.
//
// For per-execution tracing and metrics on the pipeline itself, see the
// middleware package: middleware.Tracing() and middleware.Metrics().
package observability
