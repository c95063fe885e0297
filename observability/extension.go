package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/GeneAlphaAI/genealpha-backend-training/ext"
	"github.com/GeneAlphaAI/genealpha-backend-training/job"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/GeneAlphaAI/genealpha-backend-training/observability"

// Compile-time interface checks.
var (
	_ ext.Extension       = (*MetricsExtension)(nil)
	_ ext.JobQueued       = (*MetricsExtension)(nil)
	_ ext.JobCompleted    = (*MetricsExtension)(nil)
	_ ext.JobFailed       = (*MetricsExtension)(nil)
	_ ext.JobCancelled    = (*MetricsExtension)(nil)
	_ ext.PublishDegraded = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via OpenTelemetry.
// Register it as an extension to automatically track admission rates,
// completion counts, failure rates, cancellations, and degraded publishes.
type MetricsExtension struct {
	jobsQueued      metric.Int64Counter
	jobsCompleted   metric.Int64Counter
	jobsFailed      metric.Int64Counter
	jobsCancelled   metric.Int64Counter
	publishDegraded metric.Int64Counter
	jobDuration     metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider. With no provider configured, all instruments are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. Use this variant to inject an sdk meter in tests.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}

	// Instrument construction errors leave noop instruments in place, so
	// the extension degrades gracefully.
	m.jobsQueued, _ = meter.Int64Counter(
		"training.jobs.queued",
		metric.WithDescription("Jobs admitted for execution"),
		metric.WithUnit("{job}"),
	)
	m.jobsCompleted, _ = meter.Int64Counter(
		"training.jobs.completed",
		metric.WithDescription("Jobs that finished successfully"),
		metric.WithUnit("{job}"),
	)
	m.jobsFailed, _ = meter.Int64Counter(
		"training.jobs.failed",
		metric.WithDescription("Jobs that failed terminally"),
		metric.WithUnit("{job}"),
	)
	m.jobsCancelled, _ = meter.Int64Counter(
		"training.jobs.cancelled",
		metric.WithDescription("Jobs cancelled by the caller"),
		metric.WithUnit("{job}"),
	)
	m.publishDegraded, _ = meter.Int64Counter(
		"training.publish.degraded",
		metric.WithDescription("Completed jobs whose metrics/artifact publish failed"),
		metric.WithUnit("{job}"),
	)
	m.jobDuration, _ = meter.Float64Histogram(
		"training.jobs.duration",
		metric.WithDescription("Wall time of successfully completed jobs in seconds"),
		metric.WithUnit("s"),
	)

	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func kindAttr(j *job.Job) metric.AddOption {
	return metric.WithAttributes(attribute.String("model_kind", j.Request.ModelKind))
}

// OnJobQueued implements ext.JobQueued.
func (m *MetricsExtension) OnJobQueued(ctx context.Context, j *job.Job) error {
	m.jobsQueued.Add(ctx, 1, kindAttr(j))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	m.jobsCompleted.Add(ctx, 1, kindAttr(j))
	m.jobDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("model_kind", j.Request.ModelKind)))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	m.jobsFailed.Add(ctx, 1, kindAttr(j))
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	m.jobsCancelled.Add(ctx, 1, kindAttr(j))
	return nil
}

// OnPublishDegraded implements ext.PublishDegraded.
func (m *MetricsExtension) OnPublishDegraded(ctx context.Context, j *job.Job, _ error) error {
	m.publishDegraded.Add(ctx, 1, kindAttr(j))
	return nil
}
