// Package observability bootstraps the OpenTelemetry metrics pipeline and
// bridges it into the Prometheus registry served on /metrics.
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	provider    *metric.MeterProvider
	jobsHandled otelmetric.Int64Counter
	jobDuration otelmetric.Float64Histogram
}

// New installs a Prometheus-backed meter provider as the global otel
// provider. A broken exporter yields a no-op Observability rather than a
// startup failure.
func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("prometheus exporter init failed, metrics disabled: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobsHandled, _ := meter.Int64Counter(
		"proofing.jobs.handled",
		otelmetric.WithDescription("Proofing jobs handled, by task type"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"proofing.jobs.duration",
		otelmetric.WithDescription("Wall time spent handling one proofing job"),
		otelmetric.WithUnit("s"),
	)

	return &Observability{
		provider:    provider,
		jobsHandled: jobsHandled,
		jobDuration: jobDuration,
	}
}

// RecordJob counts one handled job and its wall time.
func (o *Observability) RecordJob(ctx context.Context, taskType string, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("task_type", taskType))
	if o.jobsHandled != nil {
		o.jobsHandled.Add(ctx, 1, attrs)
	}
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.provider.Shutdown(ctx)
	}
}
