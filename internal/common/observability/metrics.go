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
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	sessionCounter  otelmetric.Int64Counter
	persistDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	sessionCounter, _ := meter.Int64Counter(
		"onboarding.sessions",
		otelmetric.WithDescription("Number of onboarding sessions processed"),
	)

	persistDuration, _ := meter.Float64Histogram(
		"persistence.duration",
		otelmetric.WithDescription("Durable write duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		sessionCounter:  sessionCounter,
		persistDuration: persistDuration,
	}
}

func (o *Observability) RecordSession(ctx context.Context, status string) {
	if o.sessionCounter != nil {
		o.sessionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordPersistDuration(ctx context.Context, duration time.Duration, operation string) {
	if o.persistDuration != nil {
		o.persistDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("operation", operation),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
