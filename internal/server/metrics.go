package server

import (
	"context"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/metric"
)

const ErrDomainMetrics = "metrics"

// InitMeters registers the instruments observing s.
func (s *Server) InitMeters(ctx context.Context, cfgApp *commoncfg.Application, meter metric.Meter) error {
	attrs := metric.WithAttributes(otlp.CreateAttributesFrom(*cfgApp)...)

	err := createObservableGauge(ctx, meter, "daytime.connections_in_flight", "Gauge of connections currently being served",
		func(_ context.Context, observer metric.Int64Observer) error {
			observer.Observe(s.InFlight(), attrs)
			return nil
		})
	if err != nil {
		return err
	}

	_, err = meter.Int64ObservableCounter(
		"daytime.connections_served",
		metric.WithDescription("Counter of connections served since start"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			observer.Observe(s.Served(), attrs)
			return nil
		}),
	)
	if err != nil {
		return oops.In(ErrDomainMetrics).
			WithContext(ctx).
			Wrapf(err, "creating daytime.connections_served meter")
	}

	return nil
}

func createObservableGauge(ctx context.Context, meter metric.Meter, name string, description string, callback metric.Int64Callback) error {
	_, err := meter.Int64ObservableGauge(
		name,
		metric.WithDescription(description),
		metric.WithInt64Callback(callback),
	)
	if err != nil {
		return oops.In(ErrDomainMetrics).
			WithContext(ctx).
			Wrapf(err, "creating %s meter", name)
	}

	return nil
}
