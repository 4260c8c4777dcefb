package interceptor

import (
	"context"
	"net"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openkcm/daytime/internal/service"
)

const (
	ErrDomainMetrics = "metrics"
	AttrStatus       = "status"
	StatusOK         = "ok"
)

func InitMeters(ctx context.Context, cfgApp *commoncfg.Application, meter metric.Meter) (*Meters, error) {
	connectionCounts, err := meter.Int64Counter(
		"daytime.connection_count",
		metric.WithDescription("Counter of served daytime connections, partitioned by status."),
	)
	if err != nil {
		return nil, oops.In(ErrDomainMetrics).
			WithContext(ctx).
			Wrapf(err, "creating daytime_connection_count meter")
	}

	connectionDurations, err := meter.Float64Histogram(
		"daytime.connection_duration",
		metric.WithDescription("Duration from accept to reply in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, oops.In(ErrDomainMetrics).
			WithContext(ctx).
			Wrapf(err, "creating daytime_connection_duration meter")
	}

	return &Meters{
		application:         cfgApp,
		connectionCounts:    connectionCounts,
		connectionDurations: connectionDurations,
	}, nil
}

// Meters helps with collecting metrics for prometheus from the daytime listener.
type Meters struct {
	application         *commoncfg.Application
	connectionCounts    metric.Int64Counter
	connectionDurations metric.Float64Histogram
}

// ConnInterceptor tracks the duration and count of served connections.
func (m *Meters) ConnInterceptor(ctx context.Context, conn net.Conn, handler ConnHandler) error {
	startTime := time.Now()
	err := handler(ctx, conn)
	elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)

	status := StatusOK
	if err != nil {
		status = service.ErrorKind(err)
	}

	attrs := metric.WithAttributes(
		otlp.CreateAttributesFrom(*m.application,
			attribute.String(commoncfg.AttrOperation, "daytime"),
			attribute.String(AttrStatus, status),
		)...,
	)
	m.connectionDurations.Record(ctx, elapsedTime, attrs)
	m.connectionCounts.Add(ctx, 1, attrs)

	return err
}
