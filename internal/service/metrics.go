package service

import (
	"context"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openkcm/daytime/internal/daytime"
)

const (
	AttrMode         = "mode"
	AttrErrorKind    = "error_kind"
	ErrDomainMetrics = "metrics"
)

func InitMeters(ctx context.Context, cfgApp *commoncfg.Application, meter metric.Meter) (*Meters, error) {
	repliesCtr, err := createCounter(ctx, meter, "daytime.replies", "Counter of delivered time strings, partitioned by mode")
	if err != nil {
		return nil, err
	}

	bytesCtr, err := createCounter(ctx, meter, "daytime.bytes_sent", "Counter of bytes written to clients or the console, partitioned by mode")
	if err != nil {
		return nil, err
	}

	errorsCtr, err := createCounter(ctx, meter, "daytime.errors", "Counter of failed replies, partitioned by mode and error kind")
	if err != nil {
		return nil, err
	}

	return &Meters{
		application: cfgApp,
		repliesCtr:  repliesCtr,
		bytesCtr:    bytesCtr,
		errorsCtr:   errorsCtr,
	}, nil
}

func createCounter(ctx context.Context, meter metric.Meter, name string, description string) (metric.Int64Counter, error) {
	ctr, err := meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, oops.In(ErrDomainMetrics).
			WithContext(ctx).
			Wrapf(err, "creating %s meter", name)
	}

	return ctr, nil
}

type Meters struct {
	application *commoncfg.Application
	repliesCtr  metric.Int64Counter
	bytesCtr    metric.Int64Counter
	errorsCtr   metric.Int64Counter
}

func (m *Meters) handleReply(ctx context.Context, mode daytime.Mode, n int) {
	attrs := m.attributes(attribute.String(AttrMode, string(mode)))

	m.repliesCtr.Add(ctx, 1, attrs)
	m.bytesCtr.Add(ctx, int64(n), attrs)
}

func (m *Meters) handleError(ctx context.Context, mode daytime.Mode, err error) {
	m.errorsCtr.Add(ctx, 1, m.attributes(
		attribute.String(AttrMode, string(mode)),
		attribute.String(AttrErrorKind, ErrorKind(err)),
	))
}

func (m *Meters) attributes(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(otlp.CreateAttributesFrom(*m.application, attrs...)...)
}
