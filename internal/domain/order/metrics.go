package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xenking/mixandtaste/internal/domain/order"

type metrics struct {
	placed      metric.Int64Counter
	transitions metric.Int64Counter
	totals      metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(meterName)

	placed, err := meter.Int64Counter("mixandtaste.orders.placed",
		metric.WithDescription("Orders accepted at checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	transitions, err := meter.Int64Counter("mixandtaste.orders.transitions",
		metric.WithDescription("Order status changes"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order transitions counter")
	}
	totals, err := meter.Float64Histogram("mixandtaste.orders.total",
		metric.WithDescription("Grand total of placed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order total histogram")
	}
	return &metrics{placed: placed, transitions: transitions, totals: totals}, nil
}

func (m *metrics) orderPlaced(ctx context.Context, o *Order) {
	m.placed.Add(ctx, 1)
	m.totals.Record(ctx, o.Total.InexactFloat64())
}

func (m *metrics) statusChanged(ctx context.Context, to Status) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(to))))
}
