package cart

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xenking/mixandtaste/internal/domain/cart"

type metrics struct {
	mutations metric.Int64Counter
	checkouts metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(meterName)

	mutations, err := meter.Int64Counter("mixandtaste.cart.mutations",
		metric.WithDescription("Cart changes by operation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cart mutations counter")
	}
	checkouts, err := meter.Int64Counter("mixandtaste.cart.checkouts",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cart checkouts counter")
	}
	return &metrics{mutations: mutations, checkouts: checkouts}, nil
}

func (m *metrics) mutated(ctx context.Context, op string) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *metrics) checkedOut(ctx context.Context, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
