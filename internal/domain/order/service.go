package order

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/mixandtaste/internal/domain/pricing"
)

// PlaceOrderItem is one priced line handed over at checkout.
type PlaceOrderItem struct {
	ProductID       string
	Quantity        int
	UnitPrice       decimal.Decimal
	SelectedOptions map[string]string
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Customer Customer
	Items    []PlaceOrderItem
}

// Service encapsulates order placement and status management.
type Service struct {
	orders   Repository
	delivery pricing.DeliveryPolicy
	metrics  *metrics
	now      func() time.Time
}

// NewService creates an order Service.
func NewService(orders Repository, delivery pricing.DeliveryPolicy, mp metric.MeterProvider) (*Service, error) {
	m, err := newMetrics(mp)
	if err != nil {
		return nil, err
	}
	return &Service{
		orders:   orders,
		delivery: delivery,
		metrics:  m,
		now:      time.Now,
	}, nil
}

func (c Customer) normalize() (Customer, error) {
	c = Customer{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
		Notes:   strings.TrimSpace(c.Notes),
	}
	switch {
	case c.Name == "":
		return c, &MissingFieldError{Field: "name"}
	case c.Phone == "":
		return c, &MissingFieldError{Field: "phone"}
	case c.Address == "":
		return c, &MissingFieldError{Field: "address"}
	}
	return c, nil
}

// PlaceOrder validates the request, prices the lines, applies the delivery
// policy and persists the order once. Amounts are rounded to cents.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	customer, err := req.Customer.normalize()
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if item.UnitPrice.IsNegative() {
			return nil, &InvalidPriceError{ProductID: item.ProductID}
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items[i] = Item{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice.Round(2),
			SelectedOptions: maps.Clone(item.SelectedOptions),
			LineTotal:       lineTotal.Round(2),
		}
	}

	totals := s.delivery.Summarize(subtotal).Round()
	now := s.now()
	o := &Order{
		ID:          uuid.New().String(),
		Customer:    customer,
		Items:       items,
		Subtotal:    totals.Subtotal,
		DeliveryFee: totals.DeliveryFee,
		Total:       totals.Total,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.metrics.orderPlaced(ctx, o)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	return o, nil
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &InvalidStatusError{Status: filter.Status}
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// UpdateStatus moves an order to the given status if the lifecycle allows
// it and returns the updated order.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, &InvalidStatusError{Status: to}
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	now := s.now()
	if err := s.orders.UpdateStatus(ctx, id, to, now); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	from := o.Status
	o.Status = to
	o.UpdatedAt = now

	s.metrics.statusChanged(ctx, to)
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return o, nil
}
