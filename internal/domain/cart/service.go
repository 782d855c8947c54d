package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/order"
	"github.com/xenking/mixandtaste/internal/domain/pricing"
)

// Sentinel errors returned by Service.
var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrLineNotFound       = errors.New("cart line not found")
	ErrEmpty              = errors.New("cart is empty")
)

// IncompleteSelectionError is returned when adding a customizable product
// before every required choice is made.
type IncompleteSelectionError struct {
	ProductID string
	Missing   []customization.OptionType
}

func (e *IncompleteSelectionError) Error() string {
	return fmt.Sprintf("selection for %s is incomplete: missing %v", e.ProductID, e.Missing)
}

// ProductSource resolves products by id.
type ProductSource interface {
	// GetProduct returns menu.ErrNotFound for unknown products.
	GetProduct(ctx context.Context, id string) (*menu.Product, error)
}

// OrderPlacer submits the cart contents as an order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
}

// Config holds the cart rules.
type Config struct {
	Merge    MergePolicy
	Delivery pricing.DeliveryPolicy
}

// Service loads a session's cart, applies one change and saves it back.
type Service struct {
	cfg      Config
	products ProductSource
	policies customization.PolicySource
	store    Store
	orders   OrderPlacer
	metrics  *metrics
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(
	cfg Config,
	products ProductSource,
	policies customization.PolicySource,
	store Store,
	orders OrderPlacer,
	mp metric.MeterProvider,
) (*Service, error) {
	m, err := newMetrics(mp)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		products: products,
		policies: policies,
		store:    store,
		orders:   orders,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// Get returns the session's cart, empty when nothing was saved yet.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	c := New(s.cfg.Merge, s.cfg.Delivery)
	snap, err := s.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		return c, nil
	case err != nil:
		return nil, errors.Wrap(err, "load cart")
	}
	c.Restore(snap)
	return c, nil
}

func (s *Service) save(ctx context.Context, sessionID string, c *Cart, op string) error {
	snap := c.Snapshot()
	snap.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sessionID, snap); err != nil {
		return errors.Wrap(err, "save cart")
	}
	s.metrics.mutated(ctx, op)
	return nil
}

// policyFor returns nil when the category is not customizable.
func (s *Service) policyFor(ctx context.Context, categoryID string) (*customization.Policy, error) {
	p, err := s.policies.Policy(ctx, categoryID)
	if errors.Is(err, customization.ErrNoPolicy) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get policy")
	}
	return p, nil
}

// Customization is a product with its policy and an evaluated selection.
type Customization struct {
	Product   *menu.Product
	Policy    *customization.Policy
	Selection *customization.Selection
}

// UnitPrice prices one unit of the product with the chosen options.
func (c *Customization) UnitPrice() decimal.Decimal {
	if c.Policy == nil {
		return c.Product.EffectivePrice()
	}
	return pricing.UnitPrice(c.Product, c.Selection.Chosen(), c.Policy)
}

// Customize evaluates options against the product's category policy.
// Options for a product without a policy are ignored.
func (s *Service) Customize(ctx context.Context, productID string, options map[customization.OptionType]string) (*Customization, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	policy, err := s.policyFor(ctx, p.CategoryID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		options = nil
	}
	sel, err := customization.RestoreSelection(policy, options)
	if err != nil {
		return nil, err
	}
	return &Customization{Product: p, Policy: policy, Selection: sel}, nil
}

// Preview is the state of an in-progress customization.
type Preview struct {
	*Customization
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// CanAdd reports whether the customization may be added to the cart.
func (p *Preview) CanAdd() bool {
	return p.Product.Available && p.Selection.IsComplete()
}

// Preview evaluates a selection and prices it without touching any cart.
func (s *Service) Preview(ctx context.Context, productID string, options map[customization.OptionType]string, quantity int) (*Preview, error) {
	if quantity <= 0 {
		quantity = 1
	}
	c, err := s.Customize(ctx, productID, options)
	if err != nil {
		return nil, err
	}
	unit := c.UnitPrice()
	return &Preview{
		Customization: c,
		Quantity:      quantity,
		UnitPrice:     unit,
		LineTotal:     unit.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// AddItemRequest describes a product being added to the cart.
type AddItemRequest struct {
	ProductID string
	Quantity  int
	Options   map[customization.OptionType]string
}

// AddItem prices the product with its options and merges it into the cart.
// Customizable products are rejected until the selection is complete.
func (s *Service) AddItem(ctx context.Context, sessionID string, req AddItemRequest) (*Cart, Line, error) {
	if req.Quantity <= 0 || req.Quantity > MaxQuantity {
		return nil, Line{}, ErrInvalidQuantity
	}
	cz, err := s.Customize(ctx, req.ProductID, req.Options)
	if err != nil {
		return nil, Line{}, err
	}
	if !cz.Product.Available {
		return nil, Line{}, ErrProductUnavailable
	}
	if !cz.Selection.IsComplete() {
		return nil, Line{}, &IncompleteSelectionError{ProductID: req.ProductID, Missing: cz.Selection.Missing()}
	}

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, Line{}, err
	}
	line, err := c.Add(Item{
		Product:   cz.Product,
		Options:   cz.Selection.Chosen(),
		Quantity:  req.Quantity,
		UnitTotal: cz.UnitPrice(),
	})
	if err != nil {
		return nil, Line{}, err
	}
	if err := s.save(ctx, sessionID, c, "add"); err != nil {
		return nil, Line{}, err
	}
	zctx.From(ctx).Debug("Cart item added",
		zap.String("line_id", line.ID),
		zap.Int("quantity", line.Quantity),
	)
	return c, line, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateQuantity(lineID, quantity); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sessionID, c, "update"); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem deletes a line. Removing an absent line is not an error.
func (s *Service) RemoveItem(ctx context.Context, sessionID, lineID string) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.Remove(lineID)
	if err := s.save(ctx, sessionID, c, "remove"); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	c := New(s.cfg.Merge, s.cfg.Delivery)
	if err := s.save(ctx, sessionID, c, "clear"); err != nil {
		return nil, err
	}
	return c, nil
}

// Checkout submits the cart as an order. The cart is cleared only after the
// order was accepted; on failure it is left untouched for a retry.
func (s *Service) Checkout(ctx context.Context, sessionID string, customer order.Customer) (o *order.Order, err error) {
	defer func() { s.metrics.checkedOut(ctx, err) }()

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmpty
	}

	lines := c.Lines()
	items := make([]order.PlaceOrderItem, len(lines))
	for i, l := range lines {
		var selected map[string]string
		if len(l.Options) > 0 {
			selected = make(map[string]string, len(l.Options))
			for t, id := range l.Options {
				selected[string(t)] = id
			}
		}
		items[i] = order.PlaceOrderItem{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitTotal,
			SelectedOptions: selected,
		}
	}

	o, err = s.orders.PlaceOrder(ctx, order.PlaceOrderRequest{Customer: customer, Items: items})
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	c.Clear()
	if err := s.save(ctx, sessionID, c, "checkout"); err != nil {
		zctx.From(ctx).Error("Clear cart after checkout",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	return o, nil
}
