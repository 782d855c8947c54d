package cart_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/order"
	"github.com/xenking/mixandtaste/internal/domain/pricing"
)

const session = "feature-session"

type menuSource map[string]*menu.Product

func (m menuSource) GetProduct(_ context.Context, id string) (*menu.Product, error) {
	p, ok := m[id]
	if !ok {
		return nil, menu.ErrNotFound
	}
	return p, nil
}

type noOrders struct{}

func (noOrders) PlaceOrder(context.Context, order.PlaceOrderRequest) (*order.Order, error) {
	return nil, errors.New("orders are not placed in feature tests")
}

type cartFeature struct {
	products  menuSource
	policies  customization.StaticPolicies
	svc       *cart.Service
	product   string
	selection *customization.Selection
	cart      *cart.Cart
	saved     []cart.Line
	err       error
}

func (f *cartFeature) reset() error {
	f.products = make(menuSource)
	f.policies = customization.DefaultPolicies(customization.DefaultCatalog())
	f.product = ""
	f.selection = nil
	f.cart = nil
	f.saved = nil
	f.err = nil

	svc, err := cart.NewService(
		cart.Config{Merge: cart.MergeBySelection, Delivery: pricing.DefaultDelivery()},
		f.products,
		f.policies,
		cart.NewMemoryStore(),
		noOrders{},
		noop.NewMeterProvider(),
	)
	if err != nil {
		return err
	}
	f.svc = svc
	return nil
}

func (f *cartFeature) theMenu(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		price, err := decimal.NewFromString(row.Cells[2].Value)
		if err != nil {
			return err
		}
		p := &menu.Product{
			ID:         row.Cells[0].Value,
			CategoryID: row.Cells[1].Value,
			Name:       menu.LocalizedText{EN: row.Cells[0].Value},
			Price:      price,
			Available:  true,
		}
		if v := row.Cells[3].Value; v != "" {
			discount, err := decimal.NewFromString(v)
			if err != nil {
				return err
			}
			p.DiscountPrice = decimal.NewNullDecimal(discount)
		}
		f.products[p.ID] = p
	}
	return nil
}

func (f *cartFeature) optionCosts(optionType, id, amount string) error {
	surcharge, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}
	for _, p := range f.policies {
		for i, o := range p.Options {
			if o.Type == customization.OptionType(optionType) && o.ID == id {
				p.Options[i].Surcharge = surcharge
			}
		}
	}
	return nil
}

func (f *cartFeature) iCustomize(productID string) error {
	p, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("unknown product %q", productID)
	}
	policy, err := f.policies.Policy(context.Background(), p.CategoryID)
	if err != nil && !errors.Is(err, customization.ErrNoPolicy) {
		return err
	}
	f.product = productID
	f.selection = customization.NewSelection(policy)
	return nil
}

func (f *cartFeature) iChoose(optionType, id string) error {
	return f.selection.Select(customization.OptionType(optionType), id)
}

func (f *cartFeature) theSelectionIs(state string) error {
	if got := f.selection.IsComplete(); got != (state == "complete") {
		return fmt.Errorf("selection complete = %v, missing %v", got, f.selection.Missing())
	}
	return nil
}

func (f *cartFeature) isNotChosen(optionType string) error {
	if id, ok := f.selection.Get(customization.OptionType(optionType)); ok {
		return fmt.Errorf("%s is still chosen as %q", optionType, id)
	}
	return nil
}

func (f *cartFeature) add(productID string, quantity int, options map[customization.OptionType]string) error {
	c, _, err := f.svc.AddItem(context.Background(), session, cart.AddItemRequest{
		ProductID: productID,
		Quantity:  quantity,
		Options:   options,
	})
	f.err = err
	if err == nil {
		f.cart = c
	}
	return nil
}

func (f *cartFeature) iAddOfIt(quantity int) error {
	if err := f.add(f.product, quantity, f.selection.Chosen()); err != nil {
		return err
	}
	return f.err
}

func (f *cartFeature) iAddOf(quantity int, productID string) error {
	if err := f.add(productID, quantity, nil); err != nil {
		return err
	}
	return f.err
}

func (f *cartFeature) addingFailsAsIncomplete() error {
	_ = f.add(f.product, 1, f.selection.Chosen())
	var incomplete *cart.IncompleteSelectionError
	if !errors.As(f.err, &incomplete) {
		return fmt.Errorf("expected incomplete selection error, got %v", f.err)
	}
	return nil
}

func (f *cartFeature) current() (*cart.Cart, error) {
	return f.svc.Get(context.Background(), session)
}

func (f *cartFeature) theCartHasLines(n int) error {
	c, err := f.current()
	if err != nil {
		return err
	}
	if c.Len() != n {
		return fmt.Errorf("cart has %d lines, want %d", c.Len(), n)
	}
	return nil
}

func (f *cartFeature) theLineHasQuantity(lineID string, quantity int) error {
	c, err := f.current()
	if err != nil {
		return err
	}
	l, ok := c.Line(lineID)
	if !ok {
		return fmt.Errorf("no line %q", lineID)
	}
	if l.Quantity != quantity {
		return fmt.Errorf("line %q has quantity %d, want %d", lineID, l.Quantity, quantity)
	}
	return nil
}

func (f *cartFeature) iSetTheQuantity(lineID, quantity string) error {
	q, err := strconv.Atoi(quantity)
	if err != nil {
		return err
	}
	_, err = f.svc.UpdateQuantity(context.Background(), session, lineID, q)
	return err
}

func (f *cartFeature) iRemove(lineID string) error {
	_, err := f.svc.RemoveItem(context.Background(), session, lineID)
	return err
}

func (f *cartFeature) amountIs(name string, get func(*cart.Cart) decimal.Decimal) func(string) error {
	return func(amount string) error {
		want, err := decimal.NewFromString(amount)
		if err != nil {
			return err
		}
		c, err := f.current()
		if err != nil {
			return err
		}
		if got := get(c); !got.Equal(want) {
			return fmt.Errorf("%s is %s, want %s", name, got, want)
		}
		return nil
	}
}

func (f *cartFeature) iReloadTheCart() error {
	f.saved = f.cart.Lines()
	c, err := f.current()
	if err != nil {
		return err
	}
	f.cart = c
	return nil
}

func (f *cartFeature) theReloadedCartMatches() error {
	got := f.cart.Lines()
	if len(got) != len(f.saved) {
		return fmt.Errorf("reloaded %d lines, saved %d", len(got), len(f.saved))
	}
	for i := range got {
		want := f.saved[i]
		if got[i].ID != want.ID || got[i].ProductID != want.ProductID || got[i].Quantity != want.Quantity {
			return fmt.Errorf("line %d: got %+v, want %+v", i, got[i], want)
		}
		if !got[i].UnitTotal.Equal(want.UnitTotal) {
			return fmt.Errorf("line %d: unit total %s, want %s", i, got[i].UnitTotal, want.UnitTotal)
		}
		if !assert.ObjectsAreEqual(want.Options, got[i].Options) {
			return fmt.Errorf("line %d: options %v, want %v", i, got[i].Options, want.Options)
		}
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	f := &cartFeature{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, f.reset()
	})

	ctx.Step(`^the menu:$`, f.theMenu)
	ctx.Step(`^the "([^"]*)" option "([^"]*)" costs (\S+)$`, f.optionCosts)

	ctx.Step(`^I customize "([^"]*)"$`, f.iCustomize)
	ctx.Step(`^I choose (\w+) "([^"]*)"$`, f.iChoose)
	ctx.Step(`^the selection is (complete|incomplete)$`, f.theSelectionIs)
	ctx.Step(`^"([^"]*)" is not chosen$`, f.isNotChosen)

	ctx.Step(`^I add (\d+) of it to the cart$`, f.iAddOfIt)
	ctx.Step(`^I add (\d+) of "([^"]*)"$`, f.iAddOf)
	ctx.Step(`^adding it to the cart fails as incomplete$`, f.addingFailsAsIncomplete)
	ctx.Step(`^I set the quantity of "([^"]*)" to (-?\d+)$`, f.iSetTheQuantity)
	ctx.Step(`^I remove "([^"]*)"$`, f.iRemove)
	ctx.Step(`^I reload the cart$`, f.iReloadTheCart)

	ctx.Step(`^the cart has (\d+) lines?$`, f.theCartHasLines)
	ctx.Step(`^the line "([^"]*)" has quantity (\d+)$`, f.theLineHasQuantity)
	ctx.Step(`^the subtotal is (\S+)$`, f.amountIs("subtotal", (*cart.Cart).Subtotal))
	ctx.Step(`^the delivery fee is (\S+)$`, f.amountIs("delivery fee", (*cart.Cart).DeliveryFee))
	ctx.Step(`^the total is (\S+)$`, f.amountIs("total", (*cart.Cart).Total))
	ctx.Step(`^the reloaded cart matches the saved one$`, f.theReloadedCartMatches)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
