//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/mixandtaste/internal/domain/auth"
	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/order"
	"github.com/xenking/mixandtaste/internal/domain/pricing"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "mixandtaste",
				"POSTGRES_PASSWORD": "mixandtaste",
				"POSTGRES_DB":       "mixandtaste",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := c.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://mixandtaste:mixandtaste@%s:%s/mixandtaste?sslmode=disable", host, port.Port())
	pool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Applying the schema twice must be harmless.
	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations rerun: %v", err)
	}

	return m.Run()
}

func seedCategory(t *testing.T, id string) {
	t.Helper()
	err := NewCategoryRepository(pool).CreateCategory(context.Background(), &menu.Category{
		ID:     id,
		Name:   menu.LocalizedText{AR: id, EN: id},
		Active: true,
	})
	require.NoError(t, err)
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepository(pool)

	c := &menu.Category{ID: "grills", Name: menu.LocalizedText{AR: "مشويات", EN: "Grills"}, SortOrder: 2, Active: true}
	require.NoError(t, repo.CreateCategory(ctx, c))
	require.ErrorIs(t, repo.CreateCategory(ctx, c), menu.ErrConflict)

	got, err := repo.GetCategory(ctx, "grills")
	require.NoError(t, err)
	assert.Equal(t, *c, *got)

	c.Active = false
	require.NoError(t, repo.UpdateCategory(ctx, c))
	got, err = repo.GetCategory(ctx, "grills")
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, repo.DeleteCategory(ctx, "grills"))
	_, err = repo.GetCategory(ctx, "grills")
	require.ErrorIs(t, err, menu.ErrNotFound)
	require.ErrorIs(t, repo.DeleteCategory(ctx, "grills"), menu.ErrNotFound)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	seedCategory(t, "burgers-it")
	repo := NewProductRepository(pool)

	p := &menu.Product{
		ID:            "smash-it",
		CategoryID:    "burgers-it",
		Name:          menu.LocalizedText{AR: "سماش", EN: "Smash"},
		Price:         decimal.RequireFromString("45.00"),
		DiscountPrice: decimal.NewNullDecimal(decimal.RequireFromString("39.50")),
		Rating:        decimal.RequireFromString("4.5"),
		PrepTime:      "15 min",
		Available:     true,
	}
	require.NoError(t, repo.CreateProduct(ctx, p))

	got, err := repo.GetProduct(ctx, "smash-it")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(got.Price))
	require.True(t, got.DiscountPrice.Valid)
	assert.True(t, decimal.RequireFromString("39.50").Equal(got.EffectivePrice()))

	orphan := *p
	orphan.ID = "orphan-it"
	orphan.CategoryID = "missing"
	var vErr *menu.ValidationError
	require.ErrorAs(t, repo.CreateProduct(ctx, &orphan), &vErr)

	p.Available = false
	require.NoError(t, repo.UpdateProduct(ctx, p))

	all, err := repo.ListProducts(ctx, menu.ProductFilter{CategoryID: "burgers-it"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	available, err := repo.ListProducts(ctx, menu.ProductFilter{CategoryID: "burgers-it", AvailableOnly: true})
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = repo.GetProduct(ctx, "ghost")
	require.ErrorIs(t, err, menu.ErrNotFound)
}

func TestOfferRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOfferRepository(pool)

	until := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	o := &menu.Offer{
		ID:                 "ramadan-it",
		Title:              menu.LocalizedText{AR: "عرض رمضان", EN: "Ramadan offer"},
		DiscountPercentage: decimal.NewNullDecimal(decimal.NewFromInt(20)),
		ValidFrom:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:         &until,
		Active:             true,
	}
	require.NoError(t, repo.CreateOffer(ctx, o))

	got, err := repo.GetOffer(ctx, "ramadan-it")
	require.NoError(t, err)
	require.NotNil(t, got.ValidUntil)
	assert.True(t, until.Equal(*got.ValidUntil))
	assert.False(t, got.DiscountAmount.Valid)

	require.NoError(t, repo.DeleteOffer(ctx, "ramadan-it"))
	_, err = repo.GetOffer(ctx, "ramadan-it")
	require.ErrorIs(t, err, menu.ErrNotFound)
}

func TestPolicyRepository(t *testing.T) {
	ctx := context.Background()
	seedCategory(t, "meat-it")
	repo := NewPolicyRepository(pool)

	_, err := repo.Policy(ctx, "meat-it")
	require.ErrorIs(t, err, customization.ErrNoPolicy)

	static := customization.DefaultPolicies(customization.DefaultCatalog())
	meat := static["meat"]
	require.NoError(t, repo.ImportPolicies(ctx, customization.StaticPolicies{
		"meat-it": {CategoryID: "meat-it", RequiredTypes: meat.RequiredTypes, Options: meat.Options},
	}))

	p, err := repo.Policy(ctx, "meat-it")
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Equal(t, []customization.OptionType{customization.OptionPresentation}, p.RequiredTypes)
	assert.Len(t, p.ListOptions(customization.OptionPresentation), 3)
	assert.Len(t, p.ListOptions(customization.OptionBread), 6)

	m := customization.NewManager(repo)
	var pErr *customization.PolicyError
	for _, o := range p.ListOptions(customization.OptionPastaSauce)[1:] {
		require.NoError(t, m.DeleteOption(ctx, "meat-it", o.ID))
	}
	require.ErrorAs(t, m.DeleteOption(ctx, "meat-it", "white"), &pErr)

	require.ErrorIs(t, repo.DeleteOption(ctx, "meat-it", "ghost"), customization.ErrOptionNotFound)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	svc, err := order.NewService(NewOrderRepository(pool), pricing.DefaultDelivery(), noopMeter())
	require.NoError(t, err)

	placed, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		Customer: order.Customer{Name: "Sara", Phone: "0555", Address: "Tahlia St"},
		Items: []order.PlaceOrderItem{
			{ProductID: "smash", Quantity: 2, UnitPrice: decimal.RequireFromString("45.5")},
			{ProductID: "shish", Quantity: 1, UnitPrice: decimal.RequireFromString("60"), SelectedOptions: map[string]string{"presentation": "meal_rice"}},
		},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sara", got.Customer.Name)
	assert.True(t, decimal.RequireFromString("151.00").Equal(got.Total))
	assert.True(t, decimal.Zero.Equal(got.DeliveryFee))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "meal_rice", got.Items[1].SelectedOptions["presentation"])
	assert.Empty(t, got.Items[0].SelectedOptions)

	_, err = svc.UpdateStatus(ctx, placed.ID, order.StatusConfirmed)
	require.NoError(t, err)

	confirmed, err := svc.List(ctx, order.ListFilter{Status: order.StatusConfirmed})
	require.NoError(t, err)
	require.NotEmpty(t, confirmed)
	assert.Equal(t, placed.ID, confirmed[0].ID)

	_, err = svc.Get(ctx, "ghost")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCartStore(t *testing.T) {
	ctx := context.Background()
	store := NewCartStore(pool)

	_, err := store.Load(ctx, "session-it")
	require.ErrorIs(t, err, cart.ErrNoSnapshot)

	c := cart.New(cart.MergeBySelection, pricing.DefaultDelivery())
	_, err = c.Add(cart.Item{
		Product:   &menu.Product{ID: "shish", Name: menu.LocalizedText{AR: "شيش", EN: "Shish"}},
		Options:   map[customization.OptionType]string{"presentation": "sandwich", "bread": "saj"},
		Quantity:  2,
		UnitTotal: decimal.RequireFromString("60"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "session-it", c.Snapshot()))

	snap, err := store.Load(ctx, "session-it")
	require.NoError(t, err)
	restored := cart.New(cart.MergeBySelection, pricing.DefaultDelivery())
	restored.Restore(snap)
	assert.Equal(t, c.Lines(), restored.Lines())

	n, err := store.DeleteStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	a := auth.NewAuthenticator(NewAPIKeyRepository(pool), []byte("pepper"))

	key, _, err := a.Issue(ctx, "integration", auth.ScopeMenu)
	require.NoError(t, err)

	info, err := a.Authenticate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.ScopeMenu}, info.Scopes)

	_, err = a.Authenticate(ctx, "mt_wrong")
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	first, err := a.Register(ctx, "mt_fixed", "seed", auth.ScopeMenu)
	require.NoError(t, err)
	again, err := a.Register(ctx, "mt_fixed", "seed", auth.ScopeMenu, auth.ScopeOrders)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	info, err = a.Authenticate(ctx, "mt_fixed")
	require.NoError(t, err)
	assert.True(t, info.HasScope(auth.ScopeOrders))
}

func noopMeter() metricnoop.MeterProvider {
	return metricnoop.NewMeterProvider()
}
