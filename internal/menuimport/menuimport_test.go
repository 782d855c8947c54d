package menuimport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mixandtaste/db"
	"github.com/xenking/mixandtaste/internal/domain/menu"
)

type memCatalog struct {
	categories map[string]menu.Category
	products   map[string]menu.Product
	offers     map[string]menu.Offer
	creates    int
	updates    int
}

func newMemCatalog(categories ...string) *memCatalog {
	c := &memCatalog{
		categories: make(map[string]menu.Category),
		products:   make(map[string]menu.Product),
		offers:     make(map[string]menu.Offer),
	}
	for _, id := range categories {
		c.categories[id] = menu.Category{ID: id}
	}
	return c
}

func (c *memCatalog) CreateCategory(_ context.Context, v *menu.Category) error {
	if _, ok := c.categories[v.ID]; ok {
		return menu.ErrConflict
	}
	c.creates++
	c.categories[v.ID] = *v
	return nil
}

func (c *memCatalog) UpdateCategory(_ context.Context, v *menu.Category) error {
	c.updates++
	c.categories[v.ID] = *v
	return nil
}

func (c *memCatalog) CreateProduct(_ context.Context, v *menu.Product) error {
	if _, ok := c.categories[v.CategoryID]; !ok {
		return &menu.ValidationError{Field: "category_id", Reason: "unknown category " + v.CategoryID}
	}
	if _, ok := c.products[v.ID]; ok {
		return menu.ErrConflict
	}
	c.creates++
	c.products[v.ID] = *v
	return nil
}

func (c *memCatalog) UpdateProduct(_ context.Context, v *menu.Product) error {
	c.updates++
	c.products[v.ID] = *v
	return nil
}

func (c *memCatalog) CreateOffer(_ context.Context, v *menu.Offer) error {
	if _, ok := c.offers[v.ID]; ok {
		return menu.ErrConflict
	}
	c.creates++
	c.offers[v.ID] = *v
	return nil
}

func (c *memCatalog) UpdateOffer(_ context.Context, v *menu.Offer) error {
	c.updates++
	c.offers[v.ID] = *v
	return nil
}

func writeExport(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func product(id, category, price, name string) string {
	return `{"id":"` + id + `","category_id":"` + category + `","name":{"ar":"` + name + `","en":"` + name +
		`"},"price":` + price + `}`
}

func TestImporter_MergesBranchExports(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeExport(t, dir, "branch1.jsonl.gz",
			product("classic-burger", "burger", "95", "Classic"),
			product("hummus", "starters", "60", "Hummus"),
		),
		writeExport(t, dir, "branch2.jsonl.gz",
			product("classic-burger", "burger", "99", "Classic Branch 2"),
			"",
			product("shish-tawook", "chicken", "140", "Shish"),
			`{"id":"broken",`,
		),
		writeExport(t, dir, "branch3.jsonl.gz",
			product("hummus", "starters", "65", "Hummus Branch 3"),
			product("pizza", "pizza", "120", "Pizza"),
		),
	}
	catalog := newMemCatalog("burger", "starters", "chicken")

	im := &Importer{Catalog: catalog, BloomCapacity: 1000}
	stats, err := im.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Files:      3,
		Records:    7,
		Shared:     2,
		Imported:   3,
		Duplicates: 2,
		Invalid:    2,
	}, stats)

	require.Len(t, catalog.products, 3)
	burger := catalog.products["classic-burger"]
	assert.True(t, burger.Price.Equal(decimal.NewFromInt(95)), "first file wins")
	assert.Equal(t, "Classic", burger.Name.EN)
	assert.True(t, catalog.products["hummus"].Price.Equal(decimal.NewFromInt(60)))
	assert.True(t, catalog.products["shish-tawook"].Available)
	assert.NotContains(t, catalog.products, "pizza")
}

func TestImporter_UpdatesExistingProducts(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir, "branch.jsonl.gz", product("hummus", "starters", "70", "Hummus"))
	catalog := newMemCatalog("starters")
	catalog.products["hummus"] = menu.Product{ID: "hummus", CategoryID: "starters", Price: decimal.NewFromInt(60)}

	stats, err := (&Importer{Catalog: catalog}).Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 1, catalog.updates)
	assert.True(t, catalog.products["hummus"].Price.Equal(decimal.NewFromInt(70)))
}

func TestImporter_Errors(t *testing.T) {
	im := &Importer{Catalog: newMemCatalog()}

	stats, err := im.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Records)

	_, err = im.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.jsonl.gz")})
	require.Error(t, err)

	plain := filepath.Join(t.TempDir(), "plain.jsonl.gz")
	require.NoError(t, os.WriteFile(plain, []byte(`{"id":"x"}`), 0o600))
	_, err = im.Run(context.Background(), []string{plain})
	require.Error(t, err)

	_, err = im.Run(context.Background(), make([]string, MaxFiles+1))
	require.ErrorContains(t, err, "at most")
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{line: `{"id":"hummus","price":60}`, want: "hummus"},
		{line: `{"name":{"id":"nested"},"id":"outer"}`, want: "outer"},
		{line: `{"price":60}`, want: ""},
		{line: `{"id":42}`, want: ""},
		{line: `[1,2]`, want: ""},
		{line: `{"id":"trunc`, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recordID([]byte(tt.line)), tt.line)
	}
}

func TestSeed_BundledMenu(t *testing.T) {
	doc, err := ParseDocument(db.SeedMenu)
	require.NoError(t, err)
	require.NotEmpty(t, doc.Categories)
	require.NotEmpty(t, doc.Products)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	catalog := newMemCatalog()
	res, err := Seed(context.Background(), catalog, doc, now)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{
		Categories: len(doc.Categories),
		Products:   len(doc.Products),
		Offers:     len(doc.Offers),
	}, res)

	for _, id := range []string{"burger", "meat", "chicken"} {
		assert.Contains(t, catalog.categories, id)
	}
	for _, p := range catalog.products {
		assert.NoError(t, p.Validate(), p.ID)
	}

	// Seeding twice replaces instead of failing.
	_, err = Seed(context.Background(), catalog, doc, now)
	require.NoError(t, err)
	assert.Equal(t, len(doc.Categories)+len(doc.Products)+len(doc.Offers), catalog.updates)
}

func TestRecords_Defaults(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"categories": [{"id":"drinks","name":{"ar":"مشروبات","en":"Drinks"}}],
		"products": [{"id":"mint-lemon","category_id":"drinks","name":{"ar":"ليمون نعناع","en":"Mint Lemonade"},
			"price":"35","discount_price":"30","available":false}],
		"offers": [{"id":"family","title":{"ar":"عرض العائلة","en":"Family deal"},"discount_percentage":"15"}]
	}`))
	require.NoError(t, err)

	assert.True(t, doc.Categories[0].Category().Active)

	p := doc.Products[0].Product()
	assert.False(t, p.Available)
	require.True(t, p.DiscountPrice.Valid)
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(30)))

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	o := doc.Offers[0].Offer(now)
	assert.Equal(t, now, o.ValidFrom)
	assert.Nil(t, o.ValidUntil)
	assert.True(t, o.ActiveAt(now))
	assert.False(t, o.DiscountAmount.Valid)

	_, err = ParseDocument([]byte(`{"products": 1}`))
	require.Error(t, err)
}
