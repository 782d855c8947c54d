// Command seed-db loads the demo catalog, the customization policies and an
// admin API key into the database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/mixandtaste/db"
	"github.com/xenking/mixandtaste/internal/domain/auth"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/menuimport"
	"github.com/xenking/mixandtaste/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	menuFile     string
	apiKey       string
	apiKeyPepper string
	skipPolicies bool
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.menuFile, "menu-file", "", "path to a catalog JSON file (defaults to the bundled menu)")
	flag.StringVar(&opts.apiKey, "api-key", "", "admin API key to seed (or KART_SEED_API_KEY env); generated when empty")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.BoolVar(&opts.skipPolicies, "skip-policies", false, "do not import the built-in customization policies")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("KART_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("KART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	data := db.SeedMenu
	if opts.menuFile != "" {
		slog.Info("reading menu file", slog.String("path", opts.menuFile))
		b, err := os.ReadFile(opts.menuFile)
		if err != nil {
			return errors.Wrap(err, "read menu file")
		}
		data = b
	}
	doc, err := menuimport.ParseDocument(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalog := menu.NewAdmin(
		postgres.NewCategoryRepository(pool),
		postgres.NewProductRepository(pool),
		postgres.NewOfferRepository(pool),
	)
	res, err := menuimport.Seed(ctx, catalog, doc, time.Now())
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	slog.Info("seeded catalog",
		slog.Int("categories", res.Categories),
		slog.Int("products", res.Products),
		slog.Int("offers", res.Offers),
	)

	if !opts.skipPolicies {
		policies := customization.DefaultPolicies(customization.DefaultCatalog())
		if err := postgres.NewPolicyRepository(pool).ImportPolicies(ctx, policies); err != nil {
			return errors.Wrap(err, "seed policies")
		}
		slog.Info("seeded customization policies", slog.Int("categories", len(policies)))
	}

	if err := seedAPIKey(ctx, auth.NewAuthenticator(postgres.NewAPIKeyRepository(pool), []byte(opts.apiKeyPepper)), opts.apiKey); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedAPIKey(ctx context.Context, a *auth.Authenticator, key string) error {
	scopes := []string{auth.ScopeMenu, auth.ScopeOrders}
	if key != "" {
		info, err := a.Register(ctx, key, "Seeded admin key", scopes...)
		if err != nil {
			return err
		}
		slog.Info("registered API key", slog.String("id", info.ID), slog.Any("scopes", info.Scopes))
		return nil
	}

	key, info, err := a.Issue(ctx, "Seeded admin key", scopes...)
	if err != nil {
		return err
	}
	// Printed once; only the hash is stored.
	slog.Info("issued API key", slog.String("id", info.ID), slog.String("key", key), slog.Any("scopes", info.Scopes))
	return nil
}
