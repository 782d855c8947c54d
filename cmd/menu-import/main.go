// Command menu-import merges gzipped JSON Lines menu exports from several
// branches into the catalog.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/menuimport"
	"github.com/xenking/mixandtaste/internal/storage/postgres"
)

func main() {
	var (
		dataDir       string
		databaseURL   string
		bloomCapacity uint
		bloomFPR      float64
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz branch exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&bloomCapacity, "bloom-capacity", 1_000_000, "expected products per export")
	flag.Float64Var(&bloomFPR, "bloom-fpr", 0.001, "bloom filter false positive rate")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	files := flag.Args()
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
		if err != nil {
			slog.Error("list exports", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slices.Sort(matches)
		files = matches
	}

	if err := run(ctx, databaseURL, files, bloomCapacity, bloomFPR); err != nil {
		slog.Error("menu import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, capacity uint, fpr float64) error {
	if len(files) == 0 {
		return errors.New("no export files found")
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	im := &menuimport.Importer{
		Catalog: menu.NewAdmin(
			postgres.NewCategoryRepository(pool),
			postgres.NewProductRepository(pool),
			postgres.NewOfferRepository(pool),
		),
		Logger:        slog.Default(),
		BloomCapacity: capacity,
		BloomFPR:      fpr,
	}
	stats, err := im.Run(ctx, files)
	if err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int("files", stats.Files),
		slog.Int("records", stats.Records),
		slog.Int("shared", stats.Shared),
		slog.Int("imported", stats.Imported),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("invalid", stats.Invalid),
	)
	return nil
}
