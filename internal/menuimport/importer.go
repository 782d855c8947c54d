package menuimport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/bits"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mixandtaste/internal/domain/menu"
)

const (
	defaultBloomCapacity = 1_000_000
	defaultBloomFPR      = 0.001
	defaultProgressEvery = 100_000
	maxLineSize          = 1 << 20
)

// MaxFiles is the number of exports one import can merge.
const MaxFiles = bits.UintSize

// Importer merges gzipped JSON Lines exports of branch menus into the
// catalog. Every line holds one ProductRecord. A product listed by several
// branches is imported once, from the first file that lists it.
type Importer struct {
	Catalog       Catalog
	Logger        *slog.Logger
	BloomCapacity uint
	BloomFPR      float64
	ProgressEvery uint64
}

// Stats summarizes an import run.
type Stats struct {
	Files      int
	Records    int
	Shared     int
	Imported   int
	Duplicates int
	Invalid    int
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger == nil {
		return slog.Default()
	}
	return im.Logger
}

func (im *Importer) progressEvery() uint64 {
	if im.ProgressEvery == 0 {
		return defaultProgressEvery
	}
	return im.ProgressEvery
}

// Run imports files in order.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	stats := Stats{Files: len(files)}
	if len(files) == 0 {
		return stats, nil
	}
	if len(files) > MaxFiles {
		return stats, errors.Errorf("at most %d files can be merged, got %d", MaxFiles, len(files))
	}
	lg := im.logger()

	// Pass 1: Build bloom filters concurrently.
	lg.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := im.buildBloomFilters(ctx, files)
	if err != nil {
		return stats, errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: Find products listed by 2+ files.
	lg.Info("pass 2: finding shared products")
	shared, err := im.findShared(ctx, files, filters)
	if err != nil {
		return stats, errors.Wrap(err, "find shared products")
	}
	stats.Shared = len(shared)
	lg.Info("shared products found", slog.Int("count", len(shared)))

	// Pass 3: Write, skipping shared products outside their first file.
	for i, path := range files {
		if err := im.importFile(ctx, i, path, shared, &stats); err != nil {
			return stats, errors.Wrapf(err, "import file %d", i+1)
		}
	}
	return stats, nil
}

// buildBloomFilters creates one bloom filter of product ids per file,
// concurrently.
func (im *Importer) buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	capacity, fpr := im.BloomCapacity, im.BloomFPR
	if capacity == 0 {
		capacity = defaultBloomCapacity
	}
	if fpr <= 0 || fpr >= 1 {
		fpr = defaultBloomFPR
	}

	filters := make([]*bloom.BloomFilter, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, fpr)
			var count uint64
			if err := streamFile(ctx, path, func(line []byte) error {
				id := recordID(line)
				if id == "" {
					return nil
				}
				filter.AddString(id)
				count++
				if count%im.progressEvery() == 0 {
					im.logger().Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("ids", count))
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}
			im.logger().Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("total_ids", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findShared re-streams each file and checks ids against the other files'
// filters. Each file marks only its own bit, so a bloom false positive never
// yields a mask with two bits set.
func (im *Importer) findShared(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]uint, error) {
	results := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			if err := streamFile(ctx, path, func(line []byte) error {
				id := recordID(line)
				if id == "" {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(id) {
						candidates[id] |= fileBit
						break
					}
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "scan file %d for shared ids", i+1)
			}
			im.logger().Info("pass 2 complete", slog.Int("file", i+1), slog.Int("candidates", len(candidates)))
			results[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for id, mask := range r {
			merged[id] |= mask
		}
	}
	for id, mask := range merged {
		if bits.OnesCount(mask) < 2 {
			delete(merged, id)
		}
	}
	return merged, nil
}

func (im *Importer) importFile(ctx context.Context, idx int, path string, shared map[string]uint, stats *Stats) error {
	lg := im.logger().With(slog.Int("file", idx+1))
	var imported int
	err := streamFile(ctx, path, func(line []byte) error {
		stats.Records++
		var rec ProductRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Invalid++
			lg.Warn("skipping malformed record", slog.String("error", err.Error()))
			return nil
		}
		if mask, ok := shared[rec.ID]; ok && bits.TrailingZeros(mask) != idx {
			stats.Duplicates++
			return nil
		}
		p := rec.Product()
		err := UpsertProduct(ctx, im.Catalog, &p)
		var verr *menu.ValidationError
		switch {
		case errors.As(err, &verr):
			stats.Invalid++
			lg.Warn("skipping invalid product", slog.String("id", rec.ID), slog.String("error", err.Error()))
			return nil
		case err != nil:
			return errors.Wrapf(err, "upsert product %q", rec.ID)
		}
		stats.Imported++
		imported++
		return nil
	})
	if err != nil {
		return err
	}
	lg.Info("file imported", slog.Int("products", imported))
	return nil
}

// recordID extracts the "id" field of a JSON object without decoding the
// rest of the record. Lines that are not objects yield "".
func recordID(line []byte) string {
	var id string
	d := jx.DecodeBytes(line)
	if d.Next() != jx.Object {
		return ""
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" || d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		id = v
		return err
	}); err != nil {
		return ""
	}
	return id
}

// streamFile opens a gzip-compressed JSON Lines file and calls fn for each
// non-blank line. The slice passed to fn is reused between calls.
func streamFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
