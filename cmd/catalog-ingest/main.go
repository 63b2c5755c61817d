// Command catalog-ingest bulk-loads supplier SKU dumps into the product
// catalog.
//
// Supplier dumps are gzip-compressed text files with one SKU per line:
//
//	sku|name|category|price|sale_price|stock
//
// sale_price may be empty. Dumps from different suppliers can overlap; the
// first occurrence of a SKU wins and later duplicates are skipped. Files are
// ingested concurrently and a bloom filter keeps the duplicate check cheap
// for dumps with millions of lines.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/verdora/storefront/internal/domain/catalog"
	"github.com/verdora/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001

	progressEvery = 100_000

	fieldCount = 6
)

func main() {
	var (
		databaseURL string
		dataDir     string
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataDir, "data-dir", "data", "directory containing supplier .gz dumps")
	flag.IntVar(&workers, "workers", 4, "concurrent upsert workers")
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

	if err := run(ctx, databaseURL, dataDir, workers); err != nil {
		slog.Error("ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("ingest completed successfully")
}

func run(ctx context.Context, databaseURL, dataDir string, workers int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list dump files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz dump files found in %s", dataDir)
	}

	slog.Info("found supplier dumps", slog.Int("files", len(files)))

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	ing := &ingester{
		repo: postgres.NewProductRepository(pool),
		seen: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	// One goroutine per file parses lines; a shared worker pool upserts.
	products := make(chan catalog.Product, workers*4)

	g, ctx := errgroup.WithContext(ctx)

	readers, rctx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(func() error { return ing.readFile(rctx, f, products) })
	}
	g.Go(func() error {
		defer close(products)
		return readers.Wait()
	})

	for range workers {
		g.Go(func() error { return ing.upsertWorker(ctx, products) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("lines", ing.lines.Load()),
		slog.Uint64("skipped_duplicates", ing.dupes.Load()),
		slog.Uint64("skipped_malformed", ing.malformed.Load()),
		slog.Uint64("upserted", ing.upserted.Load()),
	)

	return nil
}

type ingester struct {
	repo *postgres.ProductRepository

	// seen tracks SKUs already accepted this run. Guarded by mu because
	// bloom filters are not safe for concurrent writes. A false positive
	// drops a genuinely new SKU, acceptable at the configured FPR.
	mu   sync.Mutex
	seen *bloom.BloomFilter

	lines     atomic.Uint64
	dupes     atomic.Uint64
	malformed atomic.Uint64
	upserted  atomic.Uint64
}

func (ing *ingester) readFile(ctx context.Context, path string, out chan<- catalog.Product) error {
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

	name := filepath.Base(path)
	var count uint64

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		count++
		ing.lines.Add(1)
		if count%progressEvery == 0 {
			slog.Info("ingest progress", slog.String("file", name), slog.Uint64("lines", count))
		}

		p, err := parseLine(scanner.Text())
		if err != nil {
			ing.malformed.Add(1)
			continue
		}

		if !ing.markNew(p.ID) {
			ing.dupes.Add(1)
			continue
		}

		select {
		case out <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("file complete", slog.String("file", name), slog.Uint64("lines", count))

	return nil
}

// markNew records the SKU and reports whether it was unseen.
func (ing *ingester) markNew(sku string) bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.seen.TestString(sku) {
		return false
	}
	ing.seen.AddString(sku)
	return true
}

func (ing *ingester) upsertWorker(ctx context.Context, in <-chan catalog.Product) error {
	for p := range in {
		if err := ing.repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		ing.upserted.Add(1)
	}
	return nil
}

func parseLine(line string) (catalog.Product, error) {
	fields := strings.Split(strings.TrimSpace(line), "|")
	if len(fields) != fieldCount {
		return catalog.Product{}, errors.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}

	sku := strings.TrimSpace(fields[0])
	name := strings.TrimSpace(fields[1])
	if sku == "" || name == "" {
		return catalog.Product{}, errors.New("empty sku or name")
	}

	price, err := decimal.NewFromString(fields[3])
	if err != nil {
		return catalog.Product{}, errors.Wrap(err, "parse price")
	}

	var salePrice decimal.Decimal
	if s := strings.TrimSpace(fields[4]); s != "" {
		if salePrice, err = decimal.NewFromString(s); err != nil {
			return catalog.Product{}, errors.Wrap(err, "parse sale price")
		}
	}

	stock, err := strconv.Atoi(strings.TrimSpace(fields[5]))
	if err != nil || stock < 0 {
		return catalog.Product{}, errors.New("parse stock")
	}

	return catalog.Product{
		ID:        sku,
		Name:      name,
		Price:     price,
		SalePrice: salePrice,
		Stock:     stock,
		Category:  strings.TrimSpace(fields[2]),
	}, nil
}
