// Command stock-ingest loads warehouse stock feeds into the product catalog.
//
// Each feed is a gzip-compressed CSV of "product_id,units" lines, one feed per
// warehouse. Feeds routinely contain millions of lines for products this
// catalog does not carry, so known catalog IDs are loaded into a bloom filter
// first and feed lines are cheaply rejected against it before the exact check.
// Units for the same product are summed across feeds and written as the new
// stock level.
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

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"comptoirs/internal/repository"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz stock feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("stock ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("stock ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz feed files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := repository.NewProductRepository(pool)

	catalog, filter, err := loadCatalog(ctx, repo)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	slog.Info("scanning stock feeds",
		slog.Int("files", len(files)),
		slog.Int("catalog_size", len(catalog)),
	)

	totals, err := sumFeeds(ctx, files, catalog, filter)
	if err != nil {
		return errors.Wrap(err, "sum feeds")
	}

	slog.Info("writing stock levels", slog.Int("products", len(totals)))

	for id, units := range totals {
		if err := repo.SetStock(ctx, id, units); err != nil {
			return errors.Wrapf(err, "set stock for %s", id)
		}
	}

	return nil
}

// loadCatalog fetches all catalog product IDs and builds a bloom filter over
// them for cheap membership rejection of feed lines.
func loadCatalog(ctx context.Context, repo *repository.ProductRepository) (map[string]bool, *bloom.BloomFilter, error) {
	products, err := repo.List(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list products")
	}

	catalog := make(map[string]bool, len(products))
	filter := bloom.NewWithEstimates(uint(max(len(products), 1)), bloomFPR)
	for _, p := range products {
		catalog[p.ID] = true
		filter.AddString(p.ID)
	}
	return catalog, filter, nil
}

// sumFeeds scans all feed files concurrently and sums units per catalog
// product across them.
func sumFeeds(
	ctx context.Context,
	files []string,
	catalog map[string]bool,
	filter *bloom.BloomFilter,
) (map[string]int, error) {
	var (
		mu     sync.Mutex
		totals = make(map[string]int)
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			local, err := scanFeed(ctx, f, catalog, filter)
			if err != nil {
				return errors.Wrapf(err, "scan %s", f)
			}

			mu.Lock()
			for id, units := range local {
				totals[id] += units
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return totals, nil
}

// scanFeed streams one gzip feed and accumulates units for catalog products.
func scanFeed(ctx context.Context, path string, catalog map[string]bool, filter *bloom.BloomFilter) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	units := make(map[string]int)
	var lines uint64

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines++
		if lines%progressEvery == 0 {
			slog.Info("feed progress", slog.String("file", path), slog.Uint64("lines", lines))
		}

		id, qty, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		// Bloom filter rejects most unknown IDs without a map lookup.
		if !filter.TestString(id) || !catalog[id] {
			continue
		}
		units[id] += qty
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("feed complete",
		slog.String("file", path),
		slog.Uint64("lines", lines),
		slog.Int("matched", len(units)),
	)
	return units, nil
}

// parseLine splits a "product_id,units" feed line. Malformed lines and
// negative quantities are skipped.
func parseLine(line string) (id string, qty int, ok bool) {
	id, rest, found := strings.Cut(strings.TrimSpace(line), ",")
	if !found || id == "" {
		return "", 0, false
	}
	qty, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || qty < 0 {
		return "", 0, false
	}
	return id, qty, true
}
