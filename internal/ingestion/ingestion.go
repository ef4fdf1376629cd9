package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantgems/marketbreadth/internal/logger"
	"github.com/quantgems/marketbreadth/internal/storage"
)

const (
	fileDateLayout   = "2006-01-02"
	fileSuffix       = "_TWQUOTES.csv"
	defaultBatchSize = 5000
)

// repoCtor is an indirection for creating the repository; tests can override this.
var repoCtor = func(db *sql.DB) storage.MarketRepository {
	return storage.NewMarketRepository(db)
}

// ProcessDirectory ingests the daily quote files of the last n trading
// days from dir.
//
// Parameters:
//   - dir: directory containing .csv input files.
//   - db:  open *sql.DB (PostgreSQL).
//
// Behavior:
//   - Expects one file per trading day named "YYYY-MM-DD_TWQUOTES.csv".
//     Absent files are logged and skipped; the exchange publishes no
//     file on holidays. Only an empty directory is an error.
//   - Uses a concurrency limit based on CPU count (min(7, NumCPU)).
//   - For each file, parses & inserts price rows in batches via repository,
//     then derives the daily returns for that date.
//   - Already-ingested dates are skipped unless force is set; force
//     deletes the date's prices and returns before reprocessing.
//   - If any file returns error, cancels the rest and returns that error.
//
// Returns:
//   - error: first error encountered (if any).
func ProcessDirectory(ctx context.Context, dir string, db *sql.DB, nDays int, parallel int, force bool) error {
	// use indirection to allow tests to swap repository constructor
	repo := repoCtor(db)

	// Build the list of the last n trading days.
	if nDays < 1 {
		nDays = 1
	}
	if nDays > 7 {
		nDays = 7
	}
	dates := LastNTradingDays(nDays, time.Now())

	// Build expected filenames & check presence upfront. Dates without
	// a file are exchange holidays (or not yet published) and skip.
	var files []string
	var missing []string

	for _, d := range dates {
		name := d.Format(fileDateLayout) + fileSuffix
		full := filepath.Join(dir, name)

		if _, err := os.Stat(full); err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, name)
				continue
			}
			return fmt.Errorf("stat failed for %s: %w", full, err)
		}
		files = append(files, full)
	}

	if len(missing) > 0 {
		logger.L().Warn().Strs("files", missing).Msg("input files absent, skipping dates")
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files found in %s", dir)
	}

	logger.L().Info().Int("files", len(files)).Str("dir", dir).Msg("ingestion start")

	// Concurrency: default to min(7, NumCPU), or use provided clamp(1..7)
	maxParallel := 7
	if parallel > 0 {
		if parallel > 7 {
			parallel = 7
		}
		maxParallel = parallel
	} else if c := runtime.NumCPU(); c < maxParallel {
		maxParallel = c
	}

	logger.L().Info().Int("max_parallel", maxParallel).Msg("ingestion configured")

	// errgroup will cancel siblings on first error.
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for i, file := range files {
		idx := i
		f := file
		sem <- struct{}{}

		g.Go(func() error {
			defer func() { <-sem }()
			start := time.Now()
			base := filepath.Base(f)
			logger.L().Info().Int("idx", idx+1).Int("total", len(files)).Str("file", base).Msg("file start")

			// Determine the trading date from the filename (YYYY-MM-DD_...)
			datePart := strings.TrimSuffix(base, fileSuffix)
			d, err := time.Parse(fileDateLayout, datePart)
			if err != nil {
				logger.L().Error().Str("file", base).Err(err).Msg("invalid date in filename")
				return fmt.Errorf("file %s: parse date from filename: %w", f, err)
			}

			// Idempotency: skip if already ingested, unless force
			exists, err := repo.HasIngestionForDate(d)
			if err != nil {
				logger.L().Error().Str("file", base).Err(err).Msg("check ingestion log failed")
				return fmt.Errorf("file %s: check ingestion log: %w", f, err)
			}
			if exists && !force {
				logger.L().Info().Int("idx", idx+1).Int("total", len(files)).Str("file", base).Bool("skipped", true).Msg("already ingested")
				return nil
			}
			if exists && force {
				// Delete existing data for that date and reprocess
				if err := repo.DeleteMarketDataByDate(d); err != nil {
					logger.L().Error().Str("file", base).Err(err).Msg("delete existing failed")
					return fmt.Errorf("file %s: delete existing: %w", f, err)
				}
			}

			// Process each file; this function:
			// - validates header/order/columns strictly
			// - parses rows tolerantly (empty numeric cells allowed)
			// - inserts in batches (defaultBatchSize)
			total, err := parseAndPersistFile(gctx, f, repo, defaultBatchSize)
			if err != nil {
				logger.L().Error().Str("file", base).Dur("elapsed", time.Since(start)).Err(err).Msg("file failed")
				return fmt.Errorf("file %s: %w", f, err)
			}

			// Derive daily returns from the freshly stored closes.
			if err := repo.RefreshDailyReturns(gctx, d); err != nil {
				logger.L().Error().Str("file", base).Err(err).Msg("refresh returns failed")
				return fmt.Errorf("file %s: refresh daily returns: %w", f, err)
			}

			if err := repo.UpsertIngestionLog(d, base, total); err != nil {
				logger.L().Error().Str("file", base).Err(err).Msg("update ingestion log failed")
				return fmt.Errorf("file %s: upsert ingestion log: %w", f, err)
			}
			logger.L().Info().Int("idx", idx+1).Int("total", len(files)).Str("file", base).Int("rows", total).Dur("elapsed", time.Since(start)).Bool("force", force).Msg("file done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return nil
}
