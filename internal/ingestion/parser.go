package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantgems/marketbreadth/internal/domain/models"
	"github.com/quantgems/marketbreadth/internal/storage"
)

// expectedHeaders enforces strict column ordering for the daily Taiwan
// quote files. If the header doesn't match EXACTLY (order + count),
// ingestion must fail.
var expectedHeaders = []string{
	"Symbol",
	"Date",
	"Open",
	"High",
	"Low",
	"Close",
	"Volume",
}

// parseAndPersistFile opens, validates, parses, and persists one file in batches.
// It fails on:
//   - header not matching expected order/length
//   - unrecoverable I/O errors
//   - malformed dates or numbers
//
// It tolerates:
//   - empty price/volume cells (they become zero values, stored as NULL
//     prices by the repository)
//
// Parameters:
//   - ctx:    context for cancellation/timeouts.
//   - path:   file path.
//   - repo:   repository for DB insertion.
//   - batch:  batch size for inserts (e.g., 5000).
func parseAndPersistFile(ctx context.Context, path string, repo storage.MarketRepository, batch int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1 // allow variable but we’ll check explicitly

	// Validate headers strictly.
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(expectedHeaders) {
		return 0, fmt.Errorf("invalid header length: expected %d, got %d", len(expectedHeaders), len(header))
	}
	for i, h := range header {
		if strings.TrimSpace(h) != expectedHeaders[i] {
			return 0, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, expectedHeaders[i], h)
		}
	}

	// Parse rows streaming; flush batches to DB.
	buf := make([]models.DailyPrice, 0, batch)
	lineNumber := 1 // header already read

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := repo.InsertPricesBatch(buf); err != nil {
			return err
		}
		buf = buf[:0]
		return nil
	}

	total := 0

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("read line after %d: %w", lineNumber, err)
		}
		lineNumber++

		// Enforce structure: exactly 7 columns. If not, fail entire ingestion.
		if len(rec) != len(expectedHeaders) {
			return 0, fmt.Errorf("invalid column count on line %d: expected %d got %d", lineNumber, len(expectedHeaders), len(rec))
		}

		p, err := recordToPrice(rec)
		if err != nil {
			// Structural/format error → fail the whole pipeline.
			return 0, fmt.Errorf("line %d: %w", lineNumber, err)
		}

		buf = append(buf, p)
		total++
		if len(buf) >= batch {
			if err := flush(); err != nil {
				return 0, fmt.Errorf("flush batch ending line %d: %w", lineNumber, err)
			}
		}
	}

	// Final flush
	if err := flush(); err != nil {
		return 0, fmt.Errorf("final flush: %w", err)
	}

	return total, nil
}

// recordToPrice converts a single CSV record (already validated
// length==7) into a models.DailyPrice. It is STRICT about types/format
// but TOLERATES empty numeric cells, mapping them to zero-values.
//
// Column order:
//
//	0 Symbol → Symbol (string, required, uppercased)
//	1 Date   → Date (DATE, "2006-01-02", required)
//	2 Open   → Open (float, empty→0)
//	3 High   → High (float, empty→0)
//	4 Low    → Low (float, empty→0)
//	5 Close  → Close (float, empty→0)
//	6 Volume → Volume (float, empty→0)
func recordToPrice(rec []string) (models.DailyPrice, error) {
	var p models.DailyPrice

	p.Symbol = strings.ToUpper(strings.TrimSpace(rec[0]))
	if p.Symbol == "" {
		return p, fmt.Errorf("empty Symbol")
	}

	s := strings.TrimSpace(rec[1])
	if s == "" {
		return p, fmt.Errorf("empty Date")
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return p, fmt.Errorf("invalid Date: %v", err)
	}
	p.Date = d

	fields := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"Open", 2, &p.Open},
		{"High", 3, &p.High},
		{"Low", 4, &p.Low},
		{"Close", 5, &p.Close},
		{"Volume", 6, &p.Volume},
	}
	for _, f := range fields {
		s := strings.TrimSpace(rec[f.idx])
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %v", f.name, err)
		}
		if v < 0 {
			return p, fmt.Errorf("negative %s: %v", f.name, v)
		}
		*f.dst = v
	}

	return p, nil
}
