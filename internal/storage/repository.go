package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/quantgems/marketbreadth/internal/domain/models"
)

// ErrNoData signals that no trading date (or symbol) resolves because
// the relevant tables hold nothing for the requested scope.
var ErrNoData = errors.New("no market data available")

// SymbolCloses carries the two most recent closes of one stored symbol
// at or before the as-of date, for the comparison endpoint.
type SymbolCloses struct {
	Symbol       string
	LatestClose  *float64
	LatestVolume *float64
	PriorClose   *float64
}

// MarketRepository defines the read queries behind the breadth
// endpoints and the write path used by ingestion.
type MarketRepository interface {
	ResolveTradingDate(ctx context.Context, requested *time.Time) (time.Time, error)
	ReturnRows(ctx context.Context, asOf time.Time, market string, lookbackDays int) ([]models.DailyReturn, error)
	PriceRows(ctx context.Context, asOf time.Time, market string, lookbackDays int) ([]models.DailyPrice, error)
	IndexVolume(ctx context.Context, asOf time.Time, symbol string) (float64, error)
	Symbols(ctx context.Context, market string) (map[string]models.SymbolMeta, error)
	MetaForSymbols(ctx context.Context, symbols []string) ([]models.SymbolMeta, error)
	LatestTwoCloses(ctx context.Context, asOf time.Time, symbols []string) ([]SymbolCloses, error)
	ReturnsForSymbols(ctx context.Context, asOf time.Time, symbols []string, lookbackDays int) ([]models.DailyReturn, error)
	ResolveSymbol(ctx context.Context, variants []string) (string, error)
	LatestPriceDate(ctx context.Context, symbol string) (time.Time, error)
	PriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyPrice, error)

	InsertPricesBatch(prices []models.DailyPrice) error
	DeleteMarketDataByDate(date time.Time) error
	RefreshDailyReturns(ctx context.Context, date time.Time) error
	HasIngestionForDate(date time.Time) (bool, error)
	UpsertIngestionLog(date time.Time, filename string, rowCount int) error
}

type marketRepository struct {
	db *sql.DB
}

func NewMarketRepository(db *sql.DB) MarketRepository {
	return &marketRepository{db: db}
}

// ResolveTradingDate finds the nearest usable trading date: exact or
// latest-before match in tw_stock_returns, then tw_stock_prices, then
// the global latest of each. ErrNoData when both tables are empty.
func (r *marketRepository) ResolveTradingDate(ctx context.Context, requested *time.Time) (time.Time, error) {
	if requested != nil {
		var cnt int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tw_stock_returns WHERE date = $1`, *requested).Scan(&cnt); err != nil {
			return time.Time{}, fmt.Errorf("returns exact match: %w", err)
		}
		if cnt > 0 {
			return *requested, nil
		}

		if d, ok, err := r.maxDate(ctx,
			`SELECT MAX(date) FROM tw_stock_returns WHERE date <= $1`, *requested); err != nil {
			return time.Time{}, err
		} else if ok {
			return d, nil
		}

		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tw_stock_prices WHERE date = $1`, *requested).Scan(&cnt); err != nil {
			return time.Time{}, fmt.Errorf("prices exact match: %w", err)
		}
		if cnt > 0 {
			return *requested, nil
		}

		if d, ok, err := r.maxDate(ctx,
			`SELECT MAX(date) FROM tw_stock_prices WHERE date <= $1`, *requested); err != nil {
			return time.Time{}, err
		} else if ok {
			return d, nil
		}
	}

	if d, ok, err := r.maxDate(ctx, `SELECT MAX(date) FROM tw_stock_returns`); err != nil {
		return time.Time{}, err
	} else if ok {
		return d, nil
	}
	if d, ok, err := r.maxDate(ctx, `SELECT MAX(date) FROM tw_stock_prices`); err != nil {
		return time.Time{}, err
	} else if ok {
		return d, nil
	}

	return time.Time{}, ErrNoData
}

func (r *marketRepository) maxDate(ctx context.Context, query string, args ...interface{}) (time.Time, bool, error) {
	var d sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&d); err != nil {
		return time.Time{}, false, fmt.Errorf("max date: %w", err)
	}
	return d.Time, d.Valid, nil
}

// ReturnRows fetches the daily returns of the market universe within
// the calendar lookback ending at asOf. daily_return stays nullable;
// the calculator decides what a missing value means.
func (r *marketRepository) ReturnRows(ctx context.Context, asOf time.Time, market string, lookbackDays int) ([]models.DailyReturn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.symbol, r.date, r.daily_return
		FROM tw_stock_returns r
		LEFT JOIN tw_stock_symbols s ON s.symbol = r.symbol
		WHERE r.date <= $1::date
		  AND r.date >= $1::date - ($3::int * INTERVAL '1 day')
		  AND ($2::text = 'all' OR s.market = $2::text)
	`, asOf, market, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("return rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanReturns(rows)
}

// PriceRows fetches OHLCV rows within the calendar lookback ending at
// asOf. Missing legs are coalesced to the close so downstream math
// never sees a half-empty bar.
func (r *marketRepository) PriceRows(ctx context.Context, asOf time.Time, market string, lookbackDays int) ([]models.DailyPrice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sp.symbol, sp.date,
		       COALESCE(sp.open_price, sp.close_price, 0)::float8,
		       COALESCE(sp.high_price, sp.close_price, 0)::float8,
		       COALESCE(sp.low_price, sp.close_price, 0)::float8,
		       COALESCE(sp.close_price, 0)::float8,
		       COALESCE(sp.volume, 0)::float8
		FROM tw_stock_prices sp
		LEFT JOIN tw_stock_symbols s ON s.symbol = sp.symbol
		WHERE sp.date <= $1::date
		  AND sp.date >= $1::date - ($3::int * INTERVAL '1 day')
		  AND ($2::text = 'all' OR s.market = $2::text)
	`, asOf, market, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("price rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPrices(rows)
}

// IndexVolume returns the market-index proxy's volume on the as-of
// date, or zero when the proxy row is absent.
func (r *marketRepository) IndexVolume(ctx context.Context, asOf time.Time, symbol string) (float64, error) {
	var v float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(volume, 0)::float8
		FROM tw_stock_prices
		WHERE symbol = $2 AND date = $1::date
		LIMIT 1
	`, asOf, symbol).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("index volume: %w", err)
	}
	return v, nil
}

// Symbols loads the reference rows for a market (or every market when
// the filter is "all"), keyed by symbol.
func (r *marketRepository) Symbols(ctx context.Context, market string) (map[string]models.SymbolMeta, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, COALESCE(name, ''), COALESCE(short_name, ''),
		       COALESCE(market, ''), COALESCE(industry, '')
		FROM tw_stock_symbols
		WHERE $1::text = 'all' OR market = $1::text
	`, market)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]models.SymbolMeta{}
	for rows.Next() {
		var m models.SymbolMeta
		if err := rows.Scan(&m.Symbol, &m.Name, &m.ShortName, &m.Market, &m.Industry); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out[m.Symbol] = m
	}
	return out, rows.Err()
}

// MetaForSymbols loads reference rows for an explicit symbol list.
func (r *marketRepository) MetaForSymbols(ctx context.Context, symbols []string) ([]models.SymbolMeta, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, COALESCE(name, ''), COALESCE(short_name, ''),
		       COALESCE(market, ''), COALESCE(industry, '')
		FROM tw_stock_symbols
		WHERE symbol = ANY($1::text[])
	`, pq.Array(symbols))
	if err != nil {
		return nil, fmt.Errorf("meta for symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.SymbolMeta
	for rows.Next() {
		var m models.SymbolMeta
		if err := rows.Scan(&m.Symbol, &m.Name, &m.ShortName, &m.Market, &m.Industry); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestTwoCloses returns each listed symbol's two most recent closes
// at or before asOf, with no lower date bound: a symbol that stopped
// trading long ago still resolves to its last known price.
func (r *marketRepository) LatestTwoCloses(ctx context.Context, asOf time.Time, symbols []string) ([]SymbolCloses, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH latest_two AS (
			SELECT symbol, close_price, volume,
			       ROW_NUMBER() OVER (PARTITION BY symbol ORDER BY date DESC) AS rn
			FROM tw_stock_prices
			WHERE date <= $1::date AND symbol = ANY($2::text[])
		)
		SELECT symbol,
		       MAX(close_price) FILTER (WHERE rn = 1) AS latest_close,
		       MAX(volume)      FILTER (WHERE rn = 1) AS latest_volume,
		       MAX(close_price) FILTER (WHERE rn = 2) AS prior_close
		FROM latest_two
		WHERE rn <= 2
		GROUP BY symbol
	`, asOf, pq.Array(symbols))
	if err != nil {
		return nil, fmt.Errorf("latest two closes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SymbolCloses
	for rows.Next() {
		var sc SymbolCloses
		var latest, volume, prior sql.NullFloat64
		if err := rows.Scan(&sc.Symbol, &latest, &volume, &prior); err != nil {
			return nil, fmt.Errorf("scan closes: %w", err)
		}
		sc.LatestClose = nullToPtr(latest)
		sc.LatestVolume = nullToPtr(volume)
		sc.PriorClose = nullToPtr(prior)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ReturnsForSymbols fetches daily returns of an explicit symbol list
// within a calendar lookback, for exact-date returns and volatility.
func (r *marketRepository) ReturnsForSymbols(ctx context.Context, asOf time.Time, symbols []string, lookbackDays int) ([]models.DailyReturn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, date, daily_return
		FROM tw_stock_returns
		WHERE date <= $1::date
		  AND date >= $1::date - ($3::int * INTERVAL '1 day')
		  AND symbol = ANY($2::text[])
	`, asOf, pq.Array(symbols), lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("returns for symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanReturns(rows)
}

// ResolveSymbol picks the stored symbol form with the most recent data
// among the given variants. ErrNoData when none is stored.
func (r *marketRepository) ResolveSymbol(ctx context.Context, variants []string) (string, error) {
	var symbol string
	err := r.db.QueryRowContext(ctx, `
		SELECT symbol
		FROM tw_stock_prices
		WHERE symbol = ANY($1::text[])
		GROUP BY symbol
		ORDER BY MAX(date) DESC, symbol
		LIMIT 1
	`, pq.Array(variants)).Scan(&symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoData
	}
	if err != nil {
		return "", fmt.Errorf("resolve symbol: %w", err)
	}
	return symbol, nil
}

// LatestPriceDate returns the newest stored date for a symbol.
func (r *marketRepository) LatestPriceDate(ctx context.Context, symbol string) (time.Time, error) {
	d, ok, err := r.maxDate(ctx, `SELECT MAX(date) FROM tw_stock_prices WHERE symbol = $1`, symbol)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, ErrNoData
	}
	return d, nil
}

// PriceHistory fetches one symbol's rows in [from, to], ascending.
func (r *marketRepository) PriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyPrice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, date,
		       COALESCE(open_price, close_price, 0)::float8,
		       COALESCE(high_price, close_price, 0)::float8,
		       COALESCE(low_price, close_price, 0)::float8,
		       COALESCE(close_price, 0)::float8,
		       COALESCE(volume, 0)::float8
		FROM tw_stock_prices
		WHERE symbol = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date ASC
	`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanPrices(rows)
}

func scanPrices(rows *sql.Rows) ([]models.DailyPrice, error) {
	var out []models.DailyPrice
	for rows.Next() {
		var p models.DailyPrice
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanReturns(rows *sql.Rows) ([]models.DailyReturn, error) {
	var out []models.DailyReturn
	for rows.Next() {
		var row models.DailyReturn
		var ret sql.NullFloat64
		if err := rows.Scan(&row.Symbol, &row.Date, &ret); err != nil {
			return nil, fmt.Errorf("scan return row: %w", err)
		}
		row.Return = nullToPtr(ret)
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullToPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// InsertPricesBatch inserts OHLCV rows in a single transaction using
// COPY. Zero prices map to NULL; a zero volume is a legitimate value
// and is kept.
func (r *marketRepository) InsertPricesBatch(prices []models.DailyPrice) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	// Small optimization for bulk load
	if _, err := tx.Exec(`SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(pq.CopyIn(
		"tw_stock_prices",
		"symbol",
		"date",
		"open_price",
		"high_price",
		"low_price",
		"close_price",
		"volume",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	toNullPrice := func(v float64) interface{} {
		if v == 0 {
			return nil
		}
		return v
	}

	for _, rec := range prices {
		if _, err := stmt.Exec(
			rec.Symbol,
			rec.Date,
			toNullPrice(rec.Open),
			toNullPrice(rec.High),
			toNullPrice(rec.Low),
			toNullPrice(rec.Close),
			rec.Volume,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// DeleteMarketDataByDate removes prices and derived returns for one
// trading date (forced reingestion path).
func (r *marketRepository) DeleteMarketDataByDate(date time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tw_stock_returns WHERE date = $1`, date); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM tw_stock_prices WHERE date = $1`, date); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RefreshDailyReturns derives tw_stock_returns for one date from the
// stored closes: close / previous close - 1, NULL when there is no
// usable prior close.
func (r *marketRepository) RefreshDailyReturns(ctx context.Context, date time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tw_stock_returns (symbol, date, daily_return)
		SELECT cur.symbol, cur.date,
		       CASE WHEN prev.close_price > 0
		            THEN cur.close_price / prev.close_price - 1
		       END
		FROM tw_stock_prices cur
		LEFT JOIN LATERAL (
			SELECT close_price
			FROM tw_stock_prices p
			WHERE p.symbol = cur.symbol AND p.date < cur.date
			ORDER BY p.date DESC
			LIMIT 1
		) prev ON TRUE
		WHERE cur.date = $1
		ON CONFLICT (symbol, date)
		DO UPDATE SET daily_return = EXCLUDED.daily_return
	`, date)
	if err != nil {
		return fmt.Errorf("refresh daily returns: %w", err)
	}
	return nil
}

// HasIngestionForDate checks if an ingestion was already recorded for a given trading day.
func (r *marketRepository) HasIngestionForDate(date time.Time) (bool, error) {
	var exists bool
	// ingestion_log.file_date is the canonical per-file day
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM ingestion_log WHERE file_date = $1)`, date).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// UpsertIngestionLog records (or updates) an ingestion entry for a given day.
func (r *marketRepository) UpsertIngestionLog(date time.Time, filename string, rowCount int) error {
	_, err := r.db.Exec(`
		INSERT INTO ingestion_log (file_date, filename, row_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_date)
		DO UPDATE SET filename = EXCLUDED.filename,
					  row_count = EXCLUDED.row_count,
					  ingested_at = NOW()
	`, date, filename, rowCount)
	return err
}
