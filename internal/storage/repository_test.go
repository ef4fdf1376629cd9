package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/quantgems/marketbreadth/internal/domain/models"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

func newMockRepo(t *testing.T) (*marketRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &marketRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func TestResolveTradingDate_ExactMatch(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	day := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tw_stock_returns WHERE date = $1")).
		WithArgs(day).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1200))

	got, err := repo.ResolveTradingDate(context.Background(), &day)
	if err != nil {
		t.Fatalf("ResolveTradingDate: %v", err)
	}
	if !got.Equal(day) {
		t.Fatalf("want %v got %v", day, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveTradingDate_FallsBackToEarlierReturns(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	requested := time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC) // a Sunday
	friday := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tw_stock_returns WHERE date = $1")).
		WithArgs(requested).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date) FROM tw_stock_returns WHERE date <= $1")).
		WithArgs(requested).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(friday))

	got, err := repo.ResolveTradingDate(context.Background(), &requested)
	if err != nil {
		t.Fatalf("ResolveTradingDate: %v", err)
	}
	if !got.Equal(friday) {
		t.Fatalf("want %v got %v", friday, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveTradingDate_PricesFallbackThenGlobal(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	requested := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

	// No match anywhere at or before the requested date; global returns
	// maximum wins.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tw_stock_returns WHERE date = $1")).
		WithArgs(requested).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date) FROM tw_stock_returns WHERE date <= $1")).
		WithArgs(requested).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tw_stock_prices WHERE date = $1")).
		WithArgs(requested).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date) FROM tw_stock_prices WHERE date <= $1")).
		WithArgs(requested).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date) FROM tw_stock_returns")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))

	got, err := repo.ResolveTradingDate(context.Background(), &requested)
	if err != nil {
		t.Fatalf("ResolveTradingDate: %v", err)
	}
	if !got.Equal(latest) {
		t.Fatalf("want %v got %v", latest, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveTradingDate_EmptyDatabase(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date) FROM tw_stock_returns")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date) FROM tw_stock_prices")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	if _, err := repo.ResolveTradingDate(context.Background(), nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReturnRows_NullReturnStaysNil(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	asOf := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"symbol", "date", "daily_return"}).
		AddRow("2330.TW", asOf, 0.0123).
		AddRow("9999.TW", asOf, nil)

	mock.ExpectQuery(`SELECT r\.symbol, r\.date, r\.daily_return`).
		WithArgs(asOf, "all", 40).WillReturnRows(rows)

	out, err := repo.ReturnRows(context.Background(), asOf, "all", 40)
	if err != nil {
		t.Fatalf("ReturnRows: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 rows got %d", len(out))
	}
	if out[0].Return == nil || *out[0].Return != 0.0123 {
		t.Fatalf("first row return = %v", out[0].Return)
	}
	if out[1].Return != nil {
		t.Fatalf("null daily_return should scan to nil, got %v", *out[1].Return)
	}
}

func TestPriceRows_Scan(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	asOf := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"symbol", "date", "open", "high", "low", "close", "volume"}).
		AddRow("2330.TW", asOf, 1000.0, 1010.0, 995.0, 1005.0, 31000000.0)

	mock.ExpectQuery(`SELECT sp\.symbol, sp\.date`).
		WithArgs(asOf, "twse", 400).WillReturnRows(rows)

	out, err := repo.PriceRows(context.Background(), asOf, "twse", 400)
	if err != nil {
		t.Fatalf("PriceRows: %v", err)
	}
	if len(out) != 1 || out[0].High != 1010.0 || out[0].Volume != 31000000.0 {
		t.Fatalf("unexpected rows: %+v", out)
	}
}

func TestIndexVolume_NoRowIsZero(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	asOf := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COALESCE\(volume, 0\)`).
		WithArgs(asOf, "^TWII").WillReturnRows(sqlmock.NewRows([]string{"volume"}))

	v, err := repo.IndexVolume(context.Background(), asOf, "^TWII")
	if err != nil {
		t.Fatalf("IndexVolume: %v", err)
	}
	if v != 0 {
		t.Fatalf("want 0 got %v", v)
	}
}

func TestResolveSymbol(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT symbol\s+FROM tw_stock_prices`).
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}).AddRow("2330.TW"))

	got, err := repo.ResolveSymbol(context.Background(), []string{"2330", "2330.TW", "2330.TWO"})
	if err != nil {
		t.Fatalf("ResolveSymbol: %v", err)
	}
	if got != "2330.TW" {
		t.Fatalf("want 2330.TW got %s", got)
	}

	mock.ExpectQuery(`SELECT symbol\s+FROM tw_stock_prices`).
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}))
	if _, err := repo.ResolveSymbol(context.Background(), []string{"0000"}); !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData got %v", err)
	}
}

func TestLatestTwoCloses_NullPriorClose(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	asOf := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"symbol", "latest_close", "latest_volume", "prior_close"}).
		AddRow("2330.TW", 1005.0, 31000000.0, 1000.0).
		AddRow("6547.TWO", 55.0, 120000.0, nil)

	mock.ExpectQuery(`WITH latest_two AS`).
		WillReturnRows(rows)

	out, err := repo.LatestTwoCloses(context.Background(), asOf, []string{"2330.TW", "6547.TWO"})
	if err != nil {
		t.Fatalf("LatestTwoCloses: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 rows got %d", len(out))
	}
	if out[0].PriorClose == nil || *out[0].PriorClose != 1000.0 {
		t.Fatalf("first prior close = %v", out[0].PriorClose)
	}
	if out[1].PriorClose != nil {
		t.Fatalf("single-row symbol should have nil prior close")
	}
}

func TestIngestionLog_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	d := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)

	// HasIngestionForDate
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM ingestion_log WHERE file_date = $1)")).
		WithArgs(d).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.HasIngestionForDate(d)
	if err != nil || !ok {
		t.Fatalf("HasIngestionForDate: ok=%v err=%v", ok, err)
	}

	// UpsertIngestionLog
	mock.ExpectExec(`INSERT INTO ingestion_log`).
		WithArgs(d, "2025-07-04_TWQUOTES.csv", 1200).WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.UpsertIngestionLog(d, "2025-07-04_TWQUOTES.csv", 1200); err != nil {
		t.Fatalf("UpsertIngestionLog: %v", err)
	}

	// DeleteMarketDataByDate removes returns then prices in one tx.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tw_stock_returns WHERE date = $1")).
		WithArgs(d).WillReturnResult(sqlmock.NewResult(0, 1200))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tw_stock_prices WHERE date = $1")).
		WithArgs(d).WillReturnResult(sqlmock.NewResult(0, 1200))
	mock.ExpectCommit()
	if err := repo.DeleteMarketDataByDate(d); err != nil {
		t.Fatalf("DeleteMarketDataByDate: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshDailyReturns(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	d := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO tw_stock_returns`).
		WithArgs(d).WillReturnResult(sqlmock.NewResult(0, 1200))

	if err := repo.RefreshDailyReturns(context.Background(), d); err != nil {
		t.Fatalf("RefreshDailyReturns: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewMarketRepository_Construct(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()
	r := NewMarketRepository(db)
	if r == nil {
		t.Fatalf("expected non-nil repository")
	}
}

func TestInsertPricesBatch_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	// Expect transaction begin
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL synchronous_commit = OFF")).WillReturnResult(sqlmock.NewResult(0, 0))
	// We cannot intercept pq.CopyIn precisely. Use ExpectPrepare to allow any statement name,
	// then ExpectExec without args twice (for the row and final Exec()). Close/Commit happens normally.
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))     // row exec
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0)) // final Exec()
	mock.ExpectCommit()

	prices := []models.DailyPrice{
		{
			Symbol: "2330.TW",
			Date:   time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
			Open:   1000,
			High:   1010,
			Low:    995,
			Close:  1005,
			Volume: 31000000,
		},
	}

	// Since pq.CopyIn uses the driver-specific CopyIn, sqlmock doesn't support it natively.
	// We validate that the function performs BEGIN, SET, PREPARE/EXEC sequences and COMMIT without error.
	if err := repo.InsertPricesBatch(prices); err != nil {
		t.Fatalf("InsertPricesBatch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertPricesBatch_ErrorOnBegin(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin().WillReturnError(dummyErr{})
	if err := repo.InsertPricesBatch([]models.DailyPrice{{}}); err == nil {
		t.Fatalf("expected error on begin")
	}
}

func TestInsertPricesBatch_ErrorOnRowExec(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL synchronous_commit = OFF")).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(".*")
	// First row exec fails
	prep.ExpectExec().WillReturnError(dummyErr{})
	mock.ExpectRollback()

	if err := repo.InsertPricesBatch([]models.DailyPrice{{Symbol: "X"}}); err == nil {
		t.Fatalf("expected error on row exec")
	}
}

func TestInsertPricesBatch_ErrorOnFinalExec(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL synchronous_commit = OFF")).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	// Final Exec() after rows fails
	mock.ExpectExec(".*").WillReturnError(dummyErr{})
	mock.ExpectRollback()

	if err := repo.InsertPricesBatch([]models.DailyPrice{{Symbol: "X"}}); err == nil {
		t.Fatalf("expected error on final exec")
	}
}

// Note: We intentionally skip simulating stmt.Close() error path because sqlmock cannot intercept Close().
