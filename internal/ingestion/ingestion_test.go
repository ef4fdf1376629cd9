package ingestion

import (
	"context"
	"database/sql"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/quantgems/marketbreadth/internal/storage"
)

// dummyDB satisfies *sql.DB usage but is nil internally; we never call db methods directly in tests due to repoCtor override.
func dummyDB() *sql.DB { return (*sql.DB)(nil) }

// file for a trading day with valid header and 2 rows
func sampleFile() string {
	return validHeader +
		"2330.TW,2025-07-04,1001,1010,998,1005,31000000\n" +
		"1101.TW,2025-07-04,40.1,40.5,39.8,40.2,2500000\n"
}

func overrideRepo(t *testing.T, r storage.MarketRepository) {
	t.Helper()
	old := repoCtor
	repoCtor = func(_ *sql.DB) storage.MarketRepository { return r }
	t.Cleanup(func() { repoCtor = old })
}

func TestLastNTradingDays_SkipsWeekends(t *testing.T) {
	// Monday 2025-07-07: the 3 prior trading days are Fri 4th, Thu 3rd, Wed 2nd.
	monday := time.Date(2025, 7, 7, 15, 30, 0, 0, time.UTC)
	days := LastNTradingDays(3, monday)
	want := []string{"2025-07-04", "2025-07-03", "2025-07-02"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i, d := range days {
		if got := d.Format("2006-01-02"); got != want[i] {
			t.Fatalf("day %d: want %s got %s", i, want[i], got)
		}
	}
}

func TestProcessDirectory_SkipIfAlreadyIngested(t *testing.T) {
	dir := t.TempDir()
	days := LastNTradingDays(1, time.Now())
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	day := days[0]
	fname := day.Format(fileDateLayout) + fileSuffix
	writeTempFile(t, dir, fname, sampleFile())

	fr := &fakeRepo{has: map[time.Time]bool{day: true}}
	overrideRepo(t, fr)

	if err := ProcessDirectory(context.Background(), dir, dummyDB(), 1, runtime.NumCPU(), false); err != nil {
		t.Fatalf("ProcessDirectory err: %v", err)
	}
	if fr.inserted != 0 {
		t.Fatalf("expected no inserts when already ingested, got %d", fr.inserted)
	}
	if fr.refreshed[day] {
		t.Fatalf("expected no return refresh for skipped day")
	}
}

func TestProcessDirectory_ForceReprocess(t *testing.T) {
	dir := t.TempDir()
	day := LastNTradingDays(1, time.Now())[0]
	fname := day.Format(fileDateLayout) + fileSuffix
	writeTempFile(t, dir, fname, sampleFile())

	fr := &fakeRepo{has: map[time.Time]bool{day: true}}
	overrideRepo(t, fr)

	if err := ProcessDirectory(context.Background(), dir, dummyDB(), 1, 1, true); err != nil {
		t.Fatalf("ProcessDirectory err: %v", err)
	}
	if !fr.deleted[day] {
		t.Fatalf("expected delete for %v", day)
	}
	if fr.inserted != 2 {
		t.Fatalf("expected 2 inserted rows, got %d", fr.inserted)
	}
	if !fr.refreshed[day] {
		t.Fatalf("expected daily returns refresh for %v", day)
	}
}

func TestProcessDirectory_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	// no files at all => nothing to ingest
	err := ProcessDirectory(context.Background(), dir, dummyDB(), 1, runtime.NumCPU(), false)
	if err == nil || !strings.Contains(err.Error(), "no input files found") {
		t.Fatalf("expected no-input-files error, got %v", err)
	}
}

func TestProcessDirectory_SkipsAbsentDates(t *testing.T) {
	dir := t.TempDir()
	days := LastNTradingDays(3, time.Now())
	// Only the most recent day has a file; the older two dates stand in
	// for exchange holidays the source published nothing for.
	fname := days[0].Format(fileDateLayout) + fileSuffix
	writeTempFile(t, dir, fname, sampleFile())

	fr := &fakeRepo{}
	overrideRepo(t, fr)

	if err := ProcessDirectory(context.Background(), dir, dummyDB(), 3, 1, false); err != nil {
		t.Fatalf("ProcessDirectory err: %v", err)
	}
	if fr.inserted != 2 {
		t.Fatalf("expected 2 inserted rows from the present file, got %d", fr.inserted)
	}
	if !fr.refreshed[days[0]] {
		t.Fatalf("expected daily returns refresh for %v", days[0])
	}
	if fr.refreshed[days[1]] || fr.refreshed[days[2]] {
		t.Fatalf("absent dates must not be processed")
	}
}

func TestProcessDirectory_HasIngestionError(t *testing.T) {
	dir := t.TempDir()
	day := LastNTradingDays(1, time.Now())[0]
	fname := day.Format(fileDateLayout) + fileSuffix
	writeTempFile(t, dir, fname, validHeader)

	overrideRepo(t, &fakeRepo{hasErr: context.DeadlineExceeded})

	if err := ProcessDirectory(context.Background(), dir, dummyDB(), 1, 1, false); err == nil {
		t.Fatalf("expected error from HasIngestionForDate")
	}
}

func TestProcessDirectory_RefreshReturnsError(t *testing.T) {
	dir := t.TempDir()
	day := LastNTradingDays(1, time.Now())[0]
	fname := day.Format(fileDateLayout) + fileSuffix
	writeTempFile(t, dir, fname, sampleFile())

	fr := &fakeRepo{refreshErr: context.Canceled}
	overrideRepo(t, fr)

	if err := ProcessDirectory(context.Background(), dir, dummyDB(), 1, 1, false); err == nil {
		t.Fatalf("expected error from RefreshDailyReturns")
	}
	if fr.has[day] {
		t.Fatalf("ingestion log must not be written when refresh fails")
	}
}

func TestProcessDirectory_UpsertLogError(t *testing.T) {
	dir := t.TempDir()
	day := LastNTradingDays(1, time.Now())[0]
	fname := day.Format(fileDateLayout) + fileSuffix
	writeTempFile(t, dir, fname, sampleFile())

	overrideRepo(t, &fakeRepo{upsertErr: context.Canceled})

	if err := ProcessDirectory(context.Background(), dir, dummyDB(), 1, 1, false); err == nil {
		t.Fatalf("expected error from UpsertIngestionLog")
	}
}
