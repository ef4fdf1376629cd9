package models

import "time"

// DailyPrice is one OHLCV row from tw_stock_prices.
// High/Low/Open are coalesced to the close at query time, so a row
// fetched through the repository never carries a missing leg.
type DailyPrice struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// DailyReturn is one row from tw_stock_returns. Return is nil for the
// first observation of a symbol (no prior close to derive from).
type DailyReturn struct {
	Symbol string
	Date   time.Time
	Return *float64
}

// SymbolMeta is the slowly-changing reference row from tw_stock_symbols.
type SymbolMeta struct {
	Symbol    string
	Name      string
	ShortName string
	Market    string
	Industry  string
}

// PeriodReturn is the per-symbol output of the period-return
// calculator. Return is nil when no fallback strategy could produce a
// defined value; such symbols still count toward universe totals.
type PeriodReturn struct {
	Return     *float64
	Volume     float64
	Close      float64
	PriorClose *float64
}

// TopPerformer is the best period return over the top-N window,
// ties broken by symbol ascending.
type TopPerformer struct {
	Symbol     string
	Return     *float64
	Volume     float64
	Close      float64
	PriorClose float64
}
