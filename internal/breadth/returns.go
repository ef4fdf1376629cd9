package breadth

import (
	"math"
	"sort"
	"time"

	"github.com/quantgems/marketbreadth/internal/domain/models"
)

// series is one symbol's return rows joined with same-date prices,
// newest first. Rank 1 is the latest row at or before the as-of date.
type series struct {
	dates   []int64 // unix days, descending
	returns []*float64
	closes  []float64
	volumes []float64
}

// PeriodReturns reconstructs each symbol's total return over a window
// of trading days, evaluating fallback strategies in priority order:
//
//  1. window of 1 with a stored daily return at rank 1: use it.
//  2. a close exists at rank windowDays+1 (full contiguous window):
//     close[1]/close[w+1] - 1.
//  3. exactly windowDays stored returns, each with 1+r > 0: compound
//     via exp(Σ ln(1+r)) - 1, which tolerates missing close rows and
//     avoids precision loss from iterative multiplication.
//  4. a positive close exists strictly before the window start:
//     close[1]/preWindowClose - 1.
//  5. otherwise the return is undefined (nil).
//
// A zero or negative denominator never divides; the strategy falls
// through. Symbols with no return rows at or before asOf are absent
// from the result. The universe is driven by the returns table;
// close/volume come from same-date price rows and are zero when the
// price row is missing.
func PeriodReturns(returns []models.DailyReturn, prices []models.DailyPrice, windowDays int) map[string]models.PeriodReturn {
	if windowDays < 1 {
		windowDays = 1
	}

	bySymbol := buildSeries(returns, prices)
	priceHistory := groupPricesDesc(prices)

	out := make(map[string]models.PeriodReturn, len(bySymbol))
	for symbol, s := range bySymbol {
		out[symbol] = periodReturnFor(s, priceHistory[symbol], windowDays)
	}
	return out
}

func periodReturnFor(s series, history []models.DailyPrice, windowDays int) models.PeriodReturn {
	latestReturn := s.returns[0]
	latestClose := s.closes[0]
	latestVolume := s.volumes[0]

	windowCount := len(s.dates)
	if windowCount > windowDays {
		windowCount = windowDays
	}

	var priorClose float64
	hasPriorClose := false
	if len(s.dates) > windowDays {
		priorClose = s.closes[windowDays]
		hasPriorClose = priorClose > 0
	}

	logSum := 0.0
	allPositive := true
	for i := 0; i < windowCount; i++ {
		r := 0.0
		if s.returns[i] != nil {
			r = *s.returns[i]
		}
		if 1+r <= 0 {
			allPositive = false
			continue
		}
		logSum += math.Log(1 + r)
	}

	// Fallback price: nearest positive close strictly before the
	// oldest return row inside the window.
	preWindowClose := 0.0
	if windowCount > 0 {
		windowStart := s.dates[windowCount-1]
		for _, p := range history {
			if unixDay(p.Date) < windowStart && p.Close > 0 {
				preWindowClose = p.Close
				break
			}
		}
	}

	pr := models.PeriodReturn{Volume: latestVolume, Close: latestClose}

	switch {
	case windowDays == 1 && latestReturn != nil:
		v := *latestReturn
		pr.Return = &v
	case hasPriorClose:
		v := latestClose/priorClose - 1
		pr.Return = &v
	case windowCount == windowDays && allPositive:
		v := math.Exp(logSum) - 1
		pr.Return = &v
	case preWindowClose > 0:
		v := latestClose/preWindowClose - 1
		pr.Return = &v
	}

	switch {
	case hasPriorClose:
		pr.PriorClose = &priorClose
	case windowCount == windowDays && allPositive && math.Exp(logSum) != 0:
		v := latestClose / math.Exp(logSum)
		pr.PriorClose = &v
	case preWindowClose > 0:
		pr.PriorClose = &preWindowClose
	}

	return pr
}

// Top selects the best period return, ties broken by symbol ascending
// so the pick is deterministic. Symbols with undefined returns lose to
// any defined return; with no defined returns at all the smallest
// symbol is reported so the response still names a row.
func Top(perSymbol map[string]models.PeriodReturn) *models.TopPerformer {
	if len(perSymbol) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(perSymbol))
	for s := range perSymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	best := ""
	for _, s := range symbols {
		if best == "" {
			best = s
			continue
		}
		cur, prev := perSymbol[s].Return, perSymbol[best].Return
		if prev == nil && cur != nil {
			best = s
			continue
		}
		if cur != nil && prev != nil && *cur > *prev {
			best = s
		}
	}

	pr := perSymbol[best]
	top := &models.TopPerformer{
		Symbol: best,
		Return: pr.Return,
		Volume: pr.Volume,
		Close:  pr.Close,
	}
	if pr.PriorClose != nil {
		top.PriorClose = *pr.PriorClose
	}
	return top
}

func buildSeries(returns []models.DailyReturn, prices []models.DailyPrice) map[string]series {
	type key struct {
		symbol string
		day    int64
	}
	closeAt := make(map[key]float64, len(prices))
	volumeAt := make(map[key]float64, len(prices))
	for _, p := range prices {
		k := key{p.Symbol, unixDay(p.Date)}
		closeAt[k] = p.Close
		volumeAt[k] = p.Volume
	}

	grouped := map[string][]models.DailyReturn{}
	for _, r := range returns {
		grouped[r.Symbol] = append(grouped[r.Symbol], r)
	}

	out := make(map[string]series, len(grouped))
	for symbol, rows := range grouped {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
		s := series{
			dates:   make([]int64, len(rows)),
			returns: make([]*float64, len(rows)),
			closes:  make([]float64, len(rows)),
			volumes: make([]float64, len(rows)),
		}
		for i, r := range rows {
			day := unixDay(r.Date)
			s.dates[i] = day
			s.returns[i] = r.Return
			k := key{symbol, day}
			s.closes[i] = closeAt[k]
			s.volumes[i] = volumeAt[k]
		}
		out[symbol] = s
	}
	return out
}

func groupPricesDesc(prices []models.DailyPrice) map[string][]models.DailyPrice {
	grouped := map[string][]models.DailyPrice{}
	for _, p := range prices {
		grouped[p.Symbol] = append(grouped[p.Symbol], p)
	}
	for symbol := range grouped {
		rows := grouped[symbol]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
		grouped[symbol] = rows
	}
	return grouped
}

func unixDay(t time.Time) int64 {
	return t.UTC().Truncate(24*time.Hour).Unix() / 86400
}
