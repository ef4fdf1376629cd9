package breadth

import (
	"time"

	"github.com/quantgems/marketbreadth/internal/domain/models"
)

// maWindows are the moving-average breadth windows, as calendar-day
// lookbacks ending at the as-of date.
var maWindows = []int{5, 10, 20, 60, 120, 240}

// maMinSamples is the minimum observation count for a symbol to enter
// a window's breadth sample (roughly half the window).
var maMinSamples = map[int]int{5: 3, 10: 5, 20: 10, 60: 30, 120: 60, 240: 120}

const (
	limitUpBand   = 1.099 // Taiwan ±10% price limit with tolerance
	limitDownBand = 0.901
	highTolerance = 0.999 // extreme-day rounding absorption
	lowTolerance  = 1.001
)

// movingAverage is one symbol's trailing mean close for a window.
type movingAverage struct {
	Value   float64
	Samples int
}

// PriceFeatures carries everything the reducer needs from a symbol's
// price history: the as-of day bar, 52-week extremes, and the trailing
// moving averages.
type PriceFeatures struct {
	HasToday   bool
	TodayHigh  float64
	TodayLow   float64
	TodayClose float64

	Has52w  bool
	High52w float64
	Low52w  float64

	MA map[int]movingAverage
}

// ComputePriceFeatures derives per-symbol reducer inputs from price
// rows at or before asOf. Rows older than 365 calendar days are
// ignored.
func ComputePriceFeatures(prices []models.DailyPrice, asOf time.Time) map[string]PriceFeatures {
	asOfDay := unixDay(asOf)
	yearAgo := asOfDay - 365

	out := map[string]PriceFeatures{}
	type maAcc struct {
		sum     float64
		samples int
	}
	acc := map[string][]maAcc{}

	for _, p := range prices {
		day := unixDay(p.Date)
		if day > asOfDay || day < yearAgo {
			continue
		}

		f := out[p.Symbol]
		if day == asOfDay {
			f.HasToday = true
			f.TodayHigh = p.High
			f.TodayLow = p.Low
			f.TodayClose = p.Close
		}
		if !f.Has52w {
			f.Has52w = true
			f.High52w = p.High
			f.Low52w = p.Low
		} else {
			if p.High > f.High52w {
				f.High52w = p.High
			}
			if p.Low < f.Low52w {
				f.Low52w = p.Low
			}
		}
		out[p.Symbol] = f

		a := acc[p.Symbol]
		if a == nil {
			a = make([]maAcc, len(maWindows))
		}
		for i, w := range maWindows {
			if day >= asOfDay-int64(w)+1 {
				a[i].sum += p.Close
				a[i].samples++
			}
		}
		acc[p.Symbol] = a
	}

	for symbol, a := range acc {
		f := out[symbol]
		f.MA = make(map[int]movingAverage, len(maWindows))
		for i, w := range maWindows {
			if a[i].samples > 0 {
				f.MA[w] = movingAverage{Value: a[i].sum / float64(a[i].samples), Samples: a[i].samples}
			}
		}
		out[symbol] = f
	}
	return out
}

// Reduce folds the per-symbol period returns and price features into a
// market-wide breadth snapshot in a single pass over the universe.
// indexVolume is the market-index proxy's volume used for the traded
// value approximation; top is the precomputed top performer (may be
// nil).
func Reduce(perSymbol map[string]models.PeriodReturn, features map[string]PriceFeatures, indexVolume float64, top *models.TopPerformer) models.BreadthSnapshot {
	var snap models.BreadthSnapshot

	var (
		definedReturns []float64
		volumes        []float64
		sumReturn      float64
	)

	for symbol, pr := range perSymbol {
		snap.TotalCount++
		volumes = append(volumes, pr.Volume)
		snap.TotalVolume += pr.Volume
		feat := features[symbol]

		if pr.Return != nil {
			r := *pr.Return
			definedReturns = append(definedReturns, r)
			sumReturn += r

			switch {
			case r > 0:
				snap.Advancers++
			case r < 0:
				snap.Decliners++
			default:
				snap.Unchanged++
			}
			if r >= 0.02 {
				snap.Greater2Count++
			}
			if r <= -0.02 {
				snap.LessNeg2Count++
			}
			if r > 0.05 {
				snap.Gain5PlusCount++
			}
			if r >= 0.02 && r <= 0.05 {
				snap.Gain2To5Count++
			}
			if r > 0 && r < 0.02 {
				snap.Gain0To2Count++
			}
			if r < -0.05 {
				snap.Loss5PlusCount++
				snap.HeavyLosersCount++
			}
			if r >= -0.05 && r <= -0.02 {
				snap.Loss2To5Count++
			}
			if r < 0 && r > -0.02 {
				snap.Loss0To2Count++
			}
			if r < -0.07 {
				snap.SevereDeclinersCount++
			}
			if r < -0.10 {
				snap.CrashStocksCount++
			}
			if r >= 0.05 || r <= -0.05 {
				snap.HighVolatilityCount++
			}
			if r >= 0 {
				snap.UpVolume += pr.Volume
			} else {
				snap.DownVolume += pr.Volume
			}
		}

		if feat.HasToday && pr.PriorClose != nil && *pr.PriorClose > 0 {
			if feat.TodayHigh >= *pr.PriorClose*limitUpBand {
				snap.LimitUpCount++
			}
			if feat.TodayLow <= *pr.PriorClose*limitDownBand {
				snap.LimitDownCount++
			}
		}

		if feat.HasToday && feat.Has52w {
			if feat.TodayHigh >= feat.High52w*highTolerance {
				snap.NewHighStocks++
			}
			if feat.TodayLow <= feat.Low52w*lowTolerance {
				snap.NewLowStocks++
			}
		}

		reduceMA(&snap, pr, feat)
	}

	snap.UnchangedCount = snap.Unchanged
	snap.RisingStocks = snap.Advancers
	snap.AdvancersCount = snap.Advancers
	snap.DeclinersCount = snap.Decliners
	snap.NewHighNet = snap.NewHighStocks - snap.NewLowStocks
	snap.NewHigh52w = snap.NewHighStocks
	snap.AdlValue = snap.Advancers - snap.Decliners

	if len(definedReturns) > 0 {
		snap.AvgReturn = sumReturn / float64(len(definedReturns)) * 100
	}
	if m := percentileCont(definedReturns, 0.5); m != nil {
		v := *m * 100
		snap.MedianReturn = &v
	}
	if snap.Decliners > 0 {
		v := float64(snap.Advancers) / float64(snap.Decliners)
		snap.AdRatio = &v
	}
	if snap.TotalCount > 0 {
		snap.TrendPercent = float64(snap.Advancers-snap.Decliners) / float64(snap.TotalCount) * 100
		snap.HiVolatilityRatio = float64(snap.HighVolatilityCount) / float64(snap.TotalCount) * 100
	}
	if snap.DownVolume > 0 {
		v := snap.UpVolume / snap.DownVolume
		snap.UpDownVolumeRatio = &v
	}

	snap.MedianVolume = percentileCont(volumes, 0.5)
	if snap.MedianVolume != nil {
		median := *snap.MedianVolume
		for _, v := range volumes {
			if v > median {
				snap.ActiveStocksCount++
			}
			if v < median*0.5 {
				snap.VolumeDryStocksCount++
			}
		}
	}
	snap.InactiveStocksCount = snap.TotalCount - snap.ActiveStocksCount

	snap.Ma5Ratio = ratio(snap.Ma5AboveCount, snap.Ma5SampleCount)
	snap.Ma10Ratio = ratio(snap.Ma10AboveCount, snap.Ma10SampleCount)
	snap.Ma20Ratio = ratio(snap.Ma20AboveCount, snap.Ma20SampleCount)
	snap.Ma60Ratio = ratio(snap.Ma60AboveCount, snap.Ma60SampleCount)
	snap.Ma120Ratio = ratio(snap.Ma120AboveCount, snap.Ma120SampleCount)
	snap.Ma240Ratio = ratio(snap.Ma240AboveCount, snap.Ma240SampleCount)
	snap.Ma60TrendPercent = snap.Ma60Ratio - snap.Ma20Ratio
	snap.Ma20TrendPercent = snap.Ma20Ratio - snap.Ma60Ratio
	snap.GoldenCrossCount = snap.GoldenCross5_20 + snap.GoldenCross10_60
	snap.DeathCrossCount = snap.DeathCross5_20 + snap.DeathCross10_60

	// Traded value proxy: the weighted index reports value through its
	// volume field, in hundreds of billions.
	snap.TotalValue = indexVolume / 100000000000.0
	snap.AvgValue20 = snap.TotalValue

	snap.TopStock = "N/A"
	if top != nil {
		snap.TopStock = top.Symbol
		if top.Return != nil {
			snap.MaxReturn = *top.Return * 100
		}
		snap.TopVolume = top.Volume
		snap.TopPrice = top.Close
		snap.TopPricePrev = top.PriorClose
	}

	return snap
}

// reduceMA accumulates the moving-average sample/above counts,
// crossover signals and alignment counts for one symbol.
func reduceMA(snap *models.BreadthSnapshot, pr models.PeriodReturn, feat PriceFeatures) {
	sampleOK := func(w int) bool {
		ma, ok := feat.MA[w]
		return ok && ma.Samples >= maMinSamples[w]
	}
	above := func(w int) bool {
		return sampleOK(w) && feat.HasToday && feat.TodayClose >= feat.MA[w].Value
	}

	if sampleOK(5) {
		snap.Ma5SampleCount++
	}
	if above(5) {
		snap.Ma5AboveCount++
	}
	if sampleOK(10) {
		snap.Ma10SampleCount++
	}
	if above(10) {
		snap.Ma10AboveCount++
	}
	if sampleOK(20) {
		snap.Ma20SampleCount++
	}
	if above(20) {
		snap.Ma20AboveCount++
	}
	if sampleOK(60) {
		snap.Ma60SampleCount++
	}
	if above(60) {
		snap.Ma60AboveCount++
	}
	if sampleOK(120) {
		snap.Ma120SampleCount++
	}
	if above(120) {
		snap.Ma120AboveCount++
	}
	if sampleOK(240) {
		snap.Ma240SampleCount++
	}
	if above(240) {
		snap.Ma240AboveCount++
	}

	if sampleOK(60) && feat.HasToday && feat.TodayClose < feat.MA[60].Value {
		snap.BreakdownStocksCount++
	}

	ma5, ok5 := feat.MA[5]
	ma10, ok10 := feat.MA[10]
	ma20, ok20 := feat.MA[20]
	ma60, ok60 := feat.MA[60]

	if ok5 && ok20 {
		if ma5.Value > ma20.Value {
			snap.GoldenCross5_20++
		}
		if ma5.Value < ma20.Value {
			snap.DeathCross5_20++
		}
	}
	if ok10 && ok60 {
		if ma10.Value > ma60.Value {
			snap.GoldenCross10_60++
		}
		if ma10.Value < ma60.Value {
			snap.DeathCross10_60++
		}
	}
	if ok5 && ok10 && ok20 && ok60 {
		if ma5.Value > ma10.Value && ma10.Value > ma20.Value && ma20.Value > ma60.Value {
			snap.BullishAlignmentCount++
		}
		if ma5.Value < ma10.Value && ma10.Value < ma20.Value && ma20.Value < ma60.Value {
			snap.BearishAlignmentCount++
		}
	}
}

func ratio(above, sample int) float64 {
	if sample == 0 {
		return 0
	}
	return float64(above) / float64(sample) * 100
}
