package breadth

import (
	"regexp"
	"strconv"
	"strings"
)

// periodWindows maps a period label to its trading-day window size.
var periodWindows = map[string]int{
	"daily":     1,
	"weekly":    5,
	"monthly":   21,
	"quarterly": 63,
	"yearly":    252,
}

// WindowDays resolves a period label to a trading-day count. Unknown
// or empty labels normalize to the daily window; the API is permissive
// by contract.
func WindowDays(period string) int {
	if w, ok := periodWindows[strings.ToLower(strings.TrimSpace(period))]; ok {
		return w
	}
	return periodWindows["daily"]
}

// TopWindowDays is the window used for the "top performer" metric. The
// daily period uses a wider 20-day window so the headline mover is not
// dominated by single-session noise.
func TopWindowDays(period string) int {
	if WindowDays(period) == 1 {
		return 20
	}
	return WindowDays(period)
}

// LookbackDays returns the calendar-day fetch range needed to cover a
// trading-day window plus the 52-week and MA240 features (365 days).
// The window is doubled: weekends plus exchange holidays leave barely
// 252 trading days in 365 calendar days, so a tighter ratio would
// starve the yearly window of the rank w+1 prior close.
func LookbackDays(windowDays int) int {
	cal := windowDays*2 + 14
	if cal < 365 {
		return 365
	}
	return cal
}

// HistoryWindow sizes a price-history request: how far back to fetch
// and how to bucket the bars.
type HistoryWindow struct {
	LookbackDays int
	Bucket       Bucket
}

var historyPresets = map[string]HistoryWindow{
	"1D": {LookbackDays: 180, Bucket: BucketDay},
	"1W": {LookbackDays: 365, Bucket: BucketWeek},
	"1M": {LookbackDays: 365 * 3, Bucket: BucketMonth},
	"3M": {LookbackDays: 365 * 2, Bucket: BucketWeek},
	"6M": {LookbackDays: 365 * 4, Bucket: BucketMonth},
	"1Y": {LookbackDays: 365 * 6, Bucket: BucketMonth},
	"2Y": {LookbackDays: 365 * 8, Bucket: BucketMonth},
}

var historyPeriodRe = regexp.MustCompile(`^(\d+)([DWMY])$`)

// ResolveHistoryWindow maps a price-history period (preset like "1M"
// or the generic "<n><D|W|M|Y>" grammar) to a lookback and bucket.
// Anything unparsable falls back to 240 daily bars.
func ResolveHistoryWindow(period string) HistoryWindow {
	key := strings.ToUpper(strings.TrimSpace(period))
	if key == "" {
		key = "1M"
	}
	if hw, ok := historyPresets[key]; ok {
		return hw
	}

	if m := historyPeriodRe.FindStringSubmatch(key); m != nil {
		amount, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "D":
			return HistoryWindow{LookbackDays: maxInt(30, amount), Bucket: BucketDay}
		case "W":
			return HistoryWindow{LookbackDays: maxInt(90, amount*7), Bucket: BucketWeek}
		case "M":
			return HistoryWindow{LookbackDays: maxInt(180, amount*31), Bucket: BucketMonth}
		case "Y":
			return HistoryWindow{LookbackDays: maxInt(365, amount*365), Bucket: BucketMonth}
		}
	}

	return HistoryWindow{LookbackDays: 240, Bucket: BucketDay}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
