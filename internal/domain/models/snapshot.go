package models

// BreadthSnapshot is the computed, non-persisted result of one breadth
// aggregation request. Field names mirror the dashboard contract, so
// several counts appear twice under legacy aliases (advancersCount,
// risingStocks, ...). Pointer fields are JSON null when their sample
// denominator is empty.
//
// swagger:model BreadthSnapshot
type BreadthSnapshot struct {
	Advancers      int     `json:"advancers"`
	Decliners      int     `json:"decliners"`
	Unchanged      int     `json:"unchanged"`
	UnchangedCount int     `json:"unchangedCount"`
	AvgReturn      float64 `json:"avgReturn"`
	RisingStocks   int     `json:"risingStocks"`
	TopStock       string  `json:"topStock"`
	MaxReturn      float64 `json:"maxReturn"`

	NewHighStocks int `json:"newHighStocks"`
	NewLowStocks  int `json:"newLowStocks"`
	NewHighNet    int `json:"newHighNet"`
	NewHigh52w    int `json:"newHigh52w"`

	Greater2Count  int `json:"greater2Count"`
	LessNeg2Count  int `json:"lessNeg2Count"`
	LimitUpCount   int `json:"limitUpCount"`
	LimitDownCount int `json:"limitDownCount"`

	AdRatio      *float64 `json:"adRatio"`
	TrendPercent float64  `json:"trendPercent"`
	MedianReturn *float64 `json:"medianReturn"`

	Ma5Ratio         float64 `json:"ma5Ratio"`
	Ma5AboveCount    int     `json:"ma5AboveCount"`
	Ma5SampleCount   int     `json:"ma5SampleCount"`
	Ma10Ratio        float64 `json:"ma10Ratio"`
	Ma10AboveCount   int     `json:"ma10AboveCount"`
	Ma10SampleCount  int     `json:"ma10SampleCount"`
	Ma20Ratio        float64 `json:"ma20Ratio"`
	Ma20TrendPercent float64 `json:"ma20TrendPercent"`
	Ma20AboveCount   int     `json:"ma20AboveCount"`
	Ma20SampleCount  int     `json:"ma20SampleCount"`
	Ma60Ratio        float64 `json:"ma60Ratio"`
	Ma60TrendPercent float64 `json:"ma60TrendPercent"`
	Ma60AboveCount   int     `json:"ma60AboveCount"`
	Ma60SampleCount  int     `json:"ma60SampleCount"`
	Ma120Ratio       float64 `json:"ma120Ratio"`
	Ma120AboveCount  int     `json:"ma120AboveCount"`
	Ma120SampleCount int     `json:"ma120SampleCount"`
	Ma240Ratio       float64 `json:"ma240Ratio"`
	Ma240AboveCount  int     `json:"ma240AboveCount"`
	Ma240SampleCount int     `json:"ma240SampleCount"`

	GoldenCrossCount      int `json:"goldenCrossCount"`
	GoldenCross5_20       int `json:"goldenCross5_20"`
	GoldenCross10_60      int `json:"goldenCross10_60"`
	DeathCrossCount       int `json:"deathCrossCount"`
	DeathCross5_20        int `json:"deathCross5_20"`
	DeathCross10_60       int `json:"deathCross10_60"`
	BullishAlignmentCount int `json:"bullishAlignmentCount"`
	BearishAlignmentCount int `json:"bearishAlignmentCount"`

	AdlValue  int `json:"adlValue"`
	AdlChange int `json:"adlChange"`

	Gain5PlusCount int `json:"gain5PlusCount"`
	Gain2To5Count  int `json:"gain2To5Count"`
	Gain0To2Count  int `json:"gain0To2Count"`
	Loss5PlusCount int `json:"loss5PlusCount"`
	Loss2To5Count  int `json:"loss2To5Count"`
	Loss0To2Count  int `json:"loss0To2Count"`

	ActiveStocksCount   int `json:"activeStocksCount"`
	InactiveStocksCount int `json:"inactiveStocksCount"`

	HeavyLosersCount          int `json:"heavyLosersCount"`
	SevereDeclinersCount      int `json:"severeDeclinersCount"`
	CrashStocksCount          int `json:"crashStocksCount"`
	ConsecutiveDeclinersCount int `json:"consecutiveDeclinersCount"`
	BreakdownStocksCount      int `json:"breakdownStocksCount"`
	VolumeDryStocksCount      int `json:"volumeDryStocksCount"`

	TopVolume    float64 `json:"topVolume"`
	TopPrice     float64 `json:"topPrice"`
	TopPricePrev float64 `json:"topPricePrev"`

	MedianVolume      *float64 `json:"medianVolume"`
	UpDownVolumeRatio *float64 `json:"upDownVolumeRatio"`
	HiVolatilityRatio float64  `json:"hiVolatilityRatio"`

	AdvancersCount int `json:"advancersCount"`
	DeclinersCount int `json:"declinersCount"`
	TotalCount     int `json:"totalCount"`

	UpVolume    float64 `json:"upVolume"`
	DownVolume  float64 `json:"downVolume"`
	TotalVolume float64 `json:"totalVolume"`
	// TotalValue is sourced from the index proxy symbol's volume in
	// hundreds of billions, not a Σ(price×volume) over constituents.
	TotalValue          float64 `json:"totalValue"`
	ValueChange         float64 `json:"valueChange"`
	AvgValue20          float64 `json:"avgValue20"`
	HighVolatilityCount int     `json:"highVolatilityCount"`
}
