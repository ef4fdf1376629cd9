package dto

import "github.com/quantgems/marketbreadth/internal/domain/models"

// StatisticsResponse wraps one breadth snapshot for the statistics
// endpoint. Fallback is set only when a degraded demo payload is
// served in place of live data.
type StatisticsResponse struct {
	Data     models.BreadthSnapshot `json:"data"`
	AsOfDate string                 `json:"asOfDate" example:"2024-01-31"`
	Fallback bool                   `json:"fallback,omitempty"`
}

// RankingRow is one entry of the rankings endpoint, sorted by period
// return. ReturnRate and ChangePercent are percentages.
type RankingRow struct {
	Rank             int     `json:"rank" example:"1"`
	Symbol           string  `json:"symbol" example:"2330.TW"`
	Name             string  `json:"name" example:"台積電"`
	ShortName        string  `json:"short_name"`
	ReturnRate       float64 `json:"return_rate" example:"3.25"`
	Volume           float64 `json:"volume"`
	CumulativeReturn float64 `json:"cumulative_return"`
	Market           string  `json:"market" example:"TWSE"`
	Industry         string  `json:"industry"`
	CurrentPrice     float64 `json:"current_price"`
	PriorClose       float64 `json:"prior_close"`
	PriceChange      float64 `json:"price_change"`
	ChangePercent    float64 `json:"change_percent"`
	LatestDate       string  `json:"latest_date" example:"2024-01-31"`
}

// RankingsResponse is the rankings endpoint envelope.
type RankingsResponse struct {
	Data     []RankingRow `json:"data"`
	Count    int          `json:"count"`
	AsOfDate string       `json:"asOfDate"`
	Fallback bool         `json:"fallback,omitempty"`
}

// ComparisonRow is one requested symbol of the comparison endpoint.
// All pointer fields are null (and Missing true) when the symbol does
// not resolve to any stored data.
type ComparisonRow struct {
	Symbol     string   `json:"symbol"`
	Name       *string  `json:"name"`
	ShortName  *string  `json:"short_name"`
	Market     *string  `json:"market"`
	Price      *float64 `json:"price"`
	PriorClose *float64 `json:"prior_close"`
	Volume     *float64 `json:"volume"`
	Return     *float64 `json:"return"`
	Volatility *float64 `json:"volatility"`
	Missing    bool     `json:"missing"`
}

// ComparisonResponse is the comparison endpoint envelope. AsOfDate is
// null when no trading date resolved.
type ComparisonResponse struct {
	Data     []ComparisonRow `json:"data"`
	Count    int             `json:"count"`
	AsOfDate *string         `json:"asOfDate"`
	Fallback bool            `json:"fallback,omitempty"`
}

// OHLCVBar is one bucketed bar of the price-history endpoint. Date and
// Time both carry the last constituent date of the bucket.
type OHLCVBar struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date" example:"2024-01-31"`
	Time   string  `json:"time" example:"2024-01-31"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// PriceHistoryResponse is the price-history endpoint envelope.
type PriceHistoryResponse struct {
	Data     []OHLCVBar `json:"data"`
	Symbol   string     `json:"symbol"`
	AsOfDate *string    `json:"asOfDate"`
	Period   string     `json:"period,omitempty"`
	FromDate *string    `json:"fromDate,omitempty"`
	Bucket   string     `json:"bucket,omitempty"`
}
