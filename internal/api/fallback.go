package api

import (
	"time"

	"github.com/quantgems/marketbreadth/internal/domain/dto"
	"github.com/quantgems/marketbreadth/internal/domain/models"
)

// Fallback payloads served when USE_FALLBACK is enabled and live data
// cannot be computed. The numbers are static demo values; the
// Fallback flag tells clients not to treat them as market data.

func fp(v float64) *float64 { return &v }

func fallbackStatistics() *dto.StatisticsResponse {
	snap := models.BreadthSnapshot{
		Advancers:      512,
		Decliners:      431,
		Unchanged:      57,
		UnchangedCount: 57,
		RisingStocks:   512,
		AdvancersCount: 512,
		DeclinersCount: 431,
		TotalCount:     1000,
		AvgReturn:      0.42,
		MedianReturn:   fp(0.31),
		AdRatio:        fp(1.19),
		TrendPercent:   8.1,
		TopStock:       "2330.TW",
		MaxReturn:      9.87,
		NewHighStocks:  24,
		NewLowStocks:   11,
		NewHighNet:     13,
		NewHigh52w:     24,
		Ma20Ratio:      56.2,
		Ma60Ratio:      51.8,
		TotalValue:     3.52,
		AvgValue20:     3.52,
	}
	return &dto.StatisticsResponse{
		Data:     snap,
		AsOfDate: time.Now().UTC().Format("2006-01-02"),
		Fallback: true,
	}
}

func fallbackRankings(direction string) *dto.RankingsResponse {
	asOf := time.Now().UTC().Format("2006-01-02")
	rows := []dto.RankingRow{
		{Rank: 1, Symbol: "2330.TW", Name: "台積電", ShortName: "TSMC", ReturnRate: 3.25, CumulativeReturn: 3.25, Market: "twse", Industry: "半導體", CurrentPrice: 1005, PriorClose: 973.4, PriceChange: 31.6, ChangePercent: 3.25, LatestDate: asOf},
		{Rank: 2, Symbol: "2317.TW", Name: "鴻海", ShortName: "Foxconn", ReturnRate: 2.10, CumulativeReturn: 2.10, Market: "twse", Industry: "電子", CurrentPrice: 198, PriorClose: 193.9, PriceChange: 4.1, ChangePercent: 2.10, LatestDate: asOf},
		{Rank: 3, Symbol: "2454.TW", Name: "聯發科", ShortName: "MediaTek", ReturnRate: 1.45, CumulativeReturn: 1.45, Market: "twse", Industry: "半導體", CurrentPrice: 1250, PriorClose: 1232.1, PriceChange: 17.9, ChangePercent: 1.45, LatestDate: asOf},
	}
	if direction == "down" {
		for i := range rows {
			rows[i].ReturnRate = -rows[i].ReturnRate
			rows[i].CumulativeReturn = -rows[i].CumulativeReturn
			rows[i].ChangePercent = -rows[i].ChangePercent
			rows[i].PriceChange = -rows[i].PriceChange
		}
	}
	return &dto.RankingsResponse{
		Data:     rows,
		Count:    len(rows),
		AsOfDate: asOf,
		Fallback: true,
	}
}
