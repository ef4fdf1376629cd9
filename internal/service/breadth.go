package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantgems/marketbreadth/internal/breadth"
	"github.com/quantgems/marketbreadth/internal/domain/dto"
	"github.com/quantgems/marketbreadth/internal/domain/models"
	"github.com/quantgems/marketbreadth/internal/storage"
)

// indexProxySymbol reports traded value through its volume field and
// is excluded from per-stock rankings.
const indexProxySymbol = "^TWII"

const (
	defaultRankingsLimit = 50
	maxRankingsLimit     = 500

	// volatility is computed over the stored returns of the last 30
	// calendar days.
	volatilityLookbackDays = 30
)

// BreadthService computes market-wide breadth statistics, rankings,
// symbol comparisons and bucketed price history.
type BreadthService interface {
	Statistics(ctx context.Context, date *time.Time, period, market string) (*dto.StatisticsResponse, error)
	Rankings(ctx context.Context, date *time.Time, period, market, direction string, limit int) (*dto.RankingsResponse, error)
	Comparison(ctx context.Context, date *time.Time, symbolsParam string) (*dto.ComparisonResponse, error)
	PriceHistory(ctx context.Context, symbol, period string) (*dto.PriceHistoryResponse, error)
}

type breadthService struct {
	repo storage.MarketRepository
}

func NewBreadthService(repo storage.MarketRepository) BreadthService {
	return &breadthService{repo: repo}
}

// Statistics resolves the trading date, fetches the return and price
// windows concurrently, and folds them into one breadth snapshot.
func (s *breadthService) Statistics(ctx context.Context, date *time.Time, period, market string) (*dto.StatisticsResponse, error) {
	asOf, err := s.repo.ResolveTradingDate(ctx, date)
	if err != nil {
		return nil, err
	}

	windowDays := breadth.WindowDays(period)
	topWindowDays := breadth.TopWindowDays(period)
	lookback := breadth.LookbackDays(maxInt(windowDays, topWindowDays))

	var (
		returns     []models.DailyReturn
		prices      []models.DailyPrice
		indexVolume float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		returns, err = s.repo.ReturnRows(gctx, asOf, market, lookback)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = s.repo.PriceRows(gctx, asOf, market, lookback)
		return err
	})
	g.Go(func() error {
		var err error
		indexVolume, err = s.repo.IndexVolume(gctx, asOf, indexProxySymbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch market window: %w", err)
	}

	perSymbol := breadth.PeriodReturns(returns, prices, windowDays)
	delete(perSymbol, indexProxySymbol)

	topPerSymbol := perSymbol
	if topWindowDays != windowDays {
		topPerSymbol = breadth.PeriodReturns(returns, prices, topWindowDays)
		delete(topPerSymbol, indexProxySymbol)
	}

	features := breadth.ComputePriceFeatures(prices, asOf)
	snap := breadth.Reduce(perSymbol, features, indexVolume, breadth.Top(topPerSymbol))

	return &dto.StatisticsResponse{
		Data:     snap,
		AsOfDate: asOf.Format("2006-01-02"),
	}, nil
}

// Rankings lists the best (or worst) period returns with reference
// metadata attached. Symbols without a defined return are skipped, and
// the direction also filters the sign: losers carry strictly negative
// returns, gainers carry non-negative ones.
func (s *breadthService) Rankings(ctx context.Context, date *time.Time, period, market, direction string, limit int) (*dto.RankingsResponse, error) {
	asOf, err := s.repo.ResolveTradingDate(ctx, date)
	if err != nil {
		return nil, err
	}

	windowDays := breadth.WindowDays(period)
	lookback := breadth.LookbackDays(windowDays)

	var (
		returns []models.DailyReturn
		prices  []models.DailyPrice
		meta    map[string]models.SymbolMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		returns, err = s.repo.ReturnRows(gctx, asOf, market, lookback)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = s.repo.PriceRows(gctx, asOf, market, lookback)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = s.repo.Symbols(gctx, market)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch rankings window: %w", err)
	}

	perSymbol := breadth.PeriodReturns(returns, prices, windowDays)

	type scored struct {
		symbol string
		pr     models.PeriodReturn
	}
	ascending := strings.EqualFold(direction, "down") || strings.EqualFold(direction, "losers")

	var ranked []scored
	for symbol, pr := range perSymbol {
		if pr.Return == nil || strings.HasPrefix(symbol, "^") {
			continue
		}
		if ascending && *pr.Return >= 0 {
			continue
		}
		if !ascending && *pr.Return < 0 {
			continue
		}
		ranked = append(ranked, scored{symbol: symbol, pr: pr})
	}

	sort.Slice(ranked, func(i, j int) bool {
		ri, rj := *ranked[i].pr.Return, *ranked[j].pr.Return
		if ri != rj {
			if ascending {
				return ri < rj
			}
			return ri > rj
		}
		return ranked[i].symbol < ranked[j].symbol
	})

	if limit <= 0 {
		limit = defaultRankingsLimit
	}
	if limit > maxRankingsLimit {
		limit = maxRankingsLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	asOfStr := asOf.Format("2006-01-02")
	rows := make([]dto.RankingRow, 0, len(ranked))
	for i, sc := range ranked {
		m := meta[sc.symbol]
		rate := *sc.pr.Return * 100
		row := dto.RankingRow{
			Rank:             i + 1,
			Symbol:           sc.symbol,
			Name:             m.Name,
			ShortName:        m.ShortName,
			ReturnRate:       rate,
			Volume:           sc.pr.Volume,
			CumulativeReturn: rate,
			Market:           m.Market,
			Industry:         m.Industry,
			CurrentPrice:     sc.pr.Close,
			ChangePercent:    rate,
			LatestDate:       asOfStr,
		}
		if sc.pr.PriorClose != nil {
			row.PriorClose = *sc.pr.PriorClose
			row.PriceChange = sc.pr.Close - *sc.pr.PriorClose
		}
		rows = append(rows, row)
	}

	return &dto.RankingsResponse{
		Data:     rows,
		Count:    len(rows),
		AsOfDate: asOfStr,
	}, nil
}

// Comparison resolves each requested symbol against its stored
// variants and reports latest price, day change and 30-day volatility.
// Unresolvable symbols come back as explicit null rows, never errors.
func (s *breadthService) Comparison(ctx context.Context, date *time.Time, symbolsParam string) (*dto.ComparisonResponse, error) {
	requested := breadth.RequestedSymbols(symbolsParam)
	if len(requested) == 0 {
		return &dto.ComparisonResponse{Data: []dto.ComparisonRow{}}, nil
	}

	var asOfStr *string
	asOf, err := s.repo.ResolveTradingDate(ctx, date)
	switch {
	case err == nil:
		v := asOf.Format("2006-01-02")
		asOfStr = &v
	case err == storage.ErrNoData:
		// every row reports missing below
	default:
		return nil, err
	}

	resolved := make(map[string]string, len(requested)) // requested → stored
	var stored []string
	if asOfStr != nil {
		for _, raw := range requested {
			symbol, err := s.repo.ResolveSymbol(ctx, breadth.SymbolVariants(raw))
			if err == storage.ErrNoData {
				continue
			}
			if err != nil {
				return nil, err
			}
			resolved[raw] = symbol
			stored = append(stored, symbol)
		}
	}

	closes := map[string]storage.SymbolCloses{}
	returnsBySymbol := map[string][]models.DailyReturn{}
	metaBySymbol := map[string]models.SymbolMeta{}
	if len(stored) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := s.repo.LatestTwoCloses(gctx, asOf, stored)
			if err != nil {
				return err
			}
			for _, sc := range rows {
				closes[sc.Symbol] = sc
			}
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ReturnsForSymbols(gctx, asOf, stored, volatilityLookbackDays)
			if err != nil {
				return err
			}
			for _, r := range rows {
				returnsBySymbol[r.Symbol] = append(returnsBySymbol[r.Symbol], r)
			}
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.MetaForSymbols(gctx, stored)
			if err != nil {
				return err
			}
			for _, m := range rows {
				metaBySymbol[m.Symbol] = m
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("fetch comparison data: %w", err)
		}
	}

	rows := make([]dto.ComparisonRow, 0, len(requested))
	for _, raw := range requested {
		row := dto.ComparisonRow{Symbol: raw, Missing: true}
		symbol, ok := resolved[raw]
		if ok {
			if sc, have := closes[symbol]; have {
				row.Missing = false
				row.Symbol = symbol
				row.Price = sc.LatestClose
				row.PriorClose = sc.PriorClose
				row.Volume = sc.LatestVolume
				row.Return = dayChange(sc, returnsBySymbol[symbol], asOf)
				row.Volatility = volatility(returnsBySymbol[symbol])
				if m, haveMeta := metaBySymbol[symbol]; haveMeta {
					row.Name = &m.Name
					row.ShortName = &m.ShortName
					row.Market = &m.Market
				}
			}
		}
		rows = append(rows, row)
	}

	return &dto.ComparisonResponse{
		Data:     rows,
		Count:    len(rows),
		AsOfDate: asOfStr,
	}, nil
}

// dayChange is the stored daily return on the as-of date when present,
// otherwise derived from the last two closes. Fractional, like the
// stored returns.
func dayChange(sc storage.SymbolCloses, returns []models.DailyReturn, asOf time.Time) *float64 {
	asOfStr := asOf.Format("2006-01-02")
	for _, r := range returns {
		if r.Return != nil && r.Date.Format("2006-01-02") == asOfStr {
			v := *r.Return
			return &v
		}
	}
	if sc.LatestClose != nil && sc.PriorClose != nil && *sc.PriorClose > 0 {
		v := *sc.LatestClose / *sc.PriorClose - 1
		return &v
	}
	return nil
}

// volatility is the population standard deviation of the daily returns
// inside the lookback window, fractional.
func volatility(returns []models.DailyReturn) *float64 {
	var sample []float64
	for _, r := range returns {
		if r.Return != nil {
			sample = append(sample, *r.Return)
		}
	}
	return breadth.StdDevPop(sample)
}

// PriceHistory resolves a symbol variant, anchors the window at the
// symbol's own latest stored date and returns bucketed OHLCV bars. An
// unknown symbol yields an empty series, not an error.
func (s *breadthService) PriceHistory(ctx context.Context, symbol, period string) (*dto.PriceHistoryResponse, error) {
	hw := breadth.ResolveHistoryWindow(period)
	resp := &dto.PriceHistoryResponse{
		Data:   []dto.OHLCVBar{},
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Period: strings.ToUpper(strings.TrimSpace(period)),
		Bucket: string(hw.Bucket),
	}

	stored, err := s.repo.ResolveSymbol(ctx, breadth.SymbolVariants(symbol))
	if err == storage.ErrNoData {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	resp.Symbol = stored

	latest, err := s.repo.LatestPriceDate(ctx, stored)
	if err == storage.ErrNoData {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	from := latest.AddDate(0, 0, -hw.LookbackDays)
	rows, err := s.repo.PriceHistory(ctx, stored, from, latest)
	if err != nil {
		return nil, err
	}

	bars := breadth.AggregateOHLCV(rows, hw.Bucket)
	for _, b := range bars {
		resp.Data = append(resp.Data, dto.OHLCVBar{
			Symbol: stored,
			Date:   b.Date,
			Time:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	asOfStr := latest.Format("2006-01-02")
	fromStr := from.Format("2006-01-02")
	resp.AsOfDate = &asOfStr
	resp.FromDate = &fromStr
	return resp, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
