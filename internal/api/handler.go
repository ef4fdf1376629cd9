package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantgems/marketbreadth/internal/domain/dto"
	"github.com/quantgems/marketbreadth/internal/logger"
	"github.com/quantgems/marketbreadth/internal/service"
	"github.com/quantgems/marketbreadth/internal/storage"
)

// Handler provides HTTP handlers for the market breadth endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Delegate to the breadth service
//   - Translate service results into response DTOs
//   - Serve degraded demo payloads when fallback mode is enabled
type Handler struct {
	svc         service.BreadthService
	useFallback bool
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (service.BreadthService): Business logic dependency.
//   - useFallback (bool): When true, no-data and database failures are
//     answered with a synthetic demo payload instead of an error.
func NewHandler(svc service.BreadthService, useFallback bool) *Handler {
	return &Handler{svc: svc, useFallback: useFallback}
}

// parseDate parses an optional YYYY-MM-DD query parameter. The bool
// result is false when the value was present but malformed.
func parseDate(c *gin.Context, name string) (*time.Time, bool) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid "+name+" format, expected YYYY-MM-DD", err))
		return nil, false
	}
	return &parsed, true
}

func marketParam(c *gin.Context) string {
	m := strings.ToLower(strings.TrimSpace(c.Query("market")))
	if m == "" {
		return "all"
	}
	return m
}

// GetStatistics handles GET /api/returns/statistics requests.
//
// GetStatistics godoc
// @Summary      Market breadth statistics
// @Description  Returns the breadth snapshot (advancers, decliners, MA breadth, extremes) for the resolved trading date
// @Tags         returns
// @Produce      json
// @Param        date    query  string  false  "Trading date in YYYY-MM-DD (defaults to latest)"  example(2024-01-31)
// @Param        period  query  string  false  "daily | weekly | monthly | quarterly | yearly"    example(daily)
// @Param        market  query  string  false  "all | twse | tpex"                                example(all)
// @Success      200  {object}  dto.StatisticsResponse  "Success"
// @Failure      400  {object}  dto.ErrorResponse       "Bad Request"
// @Failure      404  {object}  dto.ErrorResponse       "No Data"
// @Failure      500  {object}  dto.ErrorResponse       "Internal Error"
// @Router       /api/returns/statistics [get]
func (h *Handler) GetStatistics(c *gin.Context) {
	date, ok := parseDate(c, "date")
	if !ok {
		return
	}
	period := c.DefaultQuery("period", "daily")

	resp, err := h.svc.Statistics(c.Request.Context(), date, period, marketParam(c))
	if err != nil {
		if h.useFallback {
			logger.L().Warn().Err(err).Msg("serving fallback statistics")
			c.JSON(http.StatusOK, fallbackStatistics())
			return
		}
		if errors.Is(err, storage.ErrNoData) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("no market data available", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to compute statistics", err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetRankings handles GET /api/returns/rankings requests.
//
// GetRankings godoc
// @Summary      Period return rankings
// @Description  Lists the best (or worst) period returns with symbol metadata
// @Tags         returns
// @Produce      json
// @Param        date         query  string  false  "Trading date in YYYY-MM-DD (defaults to latest)"
// @Param        period       query  string  false  "daily | weekly | monthly | quarterly | yearly"
// @Param        market       query  string  false  "all | twse | tpex"
// @Param        rankingType  query  string  false  "gainers | losers"  example(gainers)
// @Param        limit        query  int     false  "Row cap, at most 500"  example(50)
// @Success      200  {object}  dto.RankingsResponse  "Success"
// @Failure      400  {object}  dto.ErrorResponse     "Bad Request"
// @Failure      404  {object}  dto.ErrorResponse     "No Data"
// @Failure      500  {object}  dto.ErrorResponse     "Internal Error"
// @Router       /api/returns/rankings [get]
func (h *Handler) GetRankings(c *gin.Context) {
	date, ok := parseDate(c, "date")
	if !ok {
		return
	}
	period := c.DefaultQuery("period", "daily")
	rankingType := c.DefaultQuery("rankingType", "gainers")

	limit := 0
	if s := c.Query("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit, expected a non-negative integer", err))
			return
		}
		limit = parsed
	}

	direction := "up"
	if strings.EqualFold(rankingType, "losers") || strings.EqualFold(rankingType, "down") {
		direction = "down"
	}

	resp, err := h.svc.Rankings(c.Request.Context(), date, period, marketParam(c), direction, limit)
	if err != nil {
		if h.useFallback {
			logger.L().Warn().Err(err).Msg("serving fallback rankings")
			c.JSON(http.StatusOK, fallbackRankings(direction))
			return
		}
		if errors.Is(err, storage.ErrNoData) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("no market data available", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to compute rankings", err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetComparison handles GET /api/returns/comparison requests.
//
// GetComparison godoc
// @Summary      Symbol comparison
// @Description  Reports latest price, day change and 30-day volatility for up to 60 symbols; unknown symbols come back as null rows
// @Tags         returns
// @Produce      json
// @Param        symbols  query  string  true   "Comma or whitespace separated symbols"  example(2330,2317.TW)
// @Param        date     query  string  false  "Trading date in YYYY-MM-DD (defaults to latest)"
// @Success      200  {object}  dto.ComparisonResponse  "Success"
// @Failure      400  {object}  dto.ErrorResponse       "Bad Request"
// @Failure      500  {object}  dto.ErrorResponse       "Internal Error"
// @Router       /api/returns/comparison [get]
func (h *Handler) GetComparison(c *gin.Context) {
	symbols := c.Query("symbols")
	if strings.TrimSpace(symbols) == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbols is required", nil))
		return
	}
	date, ok := parseDate(c, "date")
	if !ok {
		return
	}

	resp, err := h.svc.Comparison(c.Request.Context(), date, symbols)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to compute comparison", err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPriceHistory handles GET /api/stocks/:symbol/price-history requests.
//
// GetPriceHistory godoc
// @Summary      Bucketed price history
// @Description  Returns OHLCV bars for a symbol, bucketed by day, ISO week or month depending on the period
// @Tags         stocks
// @Produce      json
// @Param        symbol  path   string  true   "Stock symbol, with or without market suffix"  example(2330)
// @Param        period  query  string  false  "Preset (1D..2Y) or <n><D|W|M|Y>"              example(1M)
// @Success      200  {object}  dto.PriceHistoryResponse  "Success"
// @Failure      400  {object}  dto.ErrorResponse         "Bad Request"
// @Failure      500  {object}  dto.ErrorResponse         "Internal Error"
// @Router       /api/stocks/{symbol}/price-history [get]
func (h *Handler) GetPriceHistory(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}
	period := c.DefaultQuery("period", "1M")

	resp, err := h.svc.PriceHistory(c.Request.Context(), symbol, period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch price history", err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAPIHealth handles GET /api/health requests.
//
// GetAPIHealth godoc
// @Summary      API health
// @Description  Lightweight health endpoint for frontend polling
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/health [get]
func (h *Handler) GetAPIHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
