package handler

import (
	"net/http"
	"strconv"
	"strings"

	"volguard/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetTicker godoc
// @Summary      Get current ticker for a contract
// @Description  Returns the latest price, 24h volume, and 24h change
// @Tags         market
// @Produce      json
// @Param        symbol  path  string  true  "Contract symbol (e.g., BTCUSDT)"
// @Success      200  {object}  domain.PriceSnapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/tickers/{symbol} [get]
func (h *Handler) GetTicker(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-ticker")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	snapshot, err := h.marketService.GetTicker(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetAllTickers godoc
// @Summary      Get current tickers for all tracked contracts
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/tickers [get]
func (h *Handler) GetAllTickers(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-all-tickers")
	defer span.End()

	snapshots, err := h.marketService.GetTickers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickers": snapshots})
}

// GetCandles godoc
// @Summary      Get historical OHLCV candles
// @Description  Returns stored candle data for a contract and timeframe
// @Tags         market
// @Produce      json
// @Param        symbol     path   string  true   "Contract symbol (e.g., BTCUSDT)"
// @Param        timeframe  query  string  false  "Candle timeframe (1m, 15m, 1H, 4H, 1D)"  default(1H)
// @Param        limit      query  int     false  "Number of candles (default 100, max 500)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/candles/{symbol} [get]
func (h *Handler) GetCandles(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsSupportedSymbol(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}

	timeframe := c.DefaultQuery("timeframe", "1H")
	if !domain.IsSupportedTimeframe(timeframe) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported timeframe: " + timeframe,
			"supported_timeframes": domain.SupportedTimeframes,
		})
		return
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	candles, err := h.marketService.GetCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   candles,
	})
}
