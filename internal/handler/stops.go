package handler

import (
	"net/http"
	"strconv"
	"strings"

	"volguard/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// UpdateStops godoc
// @Summary      Run one stop-loss update cycle for a contract
// @Description  Evaluates every open position and pushes tightened stops to the exchange
// @Tags         stops
// @Produce      json
// @Param        symbol  path  string  true  "Contract symbol (e.g., BTCUSDT)"
// @Success      200  {object}  stoploss.BatchResult
// @Failure      400  {object}  map[string]string
// @Router       /api/stops/{symbol}/update [post]
func (h *Handler) UpdateStops(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.update-stops")
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
	if h.stopService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stop-loss management not configured"})
		return
	}

	result, err := h.stopService.UpdateStops(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStopHistory godoc
// @Summary      Get recent stop-loss evaluations for a contract
// @Tags         stops
// @Produce      json
// @Param        symbol  path   string  true   "Contract symbol (e.g., BTCUSDT)"
// @Param        limit   query  int     false  "Number of records (default 50, max 200)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/stops/{symbol}/history [get]
func (h *Handler) GetStopHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-stop-history")
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
	if h.stopService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stop-loss management not configured"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	records, err := h.stopService.RecentUpdates(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"history": records,
	})
}
