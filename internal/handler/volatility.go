package handler

import (
	"net/http"
	"strings"

	"volguard/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetVolatility godoc
// @Summary      Get volatility metrics for a contract
// @Description  Returns ATR, Bollinger width, regime, and direction scores per timeframe
// @Tags         volatility
// @Produce      json
// @Param        symbol  path  string  true  "Contract symbol (e.g., BTCUSDT)"
// @Success      200  {object}  domain.TimeframeVolatility
// @Failure      400  {object}  map[string]string
// @Router       /api/volatility/{symbol} [get]
func (h *Handler) GetVolatility(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-volatility")
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

	tv, err := h.volatilityService.GetTimeframeVolatility(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tv)
}

// GetOpportunity godoc
// @Summary      Get cross-timeframe opportunity summary
// @Description  Scores the primary timeframe's opportunity confirmed by aligned timeframes
// @Tags         volatility
// @Produce      json
// @Param        symbol   path   string  true   "Contract symbol (e.g., BTCUSDT)"
// @Param        primary  query  string  false  "Primary timeframe"  default(1H)
// @Success      200  {object}  volatility.OpportunitySummary
// @Failure      400  {object}  map[string]string
// @Router       /api/opportunity/{symbol} [get]
func (h *Handler) GetOpportunity(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-opportunity")
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

	primary := c.DefaultQuery("primary", h.primaryTimeframe)
	if !domain.IsSupportedTimeframe(primary) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported timeframe: " + primary,
			"supported_timeframes": domain.SupportedTimeframes,
		})
		return
	}

	summary, err := h.volatilityService.GetOpportunity(ctx, symbol, primary)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
