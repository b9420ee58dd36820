package handler

import (
	"volguard/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer            trace.Tracer
	marketService     *service.MarketService
	volatilityService *service.VolatilityService
	stopService       *service.StopService
	primaryTimeframe  string
	apiKey            string
}

func New(
	tracer trace.Tracer,
	marketService *service.MarketService,
	volatilityService *service.VolatilityService,
	stopService *service.StopService,
	primaryTimeframe string,
	apiKey string,
) *Handler {
	return &Handler{
		tracer:            tracer,
		marketService:     marketService,
		volatilityService: volatilityService,
		stopService:       stopService,
		primaryTimeframe:  primaryTimeframe,
		apiKey:            apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/tickers", h.GetAllTickers)
	r.GET("/api/tickers/:symbol", h.GetTicker)
	r.GET("/api/candles/:symbol", h.GetCandles)
	r.GET("/api/volatility/:symbol", h.GetVolatility)
	r.GET("/api/opportunity/:symbol", h.GetOpportunity)
	r.POST("/api/stops/:symbol/update", APIKeyAuth(h.apiKey), h.UpdateStops)
	r.GET("/api/stops/:symbol/history", h.GetStopHistory)
}
