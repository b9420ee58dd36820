package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"volguard/internal/domain"
	"volguard/internal/volatility"

	"go.opentelemetry.io/otel/trace"
)

const (
	bybitBaseURL    = "https://api.bybit.com"
	bybitCategory   = "linear"
	bybitKlineLimit = 200
	bybitRecvWindow = "5000"
)

// bybitIntervals maps our timeframe labels onto Bybit v5 kline intervals.
var bybitIntervals = map[string]string{
	"1m":  "1",
	"15m": "15",
	"1H":  "60",
	"4H":  "240",
	"1D":  "D",
}

// BybitProvider talks to the Bybit v5 API for linear perpetuals. Market-data
// endpoints are public; position and trading-stop endpoints are signed with
// the account's API key.
type BybitProvider struct {
	client    *http.Client
	baseURL   string
	tracer    trace.Tracer
	limiter   *RateLimiter
	apiKey    string
	apiSecret string
	now       func() time.Time
}

// NewBybitProvider creates a provider with built-in rate limiting. Leave the
// key pair empty for a public-data-only provider; the signed endpoints will
// then refuse to run.
func NewBybitProvider(tracer trace.Tracer, apiKey, apiSecret string) *BybitProvider {
	return &BybitProvider{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   bybitBaseURL,
		tracer:    tracer,
		limiter:   NewRateLimiter(50, 1200*time.Millisecond),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		now:       time.Now,
	}
}

type bybitResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

// FetchHistoricalData fetches klines and returns them as an ascending,
// deduplicated price series. Bybit serves newest-first; the conversion
// reorders through the candle builder.
func (p *BybitProvider) FetchHistoricalData(ctx context.Context, symbol, timeframe string) (*domain.PriceSeries, error) {
	_, span := p.tracer.Start(ctx, "bybit.fetch-klines")
	defer span.End()

	interval, ok := bybitIntervals[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}

	url := fmt.Sprintf("%s/v5/market/kline?category=%s&symbol=%s&interval=%s&limit=%d",
		p.baseURL, bybitCategory, symbol, interval, bybitKlineLimit)
	if minutes, err := volatility.TimeframeMinutes(timeframe); err == nil {
		start := p.now().Add(-time.Duration(bybitKlineLimit*minutes) * time.Minute)
		url += fmt.Sprintf("&start=%d", start.UnixMilli())
	}

	body, err := p.doPublic(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s %s: %w", symbol, timeframe, err)
	}

	var result struct {
		List [][]string `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse klines for %s: %w", symbol, err)
	}

	candles := make([]*domain.Candle, 0, len(result.List))
	for _, row := range result.List {
		c, err := parseBybitKline(symbol, timeframe, row)
		if err != nil {
			return nil, fmt.Errorf("parse kline row for %s: %w", symbol, err)
		}
		candles = append(candles, c)
	}
	return domain.SeriesFromCandles(symbol, timeframe, candles), nil
}

// FetchCandles is FetchHistoricalData in row form, for persistence.
func (p *BybitProvider) FetchCandles(ctx context.Context, symbol, timeframe string) ([]*domain.Candle, error) {
	series, err := p.FetchHistoricalData(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	candles := make([]*domain.Candle, series.Len())
	for i := 0; i < series.Len(); i++ {
		candles[i] = &domain.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  series.Times[i],
			Open:      series.Open[i],
			High:      series.High[i],
			Low:       series.Low[i],
			Close:     series.Close[i],
			Volume:    series.Volume[i],
		}
	}
	return candles, nil
}

// FetchTicker returns the latest ticker snapshot for a symbol.
func (p *BybitProvider) FetchTicker(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	_, span := p.tracer.Start(ctx, "bybit.fetch-ticker")
	defer span.End()

	url := fmt.Sprintf("%s/v5/market/tickers?category=%s&symbol=%s", p.baseURL, bybitCategory, symbol)
	body, err := p.doPublic(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch ticker for %s: %w", symbol, err)
	}

	var result struct {
		List []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			Volume24h    string `json:"volume24h"`
			Price24hPcnt string `json:"price24hPcnt"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse ticker for %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", symbol)
	}

	t := result.List[0]
	lastPrice, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last price for %s: %w", symbol, err)
	}
	volume, _ := strconv.ParseFloat(t.Volume24h, 64)
	// Bybit reports the 24h change as a fraction, e.g. "0.0234".
	changeFrac, _ := strconv.ParseFloat(t.Price24hPcnt, 64)

	return &domain.PriceSnapshot{
		Symbol:          symbol,
		LastPrice:       lastPrice,
		Volume24h:       volume,
		Change24hPct:    changeFrac * 100,
		LastUpdatedUnix: p.now().Unix(),
	}, nil
}

// GetCurrentPrice returns the last traded price for a symbol.
func (p *BybitProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	snapshot, err := p.FetchTicker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return snapshot.LastPrice, nil
}

// OpenPositions lists the open positions for a symbol. Requires API keys.
func (p *BybitProvider) OpenPositions(ctx context.Context, symbol string) ([]domain.Position, error) {
	_, span := p.tracer.Start(ctx, "bybit.open-positions")
	defer span.End()

	query := fmt.Sprintf("category=%s&symbol=%s", bybitCategory, symbol)
	body, err := p.doSigned(ctx, http.MethodGet, "/v5/position/list", query, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch positions for %s: %w", symbol, err)
	}

	var result struct {
		List []struct {
			Symbol      string `json:"symbol"`
			PositionIdx int    `json:"positionIdx"`
			Side        string `json:"side"`
			Size        string `json:"size"`
			AvgPrice    string `json:"avgPrice"`
			Leverage    string `json:"leverage"`
			StopLoss    string `json:"stopLoss"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse positions for %s: %w", symbol, err)
	}

	positions := make([]domain.Position, 0, len(result.List))
	for _, raw := range result.List {
		size, _ := strconv.ParseFloat(raw.Size, 64)
		if size == 0 {
			continue
		}
		side, err := domain.ParseSide(raw.Side)
		if err != nil {
			return nil, fmt.Errorf("position on %s: %w", symbol, err)
		}
		entry, err := strconv.ParseFloat(raw.AvgPrice, 64)
		if err != nil {
			return nil, fmt.Errorf("parse entry price on %s: %w", symbol, err)
		}
		leverage, _ := strconv.ParseFloat(raw.Leverage, 64)

		position := domain.Position{
			Symbol:      raw.Symbol,
			PositionIdx: raw.PositionIdx,
			Side:        side,
			Size:        size,
			EntryPrice:  entry,
			Leverage:    leverage,
		}
		if sl, err := strconv.ParseFloat(raw.StopLoss, 64); err == nil && sl > 0 {
			position.StopLoss = &sl
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// SetStopLoss applies a stop-loss level via the trading-stop endpoint.
func (p *BybitProvider) SetStopLoss(ctx context.Context, symbol string, positionIdx int, stopLoss float64) error {
	_, span := p.tracer.Start(ctx, "bybit.set-stop-loss")
	defer span.End()

	payload := map[string]any{
		"category":    bybitCategory,
		"symbol":      symbol,
		"stopLoss":    strconv.FormatFloat(stopLoss, 'f', -1, 64),
		"positionIdx": positionIdx,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := p.doSigned(ctx, http.MethodPost, "/v5/position/trading-stop", "", body); err != nil {
		return fmt.Errorf("set stop loss for %s: %w", symbol, err)
	}
	return nil
}

func parseBybitKline(symbol, timeframe string, row []string) (*domain.Candle, error) {
	// Row shape: [startTimeMs, open, high, low, close, volume, turnover].
	if len(row) < 6 {
		return nil, fmt.Errorf("kline row has %d fields, need 6", len(row))
	}
	startMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse field %d: %w", i+1, err)
		}
		values[i] = v
	}
	return &domain.Candle{
		Symbol:    symbol,
		Timeframe: timeframe,
		OpenTime:  time.UnixMilli(startMs).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

func (p *BybitProvider) doPublic(ctx context.Context, url string) (json.RawMessage, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	return p.execute(req)
}

// doSigned performs an authenticated v5 request. The signature covers
// timestamp + key + recv window + (query string for GET, JSON body for POST).
func (p *BybitProvider) doSigned(ctx context.Context, method, path, query string, body []byte) (json.RawMessage, error) {
	if p.apiKey == "" || p.apiSecret == "" {
		return nil, fmt.Errorf("bybit API credentials not configured")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	timestamp := strconv.FormatInt(p.now().UnixMilli(), 10)
	payload := query
	if method == http.MethodPost {
		payload = string(body)
	}
	mac := hmac.New(sha256.New, []byte(p.apiSecret))
	mac.Write([]byte(timestamp + p.apiKey + bybitRecvWindow + payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	url := p.baseURL + path
	if query != "" {
		url += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-BAPI-API-KEY", p.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)
	req.Header.Set("X-BAPI-SIGN", signature)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	return p.execute(req)
}

func (p *BybitProvider) execute(req *http.Request) (json.RawMessage, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bybit API error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var envelope bybitResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse bybit response: %w", err)
	}
	if envelope.RetCode != 0 {
		return nil, fmt.Errorf("bybit error %d: %s", envelope.RetCode, envelope.RetMsg)
	}
	return envelope.Result, nil
}
