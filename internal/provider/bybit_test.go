package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"volguard/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func bybitEnvelope(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	data, _ := json.Marshal(map[string]any{"retCode": 0, "retMsg": "OK", "result": json.RawMessage(raw)})
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func testBybitProvider(transport roundTripFunc) *BybitProvider {
	p := NewBybitProvider(trace.NewNoopTracerProvider().Tracer("test"), "", "")
	p.baseURL = "http://example"
	p.client = &http.Client{Transport: transport}
	p.limiter = NewRateLimiter(10, time.Millisecond)
	return p
}

func TestBybitFetchHistoricalData(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	provider := testBybitProvider(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v5/market/kline") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		q := req.URL.Query()
		if q.Get("interval") != "60" || q.Get("symbol") != "BTCUSDT" || q.Get("category") != "linear" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		// Bybit serves newest first.
		list := [][]string{
			{ts(base.Add(time.Hour)), "101", "103", "100", "102", "55", "5500"},
			{ts(base), "100", "102", "99", "101", "50", "5000"},
		}
		return bybitEnvelope(t, map[string]any{"list": list}), nil
	})

	series, err := provider.FetchHistoricalData(context.Background(), "BTCUSDT", "1H")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 bars, got %d", series.Len())
	}
	if !series.Times[0].Equal(base) || !series.Times[1].Equal(base.Add(time.Hour)) {
		t.Fatalf("series must be ascending, got %v", series.Times)
	}
	if series.Open[0] != 100 || series.Close[1] != 102 || series.Volume[1] != 55 {
		t.Fatalf("unexpected series values: %+v", series)
	}
}

func TestBybitFetchHistoricalDataRejectsUnknownTimeframe(t *testing.T) {
	t.Parallel()

	provider := testBybitProvider(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected for an unknown timeframe")
		return nil, nil
	})
	if _, err := provider.FetchHistoricalData(context.Background(), "BTCUSDT", "3W"); err == nil {
		t.Fatal("expected error for unsupported timeframe")
	}
}

func TestBybitFetchTicker(t *testing.T) {
	t.Parallel()

	provider := testBybitProvider(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v5/market/tickers") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		list := []map[string]string{{
			"symbol":       "BTCUSDT",
			"lastPrice":    "97000.5",
			"volume24h":    "12345",
			"price24hPcnt": "0.0234",
		}}
		return bybitEnvelope(t, map[string]any{"list": list}), nil
	})

	snap, err := provider.FetchTicker(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.LastPrice != 97000.5 || snap.Volume24h != 12345 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Change24hPct != 2.34 {
		t.Fatalf("24h change should be converted to percent, got %f", snap.Change24hPct)
	}
}

func TestBybitErrorEnvelope(t *testing.T) {
	t.Parallel()

	provider := testBybitProvider(func(req *http.Request) (*http.Response, error) {
		data, _ := json.Marshal(map[string]any{"retCode": 10001, "retMsg": "params error", "result": map[string]any{}})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	})

	_, err := provider.FetchTicker(context.Background(), "BTCUSDT")
	if err == nil || !strings.Contains(err.Error(), "10001") {
		t.Fatalf("expected retCode error, got %v", err)
	}
}

func TestBybitSignedEndpointsRequireCredentials(t *testing.T) {
	t.Parallel()

	provider := testBybitProvider(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected without credentials")
		return nil, nil
	})
	if _, err := provider.OpenPositions(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("expected error without API credentials")
	}
	if err := provider.SetStopLoss(context.Background(), "BTCUSDT", 0, 99); err == nil {
		t.Fatal("expected error without API credentials")
	}
}

func TestBybitOpenPositions(t *testing.T) {
	t.Parallel()

	provider := testBybitProvider(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v5/position/list") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		for _, header := range []string{"X-Bapi-Api-Key", "X-Bapi-Timestamp", "X-Bapi-Sign"} {
			if req.Header.Get(header) == "" {
				t.Fatalf("missing auth header %s", header)
			}
		}
		list := []map[string]any{
			{"symbol": "BTCUSDT", "positionIdx": 0, "side": "Buy", "size": "0.5", "avgPrice": "95000", "leverage": "3", "stopLoss": "94000"},
			{"symbol": "BTCUSDT", "positionIdx": 1, "side": "Sell", "size": "0", "avgPrice": "0", "leverage": "0", "stopLoss": ""},
		}
		return bybitEnvelope(t, map[string]any{"list": list}), nil
	})
	provider.apiKey = "key"
	provider.apiSecret = "secret"

	positions, err := provider.OpenPositions(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("zero-size positions must be skipped, got %d", len(positions))
	}
	p := positions[0]
	if p.Side != domain.SideBuy || p.EntryPrice != 95000 || p.Size != 0.5 {
		t.Fatalf("unexpected position: %+v", p)
	}
	if p.StopLoss == nil || *p.StopLoss != 94000 {
		t.Fatalf("expected stop loss 94000, got %+v", p.StopLoss)
	}
}

func TestBybitSetStopLoss(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	provider := testBybitProvider(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || !strings.Contains(req.URL.Path, "/v5/position/trading-stop") {
			t.Fatalf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		if req.Header.Get("X-Bapi-Sign") == "" {
			t.Fatal("missing signature header")
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		return bybitEnvelope(t, map[string]any{}), nil
	})
	provider.apiKey = "key"
	provider.apiSecret = "secret"

	if err := provider.SetStopLoss(context.Background(), "BTCUSDT", 0, 99000.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured["symbol"] != "BTCUSDT" || captured["stopLoss"] != "99000.5" {
		t.Fatalf("unexpected payload: %+v", captured)
	}
}

func ts(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
