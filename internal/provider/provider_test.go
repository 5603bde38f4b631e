package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/service"
)

func testProviderConfig(baseURL string) service.ProviderConfig {
	return service.ProviderConfig{
		BaseURL:       baseURL,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
		RateLimit:     1000,
		RateBurst:     10,
	}
}

func TestBinanceFetchParsesKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(`[
			[1700000000000, "100.0", "110.0", "95.0", "105.0", "1234.5", 1700086399999, "0", 1, "0", "0", "0"],
			[1700086400000, "105.0", "112.0", "104.0", "111.0", "2345.6", 1700172799999, "0", 1, "0", "0", "0"]
		]`))
	}))
	defer srv.Close()

	p := NewBinanceProvider(testProviderConfig(srv.URL), zap.NewNop())
	series, err := p.Fetch(context.Background(), "BTCUSDT", "1d", 500)

	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), series[0].Timestamp)
	assert.InDelta(t, 105.0, series[0].Close, 1e-9)
	assert.InDelta(t, 95.0, series[0].Low, 1e-9)
	assert.InDelta(t, 2345.6, series[1].Volume, 1e-9)
	assert.True(t, series[0].Timestamp.Before(series[1].Timestamp))
}

func TestBinanceSkipsMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[1700000000000, "100.0", "110.0", "95.0", "105.0", "1234.5"],
			[1700086400000, "not-a-number", "1", "1", "1", "1"]
		]`))
	}))
	defer srv.Close()

	p := NewBinanceProvider(testProviderConfig(srv.URL), zap.NewNop())
	series, err := p.Fetch(context.Background(), "BTCUSDT", "1d", 500)

	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestRetryPolicyStopsAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewBinanceProvider(testProviderConfig(srv.URL), zap.NewNop())
	_, err := p.Fetch(context.Background(), "BTCUSDT", "1d", 500)

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testProviderConfig(srv.URL)
	cfg.RetryBackoff = time.Hour // 取消必须抢在退避之前返回

	p := NewBinanceProvider(cfg, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Fetch(ctx, "BTCUSDT", "1d", 500)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestYahooFetchSkipsNullRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1700000000,1700086400,1700172800],
			"indicators":{"quote":[{
				"open":[100.0,null,102.0],
				"high":[101.0,null,103.0],
				"low":[99.0,null,101.0],
				"close":[100.5,null,102.5],
				"volume":[1000.0,null,null]
			}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL), zap.NewNop())
	series, err := p.Fetch(context.Background(), "AAPL", "1d", 500)

	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.InDelta(t, 100.5, series[0].Close, 1e-9)
	assert.InDelta(t, 102.5, series[1].Close, 1e-9)
	// 缺失的成交量归零而不是丢行
	assert.InDelta(t, 0.0, series[1].Volume, 1e-9)
}

func TestYahooFetchReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	p := NewYahooProvider(testProviderConfig(srv.URL), zap.NewNop())
	_, err := p.Fetch(context.Background(), "BOGUS", "1d", 500)
	assert.Error(t, err)
}

func TestTushareRequiresToken(t *testing.T) {
	_, err := NewTushareProvider(service.ProviderConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnconfigured)
}

func TestTushareFetchSortsAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		// Tushare 返回按交易日倒序的数据
		w.Write([]byte(`{"code":0,"msg":"","data":{
			"fields":["trade_date","open","high","low","close","vol"],
			"items":[
				["20240103",11.0,11.5,10.8,11.2,30000.0],
				["20240102",10.5,11.1,10.4,11.0,20000.0],
				["20240101",10.0,10.6,9.9,10.5,10000.0]
			]}}`))
	}))
	defer srv.Close()

	cfg := testProviderConfig(srv.URL)
	cfg.Token = "test-token"
	p, err := NewTushareProvider(cfg, zap.NewNop())
	require.NoError(t, err)

	series, err := p.Fetch(context.Background(), "600519.SH", "1d", 500)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, "2024-01-01", series[0].Timestamp.Format("2006-01-02"))
	assert.Equal(t, "2024-01-03", series[2].Timestamp.Format("2006-01-02"))
	assert.InDelta(t, 11.2, series[2].Close, 1e-9)
}

func TestTushareFetchReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":2002,"msg":"token invalid","data":{"fields":[],"items":[]}}`))
	}))
	defer srv.Close()

	cfg := testProviderConfig(srv.URL)
	cfg.Token = "bad-token"
	p, err := NewTushareProvider(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), "600519.SH", "1d", 500)
	assert.Error(t, err)
}

func TestForMarketDispatch(t *testing.T) {
	cfgs := &service.ProvidersConfig{
		Yahoo:   testProviderConfig("http://example"),
		Binance: testProviderConfig("http://example"),
		Tushare: testProviderConfig("http://example"),
	}
	logger := zap.NewNop()

	p, err := ForMarket(model.MarketUSEquity, cfgs, logger)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", p.Name())

	p, err = ForMarket(model.MarketHKEquity, cfgs, logger)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", p.Name())

	p, err = ForMarket(model.MarketCrypto, cfgs, logger)
	require.NoError(t, err)
	assert.Equal(t, "binance", p.Name())

	// A 股数据源没有 token 时是显式的未配置状态
	_, err = ForMarket(model.MarketChinaEquity, cfgs, logger)
	assert.ErrorIs(t, err, ErrUnconfigured)

	_, err = ForMarket(model.MarketType("bogus"), cfgs, logger)
	assert.Error(t, err)
}
