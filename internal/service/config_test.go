package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
Scan:
  Workers: 8
Strategy:
  bb_length: 25
  trend_timeframe: "1h"
Markets:
  crypto:
    Type: crypto
    tickers_path: config/crypto.txt
    Strategy: mtf_breakout
    Interval: "1d"
    Lookback: 500
Providers:
  Binance:
    base_url: "https://api.binance.us"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg := LoadConfig(dir)

	// 显式配置生效
	assert.Equal(t, 8, cfg.Scan.Workers)
	assert.Equal(t, 25, cfg.Strategy.BBLength)
	assert.Equal(t, "1h", cfg.Strategy.TrendTimeframe)
	assert.Equal(t, "https://api.binance.us", cfg.Providers.Binance.BaseURL)

	// 未配置的键落回默认值
	assert.Equal(t, 30*time.Second, cfg.Scan.FetchTimeout)
	assert.Equal(t, "17:00", cfg.Schedule.At)
	assert.InDelta(t, 2.0, cfg.Strategy.BBMult, 1e-9)
	assert.InDelta(t, 0.02, cfg.Strategy.Consolidation.LongCVMax, 1e-9)
	assert.Equal(t, 250, cfg.Strategy.Consolidation.MinBars)
	assert.Equal(t, 3, cfg.Providers.Yahoo.RetryAttempts)
	assert.Equal(t, "https://query1.finance.yahoo.com", cfg.Providers.Yahoo.BaseURL)

	// 市场表
	require.Contains(t, cfg.Markets, "crypto")
	assert.Equal(t, "crypto", cfg.Markets["crypto"].Type)
	assert.Equal(t, "mtf_breakout", cfg.Markets["crypto"].Strategy)
}
