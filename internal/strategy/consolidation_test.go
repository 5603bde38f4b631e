package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtf-signal-scanner/internal/service"
)

var testConsolidationConfig = service.ConsolidationConfig{
	LongCVMax:        0.02,
	SlopeMin:         -0.001,
	ShortCVMax:       0.005,
	SupportProximity: 1.01,
	MinBars:          250,
}

func TestConsolidationFlatSeriesNeverFires(t *testing.T) {
	strat := NewConsolidationBreakout(&testConsolidationConfig)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	// 400 根完全走平的 K 线：长期均线离散度趋近 0，
	// 但上穿条件要求严格大于，常数序列永远不满足
	flat := make([]float64, 400)
	for i := range flat {
		flat[i] = 100
	}
	series := barsAt(start, 24*time.Hour, flat)

	res, err := strat.Evaluate(series, nil)
	require.NoError(t, err)
	assert.False(t, res.Fired)
}

func TestConsolidationFiresOnBreakoutBar(t *testing.T) {
	strat := NewConsolidationBreakout(&testConsolidationConfig)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	// 长期横盘后最后一根放量突破：四个条件同时成立
	series := barsAt(start, 24*time.Hour, flatThenJump(300, 100, 101))

	res, err := strat.Evaluate(series, nil)
	require.NoError(t, err)
	require.True(t, res.Fired)
	require.True(t, res.Dated())
	assert.Equal(t, series[len(series)-1].Timestamp, res.Date)
}

func TestConsolidationReturnsLastFireDate(t *testing.T) {
	strat := NewConsolidationBreakout(&testConsolidationConfig)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	// 突破发生在第 300 根，之后价格停在突破位上方横住：
	// 后续没有新的上穿，信号日期必须仍然是突破日
	closes := flatThenJump(300, 100, 101)
	for i := 0; i < 20; i++ {
		closes = append(closes, 101)
	}
	series := barsAt(start, 24*time.Hour, closes)
	breakoutDate := series[299].Timestamp

	res, err := strat.Evaluate(series, nil)
	require.NoError(t, err)
	require.True(t, res.Dated())
	assert.Equal(t, breakoutDate, res.Date)

	// 幂等：同一份冻结序列重复评估得到同一日期
	again, err := strat.Evaluate(series, nil)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestConsolidationInsufficientHistory(t *testing.T) {
	strat := NewConsolidationBreakout(&testConsolidationConfig)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	series := barsAt(start, 24*time.Hour, flatThenJump(200, 100, 101))

	res, err := strat.Evaluate(series, nil)
	require.NoError(t, err)
	assert.False(t, res.Fired)

	res, err = strat.Evaluate(nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Fired)
}

func TestConsolidationRejectsDivergedMAs(t *testing.T) {
	strat := NewConsolidationBreakout(&testConsolidationConfig)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	// 持续单边上涨：长期均线彼此远离，不构成蓄势形态
	closes := make([]float64, 300)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 1.01
	}
	series := barsAt(start, 24*time.Hour, closes)

	res, err := strat.Evaluate(series, nil)
	require.NoError(t, err)
	assert.False(t, res.Fired)
}
