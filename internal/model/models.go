package model

import "time"

// MarketType 标识一个市场使用哪一类数据源
type MarketType string

const (
	MarketUSEquity    MarketType = "us_equity"
	MarketHKEquity    MarketType = "hk_equity"
	MarketChinaEquity MarketType = "china_equity"
	MarketCrypto      MarketType = "crypto"
)

// Bar 代表一根已完成的 K 线
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series 是单个标的在单一周期下的 K 线序列。
// 约定：按时间戳严格升序排列，无重复时间戳；每次扫描新建，用完即弃。
type Series []Bar

// Closes 提取收盘价列，供指标计算使用
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Lows 提取最低价列
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Timestamps 提取时间戳列
func (s Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s))
	for i, b := range s {
		out[i] = b.Timestamp
	}
	return out
}

// SignalResult 是单个标的的评估结果。
// 布尔型策略只置 Fired；日期型策略同时给出最近一次触发的日期。
type SignalResult struct {
	Fired bool
	Date  time.Time
}

// NoSignal 表示未触发（含历史不足、数据源失败、计算异常等软失败）
func NoSignal() SignalResult {
	return SignalResult{}
}

// SignalNow 表示最新一根 K 线上触发（布尔型策略）
func SignalNow() SignalResult {
	return SignalResult{Fired: true}
}

// SignalOn 表示在指定日期触发（日期型策略）
func SignalOn(date time.Time) SignalResult {
	return SignalResult{Fired: true, Date: date}
}

// Dated 返回该结果是否带有触发日期
func (r SignalResult) Dated() bool {
	return r.Fired && !r.Date.IsZero()
}

// MarketResult 是一个市场扫描完成后的结果集合
type MarketResult struct {
	Name    string
	Type    MarketType
	Results map[string]SignalResult
}
