package strategy

import (
	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/service"
	"mtf-signal-scanner/pkg/ta"
)

// 均线密集突破策略使用的固定窗口参数
const (
	longEMA1 = 30
	longEMA2 = 60
	longEMA3 = 90
	longSMA  = 200

	shortEMA1 = 21
	shortEMA2 = 30
	shortSMA  = 34

	slopeWindow   = 10 // MA200 斜率的回归窗口
	supportWindow = 20 // 回踩 MA200 的滚动最小值窗口
)

// ConsolidationBreakout 是均线密集突破策略（日期型）。
//
// 长期均线（EMA30/60/90 + SMA200）密集且 MA200 走平向上，构成底部蓄势；
// 价格近期回踩过 MA200 并重新站上；前一日短期均线（EMA21/30 + SMA34）
// 高度密集；当日收盘上穿短期均线中最高的一条。四个条件同时成立的
// 最后一个交易日即为信号日期。
type ConsolidationBreakout struct {
	longCVMax  float64
	slopeMin   float64
	shortCVMax float64
	proximity  float64
	minBars    int
}

func NewConsolidationBreakout(cfg *service.ConsolidationConfig) *ConsolidationBreakout {
	return &ConsolidationBreakout{
		longCVMax:  cfg.LongCVMax,
		slopeMin:   cfg.SlopeMin,
		shortCVMax: cfg.ShortCVMax,
		proximity:  cfg.SupportProximity,
		minBars:    cfg.MinBars,
	}
}

func (s *ConsolidationBreakout) Name() string { return NameConsolidationBreakout }

func (s *ConsolidationBreakout) MinBars() int { return s.minBars }

func (s *ConsolidationBreakout) NeedsTrend() bool { return false }

func (s *ConsolidationBreakout) Evaluate(primary, _ model.Series) (model.SignalResult, error) {
	n := len(primary)
	if n < s.minBars {
		return model.NoSignal(), nil
	}

	closes := primary.Closes()
	lows := primary.Lows()
	times := primary.Timestamps()

	// --- A. 长期均线组 ---
	ema30, f30 := ta.EMA(closes, longEMA1)
	ema60, f60 := ta.EMA(closes, longEMA2)
	ema90, f90 := ta.EMA(closes, longEMA3)
	sma200, f200 := ta.SMA(closes, longSMA)

	// --- B. 短期均线组（EMA30 与长期组共用） ---
	ema21, f21 := ta.EMA(closes, shortEMA1)
	sma34, f34 := ta.SMA(closes, shortSMA)

	// --- C. 派生列 ---
	// MA200 的线性回归斜率：回归窗口叠加在 SMA 预热期之上
	slope, _ := ta.LinRegSlope(sma200, slopeWindow)
	slopeFirst := f200 + slopeWindow - 1

	minLow, fMinLow := ta.RollingMin(lows, supportWindow)
	// SMA200 的滚动最小值窗口必须完全落在 SMA 有效区间内
	minSMA, _ := ta.RollingMin(sma200, supportWindow)
	minSMAFirst := f200 + supportWindow - 1

	// 丢弃预热行；条件 3 的前移一日和条件 4 的上穿都要求前一行同样有效
	start := max(f30, f60, f90, f200, f21, f34, slopeFirst, fMinLow, minSMAFirst) + 1
	if n-1 < start {
		return model.NoSignal(), nil
	}

	// --- D. 从最新一行向前回溯，找到最近的信号日 ---
	for i := n - 1; i >= start; i-- {
		if sma200[i] <= 0 {
			continue
		}

		// 条件 1：长期均线密集 且 MA200 走平或向上
		longCV := ta.CV(ema30[i], ema60[i], ema90[i], sma200[i])
		if longCV >= s.longCVMax || slope[i]/sma200[i] <= s.slopeMin {
			continue
		}

		// 条件 2：近期回踩过 MA200 附近，且当前已重新站上
		if minLow[i] >= minSMA[i]*s.proximity || closes[i] <= sma200[i] {
			continue
		}

		// 条件 3：前一日短期均线高度密集（突破前的蓄势）
		if ta.CV(ema21[i-1], ema30[i-1], sma34[i-1]) >= s.shortCVMax {
			continue
		}

		// 条件 4：收盘上穿短期均线压力位（三条中的最高者）
		resPrev := max(ema21[i-1], ema30[i-1], sma34[i-1])
		resCur := max(ema21[i], ema30[i], sma34[i])
		if !(closes[i-1] <= resPrev && closes[i] > resCur) {
			continue
		}

		return model.SignalOn(times[i]), nil
	}

	return model.NoSignal(), nil
}
