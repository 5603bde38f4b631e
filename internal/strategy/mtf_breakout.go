package strategy

import (
	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/service"
	"mtf-signal-scanner/pkg/ta"
)

// MTFBreakout 是多周期布林/EMA 突破策略（布尔型）。
//
// 趋势周期上计算快慢 EMA 作为方向过滤器，前向填充对齐到主周期；
// 主周期上计算布林带与同参数的快慢 EMA。只评估最新一根 K 线：
//
//	trendOK AND (close 上穿布林中轨 OR (close 在中轨上方 AND 快线上穿慢线))
type MTFBreakout struct {
	bbLength int
	bbMult   float64
	fastLen  int
	slowLen  int
}

func NewMTFBreakout(cfg *service.StrategyConfig) *MTFBreakout {
	return &MTFBreakout{
		bbLength: cfg.BBLength,
		bbMult:   cfg.BBMult,
		fastLen:  cfg.EMAFastLength,
		slowLen:  cfg.EMASlowLength,
	}
}

func (s *MTFBreakout) Name() string { return NameMTFBreakout }

// MinBars 指标预热之外还需要一根前置 K 线供上穿判断使用
func (s *MTFBreakout) MinBars() int {
	return max(s.bbLength, s.slowLen, s.fastLen) + 1
}

func (s *MTFBreakout) NeedsTrend() bool { return true }

func (s *MTFBreakout) Evaluate(primary, trend model.Series) (model.SignalResult, error) {
	if len(primary) < s.MinBars() || len(trend) < s.slowLen {
		return model.NoSignal(), nil
	}

	// --- A. 趋势周期：快慢 EMA 作为方向过滤器 ---
	trendCloses := trend.Closes()
	trendFast, tf := ta.EMA(trendCloses, s.fastLen)
	trendSlow, tsl := ta.EMA(trendCloses, s.slowLen)
	trendFirst := max(tf, tsl)

	// --- B. 对齐：趋势指标前向填充到主周期时间轴 ---
	primaryTimes := primary.Timestamps()
	trendTimes := trend.Timestamps()
	alignedFast, af := alignForwardFill(primaryTimes, trendTimes, trendFast, trendFirst)
	alignedSlow, as := alignForwardFill(primaryTimes, trendTimes, trendSlow, trendFirst)

	// --- C. 主周期：布林带 + 快慢 EMA ---
	closes := primary.Closes()
	_, basis, _, bbFirst := ta.BBands(closes, s.bbLength, s.bbMult)
	emaFast, ef := ta.EMA(closes, s.fastLen)
	emaSlow, es := ta.EMA(closes, s.slowLen)

	// 丢弃所有带未定义值的行：预热期 + 趋势对齐前的空档
	start := max(bbFirst, ef, es, af, as)
	last := len(primary) - 1
	// 上穿判断需要 last-1 行也有效
	if last-1 < start {
		return model.NoSignal(), nil
	}

	// --- D. 只评估最新一行 ---
	if alignedFast[last] <= alignedSlow[last] {
		// 趋势过滤器不看多，后面的突破条件一律不看
		return model.NoSignal(), nil
	}

	bbBreak := ta.Crossover(closes, basis, last)
	emaCross := ta.Crossover(emaFast, emaSlow, last)

	if bbBreak || (closes[last] > basis[last] && emaCross) {
		return model.SignalNow(), nil
	}
	return model.NoSignal(), nil
}
