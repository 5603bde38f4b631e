package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/service"
)

// 策略名称常量（配置文件中 Markets.*.Strategy 的取值）
const (
	NameMTFBreakout           = "mtf_breakout"
	NameConsolidationBreakout = "consolidation_breakout"
)

// Strategy 是信号引擎的统一入口。两个策略共用同一接口：
// 布尔型策略只看最新一根 K 线，日期型策略回溯整段历史。
type Strategy interface {
	Name() string

	// MinBars 主周期序列的最少 K 线数，不足时直接视为无信号
	MinBars() int

	// NeedsTrend 是否需要第二条（趋势周期）序列
	NeedsTrend() bool

	// Evaluate 对单个标的评估买入条件。
	// 历史不足、序列为空都按无信号处理，不算错误。
	Evaluate(primary, trend model.Series) (model.SignalResult, error)
}

// New 按名称构造策略实例，参数来自只读的 StrategyConfig
func New(name string, cfg *service.StrategyConfig) (Strategy, error) {
	switch name {
	case NameMTFBreakout:
		return NewMTFBreakout(cfg), nil
	case NameConsolidationBreakout:
		return NewConsolidationBreakout(&cfg.Consolidation), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

// SafeEvaluate 包装 Evaluate：计算过程中的任何 panic 或错误
// 都只记录日志并按无信号处理，单个标的绝不中断整轮扫描。
func SafeEvaluate(s Strategy, symbol string, primary, trend model.Series, logger *zap.Logger) (result model.SignalResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Strategy evaluation panicked, treating as no signal",
				zap.String("strategy", s.Name()),
				zap.String("symbol", symbol),
				zap.Any("panic", r))
			result = model.NoSignal()
		}
	}()

	result, err := s.Evaluate(primary, trend)
	if err != nil {
		logger.Warn("Strategy evaluation failed, treating as no signal",
			zap.String("strategy", s.Name()),
			zap.String("symbol", symbol),
			zap.Error(err))
		return model.NoSignal()
	}
	return result
}
