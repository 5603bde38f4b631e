package scanner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/provider"
	"mtf-signal-scanner/internal/strategy"
)

// Market 把一个市场扫描所需的全部协作方绑在一起：
// 标的清单、数据源、策略、各周期的拉取参数。
type Market struct {
	Name     string
	Type     model.MarketType
	Tickers  []string
	Provider provider.PriceSeriesProvider
	Strategy strategy.Strategy

	Interval string
	Lookback int

	// 趋势周期参数，仅在 Strategy.NeedsTrend() 时使用
	TrendInterval string
	TrendLookback int
}

// ScanMarket 扫描一个市场。每个标的独立拉取、独立评估、独立超时；
// 数据源失败降级为空序列，空序列由策略按无信号处理。
func (s *Scanner) ScanMarket(ctx context.Context, m Market, fetchTimeout time.Duration) model.MarketResult {
	s.logger.Info("Scanning market",
		zap.String("market", m.Name),
		zap.String("strategy", m.Strategy.Name()),
		zap.Int("tickers", len(m.Tickers)))

	eval := func(ctx context.Context, symbol string) model.SignalResult {
		fctx := ctx
		if fetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, fetchTimeout)
			defer cancel()
		}

		primary := s.fetchSoft(fctx, m.Provider, symbol, m.Interval, m.Lookback)
		if len(primary) == 0 {
			return model.NoSignal()
		}

		var trend model.Series
		if m.Strategy.NeedsTrend() {
			trend = s.fetchSoft(fctx, m.Provider, symbol, m.TrendInterval, m.TrendLookback)
			if len(trend) == 0 {
				return model.NoSignal()
			}
		}

		res := strategy.SafeEvaluate(m.Strategy, symbol, primary, trend, s.logger)
		if res.Fired {
			s.logger.Info("BUY SIGNAL detected",
				zap.String("market", m.Name),
				zap.String("symbol", symbol),
				zap.Time("date", res.Date))
		}
		return res
	}

	results := s.Scan(ctx, m.Tickers, eval)
	return model.MarketResult{Name: m.Name, Type: m.Type, Results: results}
}

// fetchSoft 把数据源错误收敛为空序列：单个标的的失败只影响它自己
func (s *Scanner) fetchSoft(ctx context.Context, p provider.PriceSeriesProvider, symbol, interval string, limit int) model.Series {
	series, err := p.Fetch(ctx, symbol, interval, limit)
	if err != nil {
		s.logger.Warn("Fetch failed, treating as empty series",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Error(err))
		return nil
	}
	return series
}
