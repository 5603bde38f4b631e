package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/service"
)

// ErrUnconfigured 表示数据源缺少必要凭证。
// 构造阶段显式返回，调用方据此跳过对应市场，而不是在运行中撞上空指针。
var ErrUnconfigured = errors.New("provider is not configured")

// PriceSeriesProvider 按周期与回看长度拉取某标的的历史 K 线。
// 约定：返回的序列按时间戳升序排列，列语义统一为 OHLCV；
// 内部重试耗尽后返回错误，由扫描层降级为空序列。
type PriceSeriesProvider interface {
	Name() string
	Fetch(ctx context.Context, symbol, interval string, limit int) (model.Series, error)
}

// RetryPolicy 是有界重试策略：尝试次数 + 每次之间的固定退避
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func retryPolicyFrom(cfg service.ProviderConfig) RetryPolicy {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{Attempts: attempts, Backoff: cfg.RetryBackoff}
}

// ForMarket 按市场类别选择数据源实现（扫描任务启动时调用一次）
func ForMarket(mt model.MarketType, cfg *service.ProvidersConfig, logger *zap.Logger) (PriceSeriesProvider, error) {
	switch mt {
	case model.MarketUSEquity, model.MarketHKEquity:
		return NewYahooProvider(cfg.Yahoo, logger), nil
	case model.MarketCrypto:
		return NewBinanceProvider(cfg.Binance, logger), nil
	case model.MarketChinaEquity:
		return NewTushareProvider(cfg.Tushare, logger)
	default:
		return nil, fmt.Errorf("unknown market type: %s", mt)
	}
}
