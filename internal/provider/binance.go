package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/service"
)

// BinanceProvider 通过 Binance 公共 REST 接口拉取加密货币 K 线。
// base_url 可在 api.binance.com / api.binance.us 之间切换（视网络环境而定）。
type BinanceProvider struct {
	client  *restClient
	baseURL string
	logger  *zap.Logger
}

func NewBinanceProvider(cfg service.ProviderConfig, logger *zap.Logger) *BinanceProvider {
	return &BinanceProvider{
		client:  newRESTClient("binance", cfg, logger),
		baseURL: cfg.BaseURL,
		logger:  logger.With(zap.String("provider", "binance")),
	}
}

func (p *BinanceProvider) Name() string { return "binance" }

// Fetch 拉取 K 线。Binance 返回的就是按开盘时间升序的数组，
// 数组元素形如 [openTime, "open", "high", "low", "close", "volume", ...]，
// 价格字段是字符串。
func (p *BinanceProvider) Fetch(ctx context.Context, symbol, interval string, limit int) (model.Series, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", p.baseURL, symbol, interval, limit)

	var rows [][]any
	if err := p.client.getJSON(ctx, url, &rows); err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	series := make(model.Series, 0, len(rows))
	for _, row := range rows {
		bar, ok := parseBinanceKline(row)
		if !ok {
			p.logger.Warn("Skipping malformed kline row", zap.String("symbol", symbol))
			continue
		}
		series = append(series, bar)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
	return series, nil
}

func parseBinanceKline(row []any) (model.Bar, bool) {
	if len(row) < 6 {
		return model.Bar{}, false
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return model.Bar{}, false
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return model.Bar{}, false
		}
		v, err := service.StringToFloat(s)
		if err != nil {
			return model.Bar{}, false
		}
		fields[i-1] = v
	}

	return model.Bar{
		Timestamp: time.UnixMilli(int64(openTime)).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, true
}
