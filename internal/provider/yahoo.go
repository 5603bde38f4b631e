package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/service"
)

// YahooProvider 通过 Yahoo Finance v8 chart 接口拉取美股/港股 K 线。
// 美股代码直接使用（AAPL），港股带后缀（0700.HK）。
type YahooProvider struct {
	client  *restClient
	baseURL string
	logger  *zap.Logger
	now     func() time.Time // 测试时可注入
}

func NewYahooProvider(cfg service.ProviderConfig, logger *zap.Logger) *YahooProvider {
	return &YahooProvider{
		client:  newRESTClient("yahoo", cfg, logger),
		baseURL: cfg.BaseURL,
		logger:  logger.With(zap.String("provider", "yahoo")),
		now:     time.Now,
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChartResponse 只解出我们需要的字段
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) Fetch(ctx context.Context, symbol, interval string, limit int) (model.Series, error) {
	step, err := service.ParseIntervalDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("yahoo interval: %w", err)
	}

	// 按回看 K 线数换算起始时间，乘 2 覆盖周末与停牌日
	end := p.now()
	start := end.Add(-time.Duration(limit) * step * 2)

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&period1=%d&period2=%d&events=history",
		p.baseURL, url.PathEscape(symbol), interval, start.Unix(), end.Unix())

	var resp yahooChartResponse
	if err := p.client.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s (%s)", symbol, resp.Chart.Error.Description, resp.Chart.Error.Code)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	series := make(model.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo 对停牌时段返回 null，这些行直接跳过
		if i >= len(quote.Close) || quote.Close[i] == nil ||
			quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil {
			continue
		}
		volume := 0.0
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		series = append(series, model.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    volume,
		})
	}
	return series, nil
}
