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

// TushareProvider 通过 Tushare Pro 接口拉取 A 股日线。
// 凭证在构造时显式检查：没有 token 就返回 ErrUnconfigured，
// 由调用方决定跳过 A 股市场，而不是依赖进程级的隐式初始化。
type TushareProvider struct {
	client  *restClient
	baseURL string
	token   string
	logger  *zap.Logger
	now     func() time.Time
}

func NewTushareProvider(cfg service.ProviderConfig, logger *zap.Logger) (*TushareProvider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("tushare: %w", ErrUnconfigured)
	}
	return &TushareProvider{
		client:  newRESTClient("tushare", cfg, logger),
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		logger:  logger.With(zap.String("provider", "tushare")),
		now:     time.Now,
	}, nil
}

func (p *TushareProvider) Name() string { return "tushare" }

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// Fetch 拉取日线数据。Tushare 只提供日线，interval 参数被忽略；
// 返回的数据按交易日倒序，这里统一转成升序。
func (p *TushareProvider) Fetch(ctx context.Context, symbol, _ string, limit int) (model.Series, error) {
	end := p.now()
	start := end.AddDate(0, 0, -limit*2) // 乘 2 覆盖节假日

	req := tushareRequest{
		APIName: "daily",
		Token:   p.token,
		Params: map[string]string{
			"ts_code":    symbol,
			"start_date": start.Format("20060102"),
			"end_date":   end.Format("20060102"),
		},
		Fields: "trade_date,open,high,low,close,vol",
	}

	var resp tushareResponse
	if err := p.client.postJSON(ctx, p.baseURL, req, &resp); err != nil {
		return nil, fmt.Errorf("tushare daily %s: %w", symbol, err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("tushare daily %s: code %d: %s", symbol, resp.Code, resp.Msg)
	}

	series := make(model.Series, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		bar, ok := parseTushareRow(item)
		if !ok {
			p.logger.Warn("Skipping malformed daily row", zap.String("symbol", symbol))
			continue
		}
		series = append(series, bar)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
	return series, nil
}

// parseTushareRow 按请求的字段顺序解析一行：
// [trade_date, open, high, low, close, vol]
func parseTushareRow(item []any) (model.Bar, bool) {
	if len(item) < 6 {
		return model.Bar{}, false
	}

	dateStr, ok := item[0].(string)
	if !ok {
		return model.Bar{}, false
	}
	ts, err := time.Parse("20060102", dateStr)
	if err != nil {
		return model.Bar{}, false
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		v, ok := item[i].(float64)
		if !ok {
			return model.Bar{}, false
		}
		fields[i-1] = v
	}

	return model.Bar{
		Timestamp: ts.UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, true
}
