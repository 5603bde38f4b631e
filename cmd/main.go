package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mtf-signal-scanner/internal/model"
	"mtf-signal-scanner/internal/provider"
	"mtf-signal-scanner/internal/report"
	"mtf-signal-scanner/internal/scanner"
	"mtf-signal-scanner/internal/service"
	"mtf-signal-scanner/internal/strategy"
)

func main() {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:   "mtf-scanner",
		Short: "多市场多周期技术信号扫描器",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			service.InitLogger(debug)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config", "配置目录（内含 config.yaml）")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "输出 Debug 级别日志")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "立即执行一轮扫描并退出",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer service.Logger.Sync()
			cfg := service.LoadConfig(configPath)
			runJob(cmd.Context(), cfg)
			return nil
		},
	}

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "常驻运行：启动时先扫一轮，之后每天定时触发",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer service.Logger.Sync()
			cfg := service.LoadConfig(configPath)
			return runDaemon(cmd.Context(), cfg)
		},
	}

	root.AddCommand(scanCmd, daemonCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// runJob 执行一轮完整的扫描任务：逐市场扫描、汇总摘要、推送。
// 任何一个市场或标的的失败都只影响它自己，任务总会跑到推送这一步。
func runJob(ctx context.Context, cfg *service.Config) {
	logger := service.Logger
	started := time.Now()
	logger.Info("🚀 Starting scan job", zap.Int("markets", len(cfg.Markets)))

	sc := scanner.New(cfg.Scan.Workers, logger)

	// map 遍历无序，按市场名排序保证日志与行为可复现
	names := make([]string, 0, len(cfg.Markets))
	for name := range cfg.Markets {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []model.MarketResult
	for _, name := range names {
		mc := cfg.Markets[name]
		market, ok := buildMarket(name, mc, cfg, logger)
		if !ok {
			continue
		}
		results = append(results, sc.ScanMarket(ctx, market, cfg.Scan.FetchTimeout))
	}

	digest := report.BuildDigest(results, time.Now(), cfg.Strategy.RecencyDays)

	sender := report.NewTelegramSender(cfg.Telegram, logger)
	if !sender.Configured() {
		logger.Warn("Telegram credentials not set, printing digest to log only")
		logger.Info("Scan digest", zap.String("digest", digest))
	} else if err := sender.Send(ctx, digest); err != nil {
		// 推送失败不影响任务结果
		logger.Error("Digest delivery failed", zap.Error(err))
	}

	logger.Info("✅ Scan job finished", zap.Duration("elapsed", time.Since(started)))
}

// buildMarket 把一个市场的配置落成可扫描的协作方组合。
// 配置不完整（缺 token、清单缺失、策略名拼错）只跳过该市场。
func buildMarket(name string, mc service.MarketConfig, cfg *service.Config, logger *zap.Logger) (scanner.Market, bool) {
	mt := model.MarketType(mc.Type)

	prov, err := provider.ForMarket(mt, &cfg.Providers, logger)
	if err != nil {
		if errors.Is(err, provider.ErrUnconfigured) {
			logger.Warn("Provider not configured, skipping market", zap.String("market", name))
		} else {
			logger.Error("Provider setup failed, skipping market", zap.String("market", name), zap.Error(err))
		}
		return scanner.Market{}, false
	}

	strat, err := strategy.New(mc.Strategy, &cfg.Strategy)
	if err != nil {
		logger.Error("Strategy setup failed, skipping market", zap.String("market", name), zap.Error(err))
		return scanner.Market{}, false
	}

	tickers, err := scanner.LoadTickers(mc.TickersPath)
	if err != nil {
		logger.Error("Ticker list unavailable, skipping market", zap.String("market", name), zap.Error(err))
		return scanner.Market{}, false
	}

	trendInterval := mc.TrendInterval
	if trendInterval == "" {
		trendInterval = cfg.Strategy.TrendTimeframe
	}
	trendLookback := mc.TrendLookback
	if trendLookback <= 0 {
		trendLookback = 1000
	}
	lookback := mc.Lookback
	if lookback <= 0 {
		lookback = 500
	}

	return scanner.Market{
		Name:          name,
		Type:          mt,
		Tickers:       tickers,
		Provider:      prov,
		Strategy:      strat,
		Interval:      mc.Interval,
		Lookback:      lookback,
		TrendInterval: trendInterval,
		TrendLookback: trendLookback,
	}, true
}

// runDaemon 常驻模式：启动先扫一轮（方便验证配置），
// 之后每天在配置的本地时间触发，直到收到退出信号。
func runDaemon(ctx context.Context, cfg *service.Config) error {
	logger := service.Logger

	hour, minute, err := service.ParseClockTime(cfg.Schedule.At)
	if err != nil {
		return err
	}

	runJob(ctx, cfg)

	for {
		next := nextRunAt(time.Now(), hour, minute)
		logger.Info("Waiting for next scheduled run", zap.Time("next", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Shutting down scheduler")
			return nil
		case <-timer.C:
			runJob(ctx, cfg)
		}
	}
}

// nextRunAt 计算下一个触发时刻：今天的 HH:MM 已过就排到明天
func nextRunAt(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
