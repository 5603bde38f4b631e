// internal/service/config.go
package service

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个扫描任务的配置根节点
type Config struct {
	Scan      ScanConfig              `mapstructure:"Scan"`
	Schedule  ScheduleConfig          `mapstructure:"Schedule"`
	Strategy  StrategyConfig          `mapstructure:"Strategy"`
	Markets   map[string]MarketConfig `mapstructure:"Markets"`
	Providers ProvidersConfig         `mapstructure:"Providers"`
	Telegram  TelegramConfig          `mapstructure:"Telegram"`
}

// ScanConfig 控制扫描本身的并发与超时
type ScanConfig struct {
	Workers      int           // 每个市场的并发评估数
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // 单标的拉取数据的总超时
}

// ScheduleConfig 定义 daemon 模式下每日触发的本地时间
type ScheduleConfig struct {
	At string // "HH:MM"，例如 "17:00"
}

// StrategyConfig 定义策略参数。任务启动时读取一次，
// 之后被所有并发评估只读共享。
type StrategyConfig struct {
	BBLength       int     `mapstructure:"bb_length"`
	BBMult         float64 `mapstructure:"bb_mult"`
	EMAFastLength  int     `mapstructure:"ema_fast_length"`
	EMASlowLength  int     `mapstructure:"ema_slow_length"`
	TrendTimeframe string  `mapstructure:"trend_timeframe"`
	RecencyDays    int     `mapstructure:"recency_days"`

	Consolidation ConsolidationConfig `mapstructure:"consolidation"`
}

// ConsolidationConfig 是均线密集突破策略（日期型）的阈值参数
type ConsolidationConfig struct {
	LongCVMax        float64 `mapstructure:"long_cv_max"`       // 长期均线离散度上限
	SlopeMin         float64 `mapstructure:"slope_min"`         // MA200 归一化斜率下限
	ShortCVMax       float64 `mapstructure:"short_cv_max"`      // 前一日短期均线离散度上限
	SupportProximity float64 `mapstructure:"support_proximity"` // 回踩 MA200 的接近系数
	MinBars          int     `mapstructure:"min_bars"`          // 最少历史 K 线数
}

// MarketConfig 定义一个待扫描的市场
type MarketConfig struct {
	Type          string // us_equity / hk_equity / china_equity / crypto
	TickersPath   string `mapstructure:"tickers_path"` // 标的清单文件，每行一个
	Strategy      string // mtf_breakout / consolidation_breakout
	Interval      string // 主周期，例如 "1d"
	Lookback      int    // 主周期回看 K 线数
	TrendInterval string `mapstructure:"trend_interval"` // 趋势周期（仅 mtf_breakout 需要）
	TrendLookback int    `mapstructure:"trend_lookback"`
}

// ProviderConfig 是单个数据源的连接与重试参数
type ProviderConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	RateLimit     float64       `mapstructure:"rate_limit"` // 每秒请求数
	RateBurst     int           `mapstructure:"rate_burst"`
}

// ProvidersConfig 聚合三类数据源的配置
type ProvidersConfig struct {
	Yahoo   ProviderConfig `mapstructure:"Yahoo"`
	Binance ProviderConfig `mapstructure:"Binance"`
	Tushare ProviderConfig `mapstructure:"Tushare"`
}

// TelegramConfig 定义推送渠道。凭证缺失时任务照常运行，只是不推送。
type TelegramConfig struct {
	Token         string        `mapstructure:"token"`
	ChatID        string        `mapstructure:"chat_id"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// GlobalConfig 存储加载后的全局配置
var GlobalConfig Config

// LoadConfig 读取并解析配置文件
func LoadConfig(configPath string) *Config {
	// 设置配置文件的名称、类型和路径
	viper.SetConfigName("config") // 文件名是 config
	viper.SetConfigType("yaml")   // 文件类型是 yaml
	viper.AddConfigPath(configPath)

	setDefaults()

	// 查找并读取配置文件；文件缺失时完全依赖默认值运行
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Config file not found, using defaults: %s", err)
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	}

	// 将配置绑定到结构体
	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode config into struct: %s", err)
	}

	// 凭证允许用环境变量兜底，便于不把密钥写进配置文件
	if GlobalConfig.Telegram.Token == "" {
		GlobalConfig.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
	}
	if GlobalConfig.Telegram.ChatID == "" {
		GlobalConfig.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}
	if GlobalConfig.Providers.Tushare.Token == "" {
		GlobalConfig.Providers.Tushare.Token = os.Getenv("TUSHARE_TOKEN")
	}

	return &GlobalConfig
}

func setDefaults() {
	viper.SetDefault("Scan.Workers", 4)
	viper.SetDefault("Scan.fetch_timeout", "30s")
	viper.SetDefault("Schedule.At", "17:00")

	viper.SetDefault("Strategy.bb_length", 20)
	viper.SetDefault("Strategy.bb_mult", 2.0)
	viper.SetDefault("Strategy.ema_fast_length", 10)
	viper.SetDefault("Strategy.ema_slow_length", 20)
	viper.SetDefault("Strategy.trend_timeframe", "60m")
	viper.SetDefault("Strategy.recency_days", 30)

	viper.SetDefault("Strategy.consolidation.long_cv_max", 0.02)
	viper.SetDefault("Strategy.consolidation.slope_min", -0.001)
	viper.SetDefault("Strategy.consolidation.short_cv_max", 0.005)
	viper.SetDefault("Strategy.consolidation.support_proximity", 1.01)
	viper.SetDefault("Strategy.consolidation.min_bars", 250)

	viper.SetDefault("Providers.Yahoo.base_url", "https://query1.finance.yahoo.com")
	viper.SetDefault("Providers.Binance.base_url", "https://api.binance.com")
	viper.SetDefault("Providers.Tushare.base_url", "http://api.tushare.pro")
	for _, p := range []string{"Yahoo", "Binance", "Tushare"} {
		viper.SetDefault("Providers."+p+".retry_attempts", 3)
		viper.SetDefault("Providers."+p+".retry_backoff", "2s")
		viper.SetDefault("Providers."+p+".rate_limit", 5.0)
		viper.SetDefault("Providers."+p+".rate_burst", 1)
	}

	viper.SetDefault("Telegram.retry_attempts", 3)
	viper.SetDefault("Telegram.retry_backoff", "3s")
}
