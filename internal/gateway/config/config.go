package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/50zero/HL-trade-ledger/pkg/utils"
)

// Config 定义整个配置的结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Datasource  DatasourceConfig  `mapstructure:"datasource"`
	Builder     BuilderConfig     `mapstructure:"builder"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Rate        RateConfig        `mapstructure:"rate"`
	Pnl         PnlConfig         `mapstructure:"pnl"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatasourceConfig 上游数据源配置
type DatasourceConfig struct {
	Type       string `mapstructure:"type"`
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout"`
}

// BuilderConfig builder 过滤配置
type BuilderConfig struct {
	Target string            `mapstructure:"target"`
	Labels map[string]string `mapstructure:"labels"`
}

// CacheConfig 缓存 TTL 配置（毫秒）
type CacheConfig struct {
	FillsTTLMs         int64 `mapstructure:"fills_ttl_ms"`
	ClearinghouseTTLMs int64 `mapstructure:"clearinghouse_ttl_ms"`
}

// RateConfig 上游限流配置
type RateConfig struct {
	MaxWeight int   `mapstructure:"max_weight"`
	WindowMs  int64 `mapstructure:"window_ms"`
}

// PnlConfig 盈亏计算配置
type PnlConfig struct {
	MaxStartCapital float64 `mapstructure:"max_start_capital"`
}

// LeaderboardConfig 排行榜配置，refresh_ms 为 0 表示关闭预热
type LeaderboardConfig struct {
	RefreshMs int64 `mapstructure:"refresh_ms"`
}

// MonitorConfig 指标暴露配置
type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("datasource.type", "hyperliquid")
	viper.SetDefault("datasource.base_url", "https://api.hyperliquid.xyz")
	viper.SetDefault("datasource.timeout", 15)
	viper.SetDefault("builder.target", "")
	viper.SetDefault("cache.fills_ttl_ms", 60_000)
	viper.SetDefault("cache.clearinghouse_ttl_ms", 5_000)
	viper.SetDefault("rate.max_weight", 1200)
	viper.SetDefault("rate.window_ms", 60_000)
	viper.SetDefault("pnl.max_start_capital", 1_000_000)
	viper.SetDefault("leaderboard.refresh_ms", 0)
	viper.SetDefault("monitor.enable", false)
	viper.SetDefault("monitor.prometheus_addr", ":9091")
}

func bindEnv() {
	// 环境变量优先于配置文件
	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("log.level", "LOG_LEVEL")
	_ = viper.BindEnv("datasource.type", "DATASOURCE_TYPE")
	_ = viper.BindEnv("datasource.base_url", "HYPERLIQUID_API_URL")
	_ = viper.BindEnv("builder.target", "TARGET_BUILDER")
	_ = viper.BindEnv("cache.fills_ttl_ms", "CACHE_FILLS_TTL_MS")
	_ = viper.BindEnv("cache.clearinghouse_ttl_ms", "CACHE_CLEARINGHOUSE_TTL_MS")
	_ = viper.BindEnv("pnl.max_start_capital", "MAX_START_CAPITAL")
	_ = viper.BindEnv("rate.max_weight", "RATE_MAX_WEIGHT")
	_ = viper.BindEnv("rate.window_ms", "RATE_WINDOW_MS")
	_ = viper.BindEnv("monitor.enable", "MONITOR_ENABLE")
	_ = viper.BindEnv("monitor.prometheus_addr", "PROMETHEUS_ADDR")
	_ = viper.BindEnv("leaderboard.refresh_ms", "LEADERBOARD_REFRESH_MS")
}

// InitConfig 加载配置：默认值 < 配置文件 < 环境变量
func InitConfig() (Config, error) {
	var config Config

	setDefaults()
	bindEnv()

	viper.SetConfigName("config.server")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")

	if err := viper.ReadInConfig(); err != nil {
		// 缺省运行只依赖环境变量，文件不存在不算错误
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, fmt.Errorf("read config file: %w", err)
		}
	}

	// 环境变量一律是字符串，解码需要弱类型转换
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return config, fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}

	if err := config.normalize(); err != nil {
		return config, err
	}

	return config, nil
}

// normalize 规范化并校验关键字段
func (c *Config) normalize() error {
	if c.Builder.Target != "" {
		target := utils.NormalizeAddress(c.Builder.Target)
		if target == "" {
			return fmt.Errorf("invalid TARGET_BUILDER address: %s", c.Builder.Target)
		}
		c.Builder.Target = target
	}

	labels := make(map[string]string, len(c.Builder.Labels))
	for addr, label := range c.Builder.Labels {
		labels[strings.ToLower(addr)] = label
	}
	c.Builder.Labels = labels

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cache.FillsTTLMs <= 0 {
		c.Cache.FillsTTLMs = 60_000
	}
	if c.Cache.ClearinghouseTTLMs <= 0 {
		c.Cache.ClearinghouseTTLMs = 5_000
	}
	if c.Pnl.MaxStartCapital <= 0 {
		c.Pnl.MaxStartCapital = 1_000_000
	}
	return nil
}

// WatchConfig 监听配置文件变更，热更新日志级别等可调项
func WatchConfig(config *Config, logger *zap.Logger, onChange func(Config)) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := InitConfig()
		if err != nil {
			logger.Error("Config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		*config = newConfig
		logger.Info("Config reloaded", zap.String("file", e.Name))
		if onChange != nil {
			onChange(newConfig)
		}
	})
}
