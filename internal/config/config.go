package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig `mapstructure:"database"` // PostgreSQL配置
	Provider ProviderConfig `mapstructure:"provider"` // 上游数据源配置
	Sync     SyncConfig     `mapstructure:"sync"`     // 同步调度配置
	Features FeatureConfig  `mapstructure:"features"` // 特征计算配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// ProviderConfig 上游统计数据API配置
// NBA官方统计接口对抓取频率非常敏感，request_delay/jitter 是反限流的关键参数
type ProviderConfig struct {
	BaseURL      string        `mapstructure:"base_url"`      // API基础地址
	Timeout      int           `mapstructure:"timeout"`       // 单次请求超时（秒）
	RetryCount   int           `mapstructure:"retry_count"`   // 最大尝试次数
	BackoffBase  time.Duration `mapstructure:"backoff_base"`  // 退避基数（指数退避：base * 2^attempt）
	RequestDelay time.Duration `mapstructure:"request_delay"` // 每次调用前的固定延迟
	Jitter       time.Duration `mapstructure:"jitter"`        // 延迟上叠加的随机抖动上限
	Proxy        string        `mapstructure:"proxy"`         // 代理地址
}

// SyncConfig 同步调度配置
type SyncConfig struct {
	Season string `mapstructure:"season"` // 当前赛季，如 2025-26
}

// FeatureConfig 特征计算配置
// back_to_back_max_rest 与 min_history 是可调参数，不要在代码里写死
type FeatureConfig struct {
	MinHistory        int `mapstructure:"min_history"`           // 滚动特征所需的最少历史场次
	BackToBackMaxRest int `mapstructure:"back_to_back_max_rest"` // 判定背靠背的休息天数上限
	OpenerRestDays    int `mapstructure:"opener_rest_days"`      // 赛季首场的默认休息天数
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("STATS_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("STATS_PROXY"); v != "" {
		cfg.Provider.Proxy = v
	}
}

// applyDefaults 未配置项回落到生产默认值
func applyDefaults(cfg *Config) {
	if cfg.Provider.RetryCount <= 0 {
		cfg.Provider.RetryCount = 3
	}
	if cfg.Provider.BackoffBase <= 0 {
		cfg.Provider.BackoffBase = 10 * time.Second
	}
	if cfg.Provider.RequestDelay <= 0 {
		cfg.Provider.RequestDelay = 2 * time.Second
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = 60
	}
	if cfg.Features.MinHistory <= 0 {
		cfg.Features.MinHistory = 5
	}
	if cfg.Features.BackToBackMaxRest <= 0 {
		cfg.Features.BackToBackMaxRest = 1
	}
	if cfg.Features.OpenerRestDays <= 0 {
		cfg.Features.OpenerRestDays = 7
	}
}
