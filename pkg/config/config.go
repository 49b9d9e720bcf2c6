package config

import (
	"time"

	"katydid-async-validation/pkg/idgen"
	"katydid-async-validation/pkg/logger"
	"katydid-async-validation/pkg/validation/lookup"
	"katydid-async-validation/pkg/validation/plugin"
)

// EnvPrefix 环境变量前缀，例如 VALIDATIOND_SERVER_ADDR
const EnvPrefix = "VALIDATIOND"

// Config 服务配置
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Validation ValidationConfig `mapstructure:"validation"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        logger.Config    `mapstructure:"log"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EventBuffer     int           `mapstructure:"event_buffer"` // 每个 SSE 订阅方的缓冲大小
}

// ValidationConfig 验证编排配置
type ValidationConfig struct {
	Workers               int           `mapstructure:"workers"` // 0 表示每次运行一个 goroutine
	ShowErrorInDialog     bool          `mapstructure:"show_error_in_dialog"`
	ValidateAllProperties bool          `mapstructure:"validate_all_properties"`
	Locale                string        `mapstructure:"locale"`
	RunTimeout            time.Duration `mapstructure:"run_timeout"` // 0 表示不限制
	RunIDs                idgen.Config  `mapstructure:"run_ids"`     // 运行标识的 Snowflake 节点编号
}

// RedisConfig 唯一性查询使用的 Redis
type RedisConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	lookup.Config `mapstructure:",squash"`
}

// MetricsConfig Prometheus 指标
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Path                 string `mapstructure:"path"`
	plugin.MetricsConfig `mapstructure:",squash"`
}
