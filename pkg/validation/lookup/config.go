package lookup

import "time"

// Config Redis 连接配置
type Config struct {
	URL            string        `mapstructure:"url"`             // redis://:password@localhost:6379/0
	SetKey         string        `mapstructure:"set_key"`         // 唯一性集合的键
	RetryAttempts  int           `mapstructure:"retry_attempts"`  // 连接重试次数
	RetryInterval  time.Duration `mapstructure:"retry_interval"`  // 重试间隔
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 连接总超时
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379/0",
		SetKey:         "validation:unique",
		RetryAttempts:  3,
		RetryInterval:  time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}
