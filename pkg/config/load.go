package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrReadConfig 配置文件读取失败
	ErrReadConfig = errors.New("config: failed to read configuration file")

	// ErrInvalidConfig 配置校验失败
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Load 加载配置
// 顺序：默认值 -> 配置文件（path 非空时）-> VALIDATIOND_* 环境变量 -> 校验
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrReadConfig, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置，返回所有问题
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if c.Server.EventBuffer < 1 {
		errs = append(errs, errors.New("server.event_buffer must be at least 1"))
	}

	if c.Validation.Workers < 0 {
		errs = append(errs, errors.New("validation.workers must not be negative"))
	}
	if c.Validation.RunTimeout < 0 {
		errs = append(errs, errors.New("validation.run_timeout must not be negative"))
	}
	if err := c.Validation.RunIDs.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("validation.run_ids: %w", err))
	}

	if c.Redis.Enabled {
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url must not be empty when redis is enabled"))
		}
		if c.Redis.SetKey == "" {
			errs = append(errs, errors.New("redis.set_key must not be empty when redis is enabled"))
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics.path must start with /"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
