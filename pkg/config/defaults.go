package config

import (
	"github.com/spf13/viper"

	"katydid-async-validation/pkg/logger"
	"katydid-async-validation/pkg/validation/lookup"
)

// setDefaults 注册所有键的默认值
// 环境变量覆盖只对注册过的键生效，新增字段必须在这里给出默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.event_buffer", 64)

	v.SetDefault("validation.workers", 0)
	v.SetDefault("validation.show_error_in_dialog", false)
	v.SetDefault("validation.validate_all_properties", true)
	v.SetDefault("validation.locale", "en")
	v.SetDefault("validation.run_timeout", "0s")
	v.SetDefault("validation.run_ids.datacenter_id", 0)
	v.SetDefault("validation.run_ids.worker_id", 0)

	redis := lookup.DefaultConfig()
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", redis.URL)
	v.SetDefault("redis.set_key", redis.SetKey)
	v.SetDefault("redis.retry_attempts", redis.RetryAttempts)
	v.SetDefault("redis.retry_interval", redis.RetryInterval)
	v.SetDefault("redis.connect_timeout", redis.ConnectTimeout)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "katydid")
	v.SetDefault("metrics.subsystem", "validation")
	v.SetDefault("metrics.duration_buckets", []float64{})

	log := logger.DefaultConfig()
	v.SetDefault("log.level", log.Level)
	v.SetDefault("log.format", log.Format)
	v.SetDefault("log.development", log.Development)
	v.SetDefault("log.file.path", log.File.Path)
	v.SetDefault("log.file.max_size_mb", log.File.MaxSizeMB)
	v.SetDefault("log.file.max_backups", log.File.MaxBackups)
	v.SetDefault("log.file.max_age_days", log.File.MaxAgeDays)
	v.SetDefault("log.file.compress", log.File.Compress)
}
