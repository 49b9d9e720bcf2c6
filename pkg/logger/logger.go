package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrInvalidFormat 不支持的日志格式
var ErrInvalidFormat = errors.New("logger: format must be json or console")

// Config 日志配置
type Config struct {
	Level       string     `mapstructure:"level"`  // debug | info | warn | error
	Format      string     `mapstructure:"format"` // json | console
	Development bool       `mapstructure:"development"`
	File        FileConfig `mapstructure:"file"`
}

// FileConfig 日志文件滚动配置，Path 为空时只输出到标准错误
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		File: FileConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// New 创建日志器
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	encoder, err := newEncoder(cfg)
	if err != nil {
		return nil, err
	}

	return zap.New(
		zapcore.NewCore(encoder, newWriter(cfg.File), zap.NewAtomicLevelAt(level)),
		buildOptions(cfg)...,
	), nil
}

// newEncoder 根据格式创建编码器
func newEncoder(cfg Config) (zapcore.Encoder, error) {
	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return zapcore.NewJSONEncoder(encCfg), nil
	case "console":
		return zapcore.NewConsoleEncoder(encCfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, cfg.Format)
	}
}

// newWriter 标准错误，配置了文件时同时写入滚动文件
func newWriter(file FileConfig) zapcore.WriteSyncer {
	stderr := zapcore.Lock(os.Stderr)
	if file.Path == "" {
		return stderr
	}

	rolling := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	})
	return zapcore.NewMultiWriteSyncer(stderr, rolling)
}

func buildOptions(cfg Config) []zap.Option {
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return opts
}
