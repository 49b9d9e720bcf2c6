package plugin

import (
	"go.uber.org/zap"

	"katydid-async-validation/pkg/validation/core"
)

// LoggingPlugin 日志插件
// 职责：记录每次验证运行的开始和结束
// 设计模式：插件模式
type LoggingPlugin struct {
	logger *zap.Logger
}

// NewLoggingPlugin 创建日志插件，logger 为 nil 时不输出
func NewLoggingPlugin(logger *zap.Logger) *LoggingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPlugin{logger: logger.Named("validation")}
}

// Name 插件名称
func (p *LoggingPlugin) Name() string {
	return "LoggingPlugin"
}

// BeforeRun 运行开始
func (p *LoggingPlugin) BeforeRun(info core.RunInfo) {
	p.logger.Debug("validation started",
		zap.String("run_id", info.ID),
		zap.String("kind", string(info.Kind)),
		zap.String("field", info.Field),
	)
}

// AfterRun 运行结束，异常用 warn 级别，其余用 debug
func (p *LoggingPlugin) AfterRun(result core.RunResult) {
	fields := []zap.Field{
		zap.String("run_id", result.Info.ID),
		zap.String("kind", string(result.Info.Kind)),
		zap.String("field", result.Info.Field),
		zap.String("outcome", result.Outcome()),
		zap.Int("failures", len(result.Failures)),
		zap.Strings("notified", result.Notified),
		zap.Duration("duration", result.Duration),
	}

	if result.Fault != nil {
		p.logger.Warn("validation faulted", append(fields, zap.Error(result.Fault))...)
		return
	}
	p.logger.Debug("validation finished", fields...)
}

// LogPresenter 把需要展示的评估异常写入日志
// 没有界面的进程中充当错误展示器
type LogPresenter struct {
	logger *zap.Logger
}

// NewLogPresenter 创建日志展示器
func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPresenter{logger: logger}
}

// Show 实现 core.ErrorPresenter
func (p *LogPresenter) Show(err error) {
	p.logger.Error("validation error", zap.Error(err))
}
