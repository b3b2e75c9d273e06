package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mintyspider/attendance-report/config"
)

// NewLogger 根据配置初始化 Zap 日志实例
// CLI 与 HTTP 服务共用；CLI 通常配置 console 格式输出到 stderr
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
		zapCfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("无效的日志格式 %q", cfg.Format)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	if len(cfg.Output) > 0 {
		zapCfg.OutputPaths = cfg.Output
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger.Named("attendance"), nil
}
