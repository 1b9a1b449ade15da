// Package logging builds the process logger from config.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"matchreplay.ai/internal/config"
)

// New builds a zap logger. An unknown level falls back to info.
func New(cfg config.Logging) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zc.EncoderConfig.ConsoleSeparator = "  "
		zc.DisableCaller = true
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
