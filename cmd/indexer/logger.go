package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"deviationScope/internal/config"
)

// newLogger builds a production JSON logger. With a log file configured the
// output goes through a rotating writer instead of stderr.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}

	if cfg.File == "" {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = level
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zcfg.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), writer, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
