package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var lg *zap.Logger

func init() {
	lg, _ = zap.NewProduction(zap.AddCallerSkip(1))
}

func InitLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(lvl)
	l, err := conf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	lg = l
	return nil
}

func Info(msg string, fields ...zap.Field) {
	lg.Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	lg.Error(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	lg.Warn(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	lg.Debug(msg, fields...)
}
