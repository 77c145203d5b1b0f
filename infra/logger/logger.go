package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON production logger. When extra is non-nil every entry is
// also written to it, which is how log lines reach Loki.
func New(serviceName string, extra zapcore.WriteSyncer) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var opts []zap.Option
	if extra != nil {
		encoder := zapcore.NewJSONEncoder(cfg.EncoderConfig)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, zapcore.NewCore(encoder, extra, cfg.Level))
		}))
	}

	base, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return base.With(zap.String("service", serviceName)), nil
}

// Must panics when the logger cannot be created.
func Must(logger *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return logger
}

func Named(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(component)
}
