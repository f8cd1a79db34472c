package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const production = "production"

// New creates the console's structured logger. Production writes JSON,
// every other environment a coloured console format. An empty level means
// debug outside production and info inside it.
func New(env, level string) (*zap.Logger, error) {
	lvl, err := parseLevel(env, level)
	if err != nil {
		return nil, err
	}

	core := NewCore(env, lvl, zapcore.Lock(os.Stdout))
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	).Named("catalog-admin"), nil
}

// NewCore builds the encoder and level New uses, writing to w
func NewCore(env string, level zapcore.Level, w zapcore.WriteSyncer) zapcore.Core {
	var encoder zapcore.Encoder
	if env == production {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.MessageKey = "message"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewCore(encoder, w, level)
}

func parseLevel(env, level string) (zapcore.Level, error) {
	if level == "" {
		if env == production {
			return zapcore.InfoLevel, nil
		}
		return zapcore.DebugLevel, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
