// Package logger builds the zap logger. The terminal belongs to the UI, so
// logs normally go to a file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and sink. File "-" logs to stderr; an empty
// File discards everything.
type Config struct {
	Level    string
	Encoding string
	File     string
}

// New builds a zap.Logger for cfg. The returned func closes the sink.
func New(cfg Config) (*zap.Logger, func(), error) {
	if cfg.File == "" {
		return zap.NewNop(), func() {}, nil
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		// fall back to info level if parsing fails
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	path := cfg.File
	if path == "-" {
		path = "stderr"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	sink, closeSink, err := zap.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log sink: %w", err)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(sink), level)
	log := zap.New(core, zap.AddCaller())
	return log, func() {
		_ = log.Sync()
		closeSink()
	}, nil
}
