// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface every component receives.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalf(template string, args ...interface{})
	Sync() error
}

type applicationLogger struct {
	*zap.SugaredLogger
}

type loggerOptions struct {
	name  string
	path  string
	level string
}

type Option func(*loggerOptions)

func Name(name string) Option {
	return func(o *loggerOptions) { o.name = name }
}

// Path enables a rotated json log file under the given directory.
func Path(path string) Option {
	return func(o *loggerOptions) { o.path = path }
}

func Level(level string) Option {
	return func(o *loggerOptions) { o.level = level }
}

func NewApplicationLogger(opts ...Option) (Logger, error) {
	o := &loggerOptions{name: "segscribe", level: "debug"}
	for _, opt := range opts {
		opt(o)
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(o.level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", o.level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), lvl),
	}

	if o.path != "" {
		if err := os.MkdirAll(o.path, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(o.path, o.name+".log"),
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), lvl))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named(o.name)
	return &applicationLogger{base.Sugar()}, nil
}
