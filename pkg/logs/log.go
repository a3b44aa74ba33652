package logs

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "level",
	NameKey:        "logger",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeName:     zapcore.FullNameEncoder,
}

var log *zap.Logger
var logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

func init() {
	ws, _, err := zap.Open("stdout")
	if err != nil {
		panic(err)
	}
	log = newLogger(ws)
}

func newLogger(ws zapcore.WriteSyncer) *zap.Logger {
	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			ws,
			logLevel,
		),
	)
}

func GetLogger() *zap.Logger {
	return log
}

func SetLevel(level zapcore.Level) {
	logLevel.SetLevel(level)
}

// ReplaceLogger swaps the process wide logger. Call it before any Session is created.
func ReplaceLogger(config *LogConfig) error {
	ws, _, err := zap.Open(config.OutputPaths...)
	if err != nil {
		return errors.Wrapf(err, "failed to open log outputs %v", config.OutputPaths)
	}

	err = logLevel.UnmarshalText([]byte(config.Level))
	if err != nil {
		return errors.Wrapf(err, "failed to parse log level '%s'", config.Level)
	}

	log = newLogger(ws)
	return nil
}

type LogConfig struct {
	Level       string   `yaml:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	OutputPaths []string `yaml:"outputPaths" validate:"min=1"`
}

func (c LogConfig) Default() *LogConfig {
	return &LogConfig{
		Level: "info",
		OutputPaths: []string{
			"stdout",
		},
	}
}
