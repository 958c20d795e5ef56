package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the JSON logger used across the application. Unknown levels fall
// back to info.
func New(level string) *zap.Logger {
	return NewTo(level, os.Stdout)
}

// NewTo is New writing to out. The CLI logs to stderr so command output
// stays clean.
func NewTo(level string, out io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	encoder := zapcore.NewJSONEncoder(encoderConfig)
	writer := zapcore.AddSync(out)
	core := zapcore.NewCore(encoder, writer, lvl)

	return zap.New(core, zap.AddCaller())
}
