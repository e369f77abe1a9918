// Package logging builds the zap loggers used by the CLI and serve mode.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level selects how much the migrator reports while it runs.
type Level string

const (
	Quiet   Level = "quiet"   // only the final summary
	Normal  Level = "normal"  // progress, warnings and errors
	Verbose Level = "verbose" // plus field details of each definition
	Debug   Level = "debug"   // plus GraphQL request and response bodies
)

// TraceLevel sits below zap's debug level. Only Debug enables it.
const TraceLevel = zapcore.DebugLevel - 1

// ResolveLevel applies the flag precedence debug > verbose > quiet > normal.
func ResolveLevel(quiet, verbose, debug bool) Level {
	switch {
	case debug:
		return Debug
	case verbose:
		return Verbose
	case quiet:
		return Quiet
	}
	return Normal
}

// TraceGraphQL reports whether request and response bodies should be logged.
func (l Level) TraceGraphQL() bool {
	return l == Debug
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Quiet:
		return zapcore.FatalLevel
	case Verbose:
		return zapcore.DebugLevel
	case Debug:
		return TraceLevel
	}
	return zapcore.InfoLevel
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = encodeLevel
	return cfg
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

// Trace logs msg and its key/value pairs at TraceLevel.
func Trace(logger *zap.SugaredLogger, msg string, keysAndValues ...any) {
	ce := logger.Desugar().Check(TraceLevel, msg)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	ce.Write(fields...)
}

func newCore(level Level, w zapcore.WriteSyncer) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), w, zap.NewAtomicLevelAt(level.zapLevel()))
}

// New returns a console logger writing to w at the given level.
func New(level Level, w zapcore.WriteSyncer) *zap.SugaredLogger {
	return zap.New(newCore(level, w)).Sugar()
}

// NewStderr returns a console logger writing to standard error.
func NewStderr(level Level) *zap.SugaredLogger {
	return New(level, zapcore.Lock(os.Stderr))
}

// Tee returns a logger that writes to base and additionally to w.
func Tee(base *zap.SugaredLogger, level Level, w zapcore.WriteSyncer) *zap.SugaredLogger {
	if base == nil {
		return New(level, w)
	}
	core := zapcore.NewTee(base.Desugar().Core(), newCore(level, w))
	return zap.New(core).Sugar()
}
