package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field - alias to zap field so call sites only import this package
type Field = zapcore.Field

var (
	// String ...
	String = zap.String
	// Int ...
	Int = zap.Int
	// Int64 ...
	Int64 = zap.Int64
	// Float64 ...
	Float64 = zap.Float64
	// Bool ...
	Bool = zap.Bool
	// Duration ...
	Duration = zap.Duration
	// Any ...
	Any = zap.Any
	// Error ...
	Error = zap.Error
	// ByteString ...
	ByteString = zap.ByteString
)

// Logger - interface containing logging methods
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
}

type loggerImpl struct {
	zap *zap.Logger
}

// New - returns a new logger with the given minimum level, namespaced
// by the service name
func New(level string, namespace string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}

	return &loggerImpl{
		zap: l.Named(namespace),
	}
}

// NewNop - no-op logger for tests
func NewNop() Logger {
	return &loggerImpl{zap: zap.NewNop()}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *loggerImpl) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fields...) }
func (l *loggerImpl) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l *loggerImpl) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l *loggerImpl) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }
func (l *loggerImpl) Fatal(msg string, fields ...Field) { l.zap.Fatal(msg, fields...) }

// Cleanup flushes buffered log entries, call before process exit
func Cleanup(l Logger) error {
	if impl, ok := l.(*loggerImpl); ok {
		return impl.zap.Sync()
	}
	return nil
}
