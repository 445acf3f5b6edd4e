package logger

import (
	"os"
	"path/filepath"
	"strings"

	"kiwoom-dashboard/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger provides named, printf-style logging on top of zap
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout and, when
// configured, to the log file as well
func NewLogger(config *models.MConfig, name string) *Logger {
	level := zapcore.InfoLevel
	logFile := ""
	if config != nil {
		level = parseLevel(config.LogLevel)
		logFile = config.LogFile
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level),
	}
	if logFile != "" {
		_ = os.MkdirAll(filepath.Dir(logFile), 0755)
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
		}
	}

	z := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{name: name, sugar: z.Named(name).Sugar()}
}

// -----------------------------------------------------------------------------

// NewNopLogger returns a Logger that discards everything
func NewNopLogger(name string) *Logger {
	return &Logger{name: name, sugar: zap.NewNop().Sugar()}
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same sinks
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: l.name + "." + name, sugar: l.sugar.Named(name)}
}

// -----------------------------------------------------------------------------

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
	_ = l.sugar.Sync()
	os.Exit(1)
}

// -----------------------------------------------------------------------------

// Sync flushes buffered entries
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
