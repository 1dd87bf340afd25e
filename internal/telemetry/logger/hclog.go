package logger

import (
	"context"
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// hcLogger adapts slog.Logger to the hashicorp/go-hclog.Logger interface.
// go-retryablehttp accepts it as a leveled logger.
type hcLogger struct {
	logger  *slog.Logger
	name    string
	implied []any
}

// NewHCLogger returns an hclog.Logger that writes through l.
func NewHCLogger(l Logger, name string) hclog.Logger {
	sl := Slog(l)
	if name != "" {
		sl = sl.With("component", name)
	}
	return &hcLogger{logger: sl, name: name}
}

func (l *hcLogger) Log(level hclog.Level, msg string, args ...any) {
	switch level {
	case hclog.Trace, hclog.Debug:
		l.logger.Debug(msg, args...)
	case hclog.Warn:
		l.logger.Warn(msg, args...)
	case hclog.Error:
		l.logger.Error(msg, args...)
	default:
		l.logger.Info(msg, args...)
	}
}

func (l *hcLogger) Trace(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hcLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hcLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *hcLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *hcLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *hcLogger) enabled(level slog.Level) bool {
	return l.logger.Enabled(context.Background(), level)
}

func (l *hcLogger) IsTrace() bool { return l.enabled(slog.LevelDebug) }
func (l *hcLogger) IsDebug() bool { return l.enabled(slog.LevelDebug) }
func (l *hcLogger) IsInfo() bool  { return l.enabled(slog.LevelInfo) }
func (l *hcLogger) IsWarn() bool  { return l.enabled(slog.LevelWarn) }
func (l *hcLogger) IsError() bool { return l.enabled(slog.LevelError) }

func (l *hcLogger) ImpliedArgs() []any { return l.implied }

func (l *hcLogger) With(args ...any) hclog.Logger {
	return &hcLogger{
		logger:  l.logger.With(args...),
		name:    l.name,
		implied: append(append([]any(nil), l.implied...), args...),
	}
}

func (l *hcLogger) Name() string { return l.name }

func (l *hcLogger) Named(name string) hclog.Logger {
	full := name
	if l.name != "" {
		full = l.name + "." + name
	}
	return &hcLogger{logger: l.logger.With("component", full), name: full, implied: l.implied}
}

func (l *hcLogger) ResetNamed(name string) hclog.Logger {
	return &hcLogger{logger: l.logger.With("component", name), name: name, implied: l.implied}
}

// SetLevel is a no-op; the level is fixed when the Logger is built.
func (l *hcLogger) SetLevel(level hclog.Level) {}

func (l *hcLogger) GetLevel() hclog.Level {
	switch {
	case l.IsDebug():
		return hclog.Debug
	case l.IsInfo():
		return hclog.Info
	case l.IsWarn():
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (l *hcLogger) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return slog.NewLogLogger(l.logger.Handler(), slog.LevelInfo)
}

func (l *hcLogger) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return l.StandardLogger(opts).Writer()
}
