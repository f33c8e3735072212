package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	// ErrAttrKey is the attribute key used for error values.
	ErrAttrKey = "error"
	// StacktraceAttrKey is the attribute key used for extracted stack traces.
	StacktraceAttrKey = "stacktrace"
)

// zerologProvider is the default LoggerProvider, backed by zerolog.
type zerologProvider struct {
	mu    sync.RWMutex
	root  zerolog.Logger
	level Level
}

// NewProvider creates a zerolog-backed LoggerProvider writing JSON lines to w.
func NewProvider(w io.Writer) LoggerProvider {
	return &zerologProvider{
		root:  zerolog.New(w).With().Timestamp().Logger(),
		level: LevelInfo,
	}
}

func (p *zerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{l: p.root, provider: p}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{l: p.root.With().Str(ComponentKey, name).Logger(), provider: p}
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *zerologProvider) minLevel() Level {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	l        zerolog.Logger
	provider *zerologProvider
}

func (z *zerologLogger) Debug(msg string, fields ...any) { z.emit(LevelDebug, msg, fields) }
func (z *zerologLogger) Info(msg string, fields ...any)  { z.emit(LevelInfo, msg, fields) }
func (z *zerologLogger) Warn(msg string, fields ...any)  { z.emit(LevelWarn, msg, fields) }
func (z *zerologLogger) Error(msg string, fields ...any) { z.emit(LevelError, msg, fields) }

func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.l.With()
	for k, v := range pairs(fields) {
		ctx = ctx.Interface(k, v)
	}
	return &zerologLogger{l: ctx.Logger(), provider: z.provider}
}

func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= z.provider.minLevel()
}

func (z *zerologLogger) emit(level Level, msg string, fields []any) {
	if level < z.provider.minLevel() {
		return
	}

	var event *zerolog.Event
	switch {
	case level >= LevelError:
		event = z.l.Error()
	case level >= LevelWarn:
		event = z.l.Warn()
	case level >= LevelInfo:
		event = z.l.Info()
	default:
		event = z.l.Debug()
	}

	// An error passed as the first field gets special handling: it is logged
	// under the error key together with any stack trace attached to it.
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			event = event.AnErr(ErrAttrKey, err)
			if st := extractStacktrace(err); st != "" {
				event = event.Str(StacktraceAttrKey, st)
			}
			fields = fields[1:]
		}
	}

	for k, v := range pairs(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// pairs converts alternating key-value fields into a map. A trailing key
// without a value is logged under the "!BADKEY" convention of slog.
func pairs(fields []any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]any, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		if i+1 < len(fields) {
			m[key] = fields[i+1]
		} else {
			m["!BADKEY"] = fields[i]
		}
	}
	return m
}

// extractStacktrace pulls the stack trace that cockroachdb/errors attaches
// to wrapped errors, if any.
func extractStacktrace(err error) string {
	safeDetails := cerrors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// Package-level default provider.
var (
	defaultMu       sync.RWMutex
	defaultProvider LoggerProvider = NewProvider(os.Stderr)
)

// SetProvider replaces the package-level provider. Intended for tests and
// for CLI startup configuration.
func SetProvider(p LoggerProvider) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultProvider = p
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level on the default provider.
func SetLevel(level Level) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	defaultProvider.SetLevel(level)
}

// ToLogLevel parses a level name. Unknown names default to info.
func ToLogLevel(level string) Level {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
