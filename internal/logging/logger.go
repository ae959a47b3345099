package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger and accepts fields as alternating key/value pairs.
type Logger struct {
	zl     zerolog.Logger
	fields map[string]interface{}
}

var global = NewDevelopment()

// NewProduction returns a JSON logger at info level writing to stdout.
func NewProduction() *Logger {
	return NewWithWriter(os.Stdout, zerolog.InfoLevel)
}

// NewDevelopment returns a console logger at debug level.
func NewDevelopment() *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return NewWithWriter(out, zerolog.DebugLevel)
}

// NewWithWriter returns a logger writing to w at the given level.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{
		zl:     zerolog.New(w).Level(level).With().Timestamp().Logger(),
		fields: map[string]interface{}{},
	}
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), fields: map[string]interface{}{}}
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(logger *Logger) {
	if logger != nil {
		global = logger
	}
}

// Global returns the process-wide logger.
func Global() *Logger {
	return global
}

func (l *Logger) emit(e *zerolog.Event, msg string, fields []interface{}) {
	for k, v := range l.fields {
		e.Interface(k, v)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, isErr := fields[i+1].(error); isErr {
			e.Str(key, err.Error())
			continue
		}
		e.Interface(key, fields[i+1])
	}
	e.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.emit(l.zl.Error(), msg, fields) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...interface{}) { l.emit(l.zl.Fatal(), msg, fields) }

// With returns a child logger carrying the extra fields on every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		merged[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			merged[key] = fields[i+1]
		}
	}
	return &Logger{zl: l.zl, fields: merged}
}

// WithContext adds request-scoped fields found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func Debug(msg string, fields ...interface{}) { global.Debug(msg, fields...) }
func Info(msg string, fields ...interface{})  { global.Info(msg, fields...) }
func Warn(msg string, fields ...interface{})  { global.Warn(msg, fields...) }
func Error(msg string, fields ...interface{}) { global.Error(msg, fields...) }
func Fatal(msg string, fields ...interface{}) { global.Fatal(msg, fields...) }

// With derives a child of the global logger.
func With(fields ...interface{}) *Logger {
	return global.With(fields...)
}
