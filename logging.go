package tether

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogEvent describes a runtime occurrence worth logging: a failed formatter,
// a rejected deferred value, a component that could not be mounted.
type LogEvent struct {
	Stage    string
	Binder   string
	Keypath  string
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records runtime events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// NopLogger returns a Logger that discards every event.
func NopLogger() Logger {
	return noopLogger{}
}

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger adapts a zerolog logger. Events carrying an error are
// logged at warn level, everything else at debug.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return zerologLogger{logger: logger}
}

func (l zerologLogger) Log(event LogEvent) {
	entry := l.logger.Debug()
	if event.Err != nil {
		entry = l.logger.Warn().Err(event.Err)
	}
	if event.Binder != "" {
		entry = entry.Str("binder", event.Binder)
	}
	if event.Keypath != "" {
		entry = entry.Str("keypath", event.Keypath)
	}
	if event.Engine != "" {
		entry = entry.Str("engine", event.Engine).Str("expr", event.Expr)
	}
	if event.Duration > 0 {
		entry = entry.Dur("duration", event.Duration)
	}
	entry.Msg(event.Stage)
}

func defaultLogger() Logger {
	return NewZerologLogger(log.Logger)
}

// WithLogger attaches a logger to the view configuration. A nil logger
// silences the runtime.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
