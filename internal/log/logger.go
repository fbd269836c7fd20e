package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to one component. Every record it writes
// carries the component attribute and, inside a request, the request_id.
type Logger struct {
	*slog.Logger
	component string
	base      slog.Handler
}

// Config describes a Logger. A nil Handler means text on stdout at Level.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig logs info and above as text on stdout.
func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp}
}

// New builds a Logger. The handler is wrapped in a ContextHandler unless it
// already is one.
func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level})
	}
	if _, ok := h.(*ContextHandler); !ok {
		h = NewContextHandler(h)
	}
	return bind(h, cfg.Component)
}

func bind(h slog.Handler, component string) *Logger {
	l := slog.New(h)
	if component != "" {
		l = l.With(FieldComponent, component)
	}
	return &Logger{Logger: l, component: component, base: h}
}

// With returns a Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component, base: l.base}
}

// WithComponent derives a Logger for another component. Attributes added
// with With are not carried over.
func (l *Logger) WithComponent(component string) *Logger {
	base := l.base
	if base == nil {
		base = l.Logger.Handler()
	}
	return bind(base, component)
}

// Component names the part of the system the logger belongs to.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault makes logger the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
