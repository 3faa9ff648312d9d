package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log levels accepted in configuration.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Output formats accepted in configuration.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options select the level and encoding of a logger.
type Options struct {
	Level  string
	Format string
}

var (
	// globalLogger holds the process-wide logger used by the commands.
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call initializes it;
// later calls ignore opts.
func Get(opts Options) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(opts)
	})
	return globalLogger
}

// New builds an independent logger, for components that should not share
// the process-wide instance.
func New(opts Options) *Logger {
	return newZapLogger(opts)
}

// Nop returns a logger that discards everything. Tests use it.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(component string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component)}
}
