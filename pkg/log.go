package pkg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/go-logr/logr"
)

// Component tags every record with the bring-up layer that produced it.
type Component string

// Bring-up layers.
const (
	ComponentMMIO     Component = "mmio"
	ComponentPCIe     Component = "pcie"
	ComponentXHCI     Component = "xhci"
	ComponentManager  Component = "manager"
	ComponentPlatform Component = "platform"
	ComponentSim      Component = "sim"
)

// Attr returns the component as a slog attribute.
func (c Component) Attr() slog.Attr { return slog.String("component", string(c)) }

// LogFormat selects the handler built by [SetLogFormat].
type LogFormat int

// Handler formats.
const (
	LogFormatText LogFormat = iota
	LogFormatJSON
)

// String returns "text" or "json".
func (f LogFormat) String() string {
	switch f {
	case LogFormatText:
		return "text"
	case LogFormatJSON:
		return "json"
	default:
		return fmt.Sprintf("LogFormat(%d)", int(f))
	}
}

var (
	// DefaultLogger receives every record logged through this package.
	// Replace it with SetLogger rather than assigning directly.
	DefaultLogger *slog.Logger

	// level is shared by every handler this package builds, so a level
	// change reaches loggers created before it.
	level = new(slog.LevelVar)

	logOutput io.Writer = os.Stderr
	logFormat LogFormat

	logMutex sync.RWMutex
)

func init() {
	level.Set(slog.LevelWarn)
	DefaultLogger = newLogger(os.Stderr, LogFormatText, nil)
}

func newLogger(w io.Writer, f LogFormat, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: level}
	}
	if f == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewLogger returns a text logger on w. A nil opts uses the package level.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	return newLogger(w, LogFormatText, opts)
}

// NewJSONLogger returns a JSON logger on w. A nil opts uses the package
// level.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	return newLogger(w, LogFormatJSON, opts)
}

// SetLogLevel sets the minimum level of the package-built handlers.
func SetLogLevel(l slog.Level) { level.Set(l) }

// GetLogLevel returns the minimum level of the package-built handlers.
func GetLogLevel() slog.Level { return level.Level() }

// SetLogger replaces [DefaultLogger].
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat rebuilds [DefaultLogger] with the given format on the
// current output.
func SetLogFormat(f LogFormat) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logFormat = f
	DefaultLogger = newLogger(logOutput, f, nil)
}

// SetLogOutput rebuilds [DefaultLogger] on w with the current format.
func SetLogOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logOutput = w
	DefaultLogger = newLogger(w, logFormat, nil)
}

func current() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// Logr returns [DefaultLogger] as a logr.Logger tagged with component.
func Logr(component Component) logr.Logger {
	return logr.FromSlogHandler(current().Handler()).WithValues("component", string(component))
}

func logAt(l slog.Level, component Component, msg string, args []any) {
	logger := current()
	ctx := context.Background()
	if !logger.Enabled(ctx, l) {
		return
	}
	logger.With(component.Attr()).Log(ctx, l, msg, args...)
}

// LogDebug logs at debug level.
func LogDebug(component Component, msg string, args ...any) {
	logAt(slog.LevelDebug, component, msg, args)
}

// LogInfo logs at info level.
func LogInfo(component Component, msg string, args ...any) {
	logAt(slog.LevelInfo, component, msg, args)
}

// LogWarn logs at warn level.
func LogWarn(component Component, msg string, args ...any) {
	logAt(slog.LevelWarn, component, msg, args)
}

// LogError logs at error level.
func LogError(component Component, msg string, args ...any) {
	logAt(slog.LevelError, component, msg, args)
}
