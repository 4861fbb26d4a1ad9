package depthcloud

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger is the App-wide logger. It satisfies cloud.Logger.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Level is the lowest severity a DefaultLogger prints. The zero value is LevelInfo.
type Level int

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (lv Level) String() string {
	if name, ok := levelNames[lv]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(lv))
}

func (lv Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(lv.String())), nil
}

func (lv *Level) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*lv = LevelInfo
		return nil
	}
	for l, name := range levelNames {
		if strings.EqualFold(name, string(text)) {
			*lv = l
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q", text)
}

// logSink is shared by a logger and every logger derived from it with Named.
type logSink struct {
	mu    sync.Mutex
	level Level
	out   *log.Logger
	err   *log.Logger
}

type DefaultLogger struct {
	sink   *logSink
	prefix string
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewWriterLogger(prefix, debug, os.Stdout, os.Stderr)
}

// NewWriterLogger logs debug and info to out, warnings and errors to errOut.
func NewWriterLogger(prefix string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		prefix: prefix,
		sink: &logSink{
			out: log.New(out, "", flags),
			err: log.New(errOut, "", flags),
		},
	}
	l.SetDebug(debug)
	return l
}

// Named returns a logger that writes to the same outputs with name appended
// to the prefix. Level changes on either logger apply to both.
func (l *DefaultLogger) Named(name string) Logger {
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "/" + name
	}
	return &DefaultLogger{sink: l.sink, prefix: prefix}
}

func (l *DefaultLogger) Level() Level {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

func (l *DefaultLogger) SetLevel(lv Level) {
	l.sink.mu.Lock()
	l.sink.level = lv
	l.sink.mu.Unlock()
}

func (l *DefaultLogger) DebugEnabled() bool { return l.Level() <= LevelDebug }

func (l *DefaultLogger) SetDebug(enabled bool) {
	if enabled {
		l.SetLevel(LevelDebug)
	} else if l.Level() == LevelDebug {
		l.SetLevel(LevelInfo)
	}
}

func (l *DefaultLogger) print(lv Level, format string, args ...any) {
	if lv < l.Level() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = fmt.Sprintf("[%s] %s: %s", l.prefix, lv, msg)
	} else {
		msg = fmt.Sprintf("%s: %s", lv, msg)
	}
	if lv >= LevelWarn {
		l.sink.err.Print(msg)
		return
	}
	l.sink.out.Print(msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.print(LevelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.print(LevelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.print(LevelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.print(LevelError, format, args...) }

// namedLogger derives a child logger for one component. Loggers that cannot
// be named are used as is.
func namedLogger(l Logger, name string) Logger {
	if n, ok := l.(interface{ Named(string) Logger }); ok && name != "" {
		return n.Named(name)
	}
	return l
}

// LoggingModule installs a default logger as a resource.
// Install it first so later modules log through it.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Level  Level
	// Logger replaces the default logger when set.
	Logger Logger
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	if m.Logger != nil {
		cmd.AddResources(&loggerResource{Logger: m.Logger})
		return
	}
	cmd.AddResources(LogConfig{Prefix: m.Prefix, Debug: m.Debug, Level: m.Level}.NewLogger())
}

type loggerResource struct {
	Logger
}

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// Logger returns the first Logger resource if present, otherwise a no-op logger.
// Safe to call at any time; never returns nil.
func (app *App) Logger() Logger {
	if app == nil {
		return NewNopLogger()
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return NewNopLogger()
}
