// Package log is a small structured logger in the teacher's idiom:
// leveled key/value records, colorized when writing to a terminal
// (github.com/fatih/color, github.com/mattn/go-isatty) and annotated
// with the call site (github.com/go-stack/stack) for warnings and
// above.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-isatty"
)

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

var levelColor = map[Level]*color.Color{
	LevelTrace: color.New(color.FgHiBlack),
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// Logger writes leveled records to out, colorizing only when out is a
// real terminal.
type Logger struct {
	out      io.Writer
	minLevel Level
	colorize bool
	ctx      []interface{}
}

func New(out io.Writer, minLevel Level) *Logger {
	colorize := false
	if f, ok := out.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Logger{out: out, minLevel: minLevel, colorize: colorize}
}

// With returns a derived Logger that always includes the given
// key/value pairs.
func (l *Logger) With(kv ...interface{}) *Logger {
	next := *l
	next.ctx = append(append([]interface{}(nil), l.ctx...), kv...)
	return &next
}

func (l *Logger) log(level Level, msg string, kv []interface{}) {
	if level < l.minLevel {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')

	lvl := level.String()
	if l.colorize {
		lvl = levelColor[level].Sprint(lvl)
	}
	b.WriteString(lvl)
	b.WriteByte(' ')
	b.WriteString(msg)

	all := append(append([]interface{}(nil), l.ctx...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	if level >= LevelWarn {
		fmt.Fprintf(&b, " at=%v", stack.Caller(2))
	}
	b.WriteByte('\n')
	io.WriteString(l.out, b.String())
}

func (l *Logger) Trace(msg string, kv ...interface{}) { l.log(LevelTrace, msg, kv) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv) }

var root = New(os.Stderr, LevelInfo)

func Root() *Logger { return root }
