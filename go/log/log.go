// Package log is the runtime's optional trace backend. It stays silent
// until the program driver hands it the ORIGIN_LOG value from the
// inherited environment, so the hot paths pay one atomic load when
// tracing is off.
package log

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

type Level int32

const (
	Off Level = iota
	Error
	Warn
	Info
	Debug
	Trace
)

var level int32

var out io.Writer = io.Discard

var colors map[Level]string

var names = map[Level]string{
	Error: "ERROR",
	Warn:  "WARN",
	Info:  "INFO",
	Debug: "DEBUG",
	Trace: "TRACE",
}

// Init selects the log level from an ORIGIN_LOG-style value and binds the
// output to stderr, colorized when stderr is a terminal.
func Init(value string) {
	lv := Off
	switch value {
	case "error":
		lv = Error
	case "warn":
		lv = Warn
	case "info":
		lv = Info
	case "debug":
		lv = Debug
	case "trace", "1":
		lv = Trace
	}
	if lv == Off {
		return
	}
	out = colorable.NewColorableStderr()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		colors = map[Level]string{
			Error: ansi.ColorCode("red+b"),
			Warn:  ansi.ColorCode("yellow"),
			Info:  ansi.ColorCode("default"),
			Debug: ansi.ColorCode("cyan"),
			Trace: ansi.ColorCode("default+d"),
		}
	}
	atomic.StoreInt32(&level, int32(lv))
}

// Enabled reports whether messages at lv are being emitted.
func Enabled(lv Level) bool {
	return atomic.LoadInt32(&level) >= int32(lv)
}

func emit(lv Level, format string, args ...interface{}) {
	if !Enabled(lv) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if c, ok := colors[lv]; ok {
		fmt.Fprintf(out, "%s%-5s%s %s\n", c, names[lv], ansi.Reset, msg)
	} else {
		fmt.Fprintf(out, "%-5s %s\n", names[lv], msg)
	}
}

func Errorf(format string, args ...interface{}) { emit(Error, format, args...) }
func Warnf(format string, args ...interface{})  { emit(Warn, format, args...) }
func Infof(format string, args ...interface{})  { emit(Info, format, args...) }
func Debugf(format string, args ...interface{}) { emit(Debug, format, args...) }
func Tracef(format string, args ...interface{}) { emit(Trace, format, args...) }
