// Package klog provides leveled logging with kernel printk-style prefixes,
// generalized from the teacher pack's pkg/log (itself modeled on
// systemd's sd-daemon log-level convention: https://www.freedesktop.org/software/systemd/man/sd-daemon.html).
package klog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	debugWriter io.Writer = os.Stderr
	infoWriter  io.Writer = os.Stderr
	warnWriter  io.Writer = os.Stderr
	errWriter   io.Writer = os.Stderr
)

const (
	debugPrefix = "<7>[DEBUG] "
	infoPrefix  = "<6>[INFO]  "
	warnPrefix  = "<4>[WARN]  "
	errPrefix   = "<3>[ERROR] "
)

var (
	debugLog = log.New(debugWriter, debugPrefix, log.LstdFlags)
	infoLog  = log.New(infoWriter, infoPrefix, log.LstdFlags)
	warnLog  = log.New(warnWriter, warnPrefix, log.LstdFlags|log.Lshortfile)
	errLog   = log.New(errWriter, errPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel silences every level below lvl ("debug", "info", "warn", "err").
// Unrecognized values fall back to "info".
func SetLevel(lvl string) {
	switch lvl {
	case "err", "fatal":
		warnWriter = io.Discard
		fallthrough
	case "warn":
		infoWriter = io.Discard
		fallthrough
	case "info":
		debugWriter = io.Discard
	case "debug":
	default:
		SetLevel("info")
		return
	}
	debugLog.SetOutput(debugWriter)
	infoLog.SetOutput(infoWriter)
	warnLog.SetOutput(warnWriter)
}

func Debug(v ...any)                 { emit(debugWriter, debugLog, fmt.Sprint(v...)) }
func Debugf(format string, v ...any) { emit(debugWriter, debugLog, fmt.Sprintf(format, v...)) }
func Info(v ...any)                  { emit(infoWriter, infoLog, fmt.Sprint(v...)) }
func Infof(format string, v ...any)  { emit(infoWriter, infoLog, fmt.Sprintf(format, v...)) }
func Warn(v ...any)                  { emit(warnWriter, warnLog, fmt.Sprint(v...)) }
func Warnf(format string, v ...any)  { emit(warnWriter, warnLog, fmt.Sprintf(format, v...)) }
func Error(v ...any)                 { emit(errWriter, errLog, fmt.Sprint(v...)) }
func Errorf(format string, v ...any) { emit(errWriter, errLog, fmt.Sprintf(format, v...)) }

// Fatal logs at error level and terminates the process. Reserved for
// unrecoverable startup failures (bad config, arena acquisition failure),
// never for the allocator's own caller-bug panics — those go through
// kutil.Assert so a recovering HTTP handler can still observe them.
func Fatal(v ...any) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	Errorf(format, v...)
	os.Exit(1)
}

func emit(w io.Writer, l *log.Logger, msg string) {
	if w == io.Discard {
		return
	}
	l.Output(3, msg)
}
