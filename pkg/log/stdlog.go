package log

import (
	stdlog "log"
	"strings"
)

// stdLogWriter adapts a Logger to an io.Writer for the standard library log
// package. Each Write becomes one Info entry.
type stdLogWriter struct {
	logger Logger
}

func (w stdLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg, Str("source", "stdlog"))
	}
	return len(p), nil
}

// RedirectStdLog routes standard library log output (used by Pebble among
// others) through the provided Logger.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdLogWriter{logger: logger})
}

// ToStdLogger returns a *log.Logger whose output feeds the provided Logger.
func ToStdLogger(logger Logger) *stdlog.Logger {
	return stdlog.New(stdLogWriter{logger: logger}, "", 0)
}
