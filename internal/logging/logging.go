// Package logging provides the leveled logger handed to every component.
// Components never log through package globals; the run entry point owns
// the logger's lifetime.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

type Logger struct {
	info *log.Logger
	warn *log.Logger
	err  *log.Logger
}

// New creates a Logger writing info/warn to out and errors to errOut.
func New(out, errOut io.Writer) *Logger {
	flags := log.LstdFlags
	return &Logger{
		info: log.New(out, "INFO  ", flags),
		warn: log.New(out, "WARN  ", flags),
		err:  log.New(errOut, "ERROR ", flags),
	}
}

// NewStderr is the default process logger.
func NewStderr() *Logger {
	return New(os.Stderr, os.Stderr)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return New(io.Discard, io.Discard)
}

func (l *Logger) Infof(format string, args ...any) {
	l.info.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.warn.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.err.Output(2, fmt.Sprintf(format, args...))
}
