// Package logging provides the Logger used across nxttask, backed by charmbracelet/log.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

type Options struct {
	Writer io.Writer
	Level  string
	Prefix string
}

func New(opts Options) Logger {
	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}

	lvl, err := log.ParseLevel(opts.Level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
	})
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
