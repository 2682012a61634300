package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logger type passed around the bot.
type Logger = *logrus.Logger

// Fields represents structured logging fields
type Fields = logrus.Fields

// New builds a logger for the given level ("debug", "info", ...) and format
// ("text" or "json"). Unknown levels fall back to info.
func New(level, format string) Logger {
	return NewWithOutput(os.Stderr, level, format)
}

func NewWithOutput(out io.Writer, level, format string) Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// Component returns an entry tagged with the subsystem name.
func Component(l logrus.FieldLogger, name string) *logrus.Entry {
	return l.WithField("component", name)
}

// Discard is a logger that writes nowhere, for tests and the CLI.
func Discard() Logger {
	return NewWithOutput(io.Discard, "panic", "text")
}
