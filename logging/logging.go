// Package logging is a thin wrapper over logrus, giving the rest of the
// repository one shared entry point for structured logging rather than
// each package constructing its own logger. The core decision engine
// never imports this — callers log, not the library.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is logrus.FieldLogger, aliased so callers depend on this package
// instead of reaching for sirupsen/logrus directly.
type Logger = logrus.FieldLogger

// New builds the process-wide base logger: JSON output to stdout, level
// parsed from levelName (falling back to info on an empty or unknown
// value).
func New(levelName string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}

// Component returns a field logger tagged with a "component" field, the
// way every subsystem in cmd/ratelimitd identifies its log lines.
func Component(base Logger, name string) Logger {
	return base.WithField("component", name)
}
