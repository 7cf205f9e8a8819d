// Package logging builds the logrus logger shared by the runtime components.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kolkov/gothread/internal/thread/config"
)

// NewLogger returns a new logger. Output is discarded unless cfg.Debug is set.
func NewLogger(cfg config.Config, version string) *logrus.Entry {
	var log *logrus.Logger
	if cfg.Debug {
		log = newDevelopmentLogger(cfg, os.Stderr)
	} else {
		log = newProductionLogger()
	}

	log.Formatter = &logrus.JSONFormatter{}

	return log.WithFields(logrus.Fields{
		"debug":   cfg.Debug,
		"version": version,
	})
}

// Discard returns an entry that drops everything.
func Discard() *logrus.Entry {
	return logrus.NewEntry(newProductionLogger())
}

func getLogLevel(cfg config.Config) logrus.Level {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(cfg config.Config, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(getLogLevel(cfg))
	log.SetOutput(out)
	return log
}

func newProductionLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.ErrorLevel)
	return log
}
