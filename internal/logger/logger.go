// Package logger builds the application-wide logrus logger.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logger with the specified level.  Unknown levels fall back
// to info.
func New(level string) *logrus.Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stdout)

	return log
}
