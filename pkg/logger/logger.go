// Package logger provides the structured logger used across services.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry tagged with the owning component name.
type Logger struct {
	*logrus.Entry
}

// NewDefault returns a logger for the named component using the process-wide
// level from LOG_LEVEL (info when unset or unparsable).
func NewDefault(component string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	return &Logger{Entry: l.WithField("component", component)}
}

// WithField returns a child logger carrying an extra field.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a child logger carrying the error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}
