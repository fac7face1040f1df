package log

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared JSON logger. Every component receives this one
// instance and attaches its own fields per entry; an empty level means info.
func NewLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetLevel(logrus.InfoLevel)

	if level != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, eris.Wrapf(err, "invalid log level: %s", level)
		}
		logger.SetLevel(parsed)
	}

	return logger, nil
}
