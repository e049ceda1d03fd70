// Package logging configures logrus for the ccfeatures command.
//
// Logs always go to stderr: stdout carries the generated header.
package logging

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLevel is the default log level used when no level is specified
	DefaultLevel = "warning"

	// FormatText represents plain text log format without colors
	FormatText = "text"
	// FormatColor represents colored text log format with ANSI colors
	FormatColor = "color"
	// FormatJSON represents JSON log format for structured logging
	FormatJSON = "json"
)

// New returns a logger writing to out with the given level and format.
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	if level == "" {
		level = DefaultLevel
	}
	if format == "" {
		format = FormatText
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parsing log level")
	}

	var formatter logrus.Formatter
	switch format {
	case FormatText:
		formatter = &logrus.TextFormatter{
			DisableColors:    true,
			DisableTimestamp: true,
		}
	case FormatColor:
		formatter = &logrus.TextFormatter{
			ForceColors:      true,
			DisableTimestamp: true,
		}
	case FormatJSON:
		formatter = &logrus.JSONFormatter{}
	default:
		return nil, fmt.Errorf("not a valid log format: %q. Please specify one of (text, color, json)", format)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(formatter)
	return logger, nil
}
