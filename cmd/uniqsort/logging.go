package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"UniqSort/internal/config"
)

func newLogger(level, format string, w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(config.ErrInvalid, err.Error())
	}
	logger.SetLevel(lvl)

	switch format {
	case config.LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case config.LogFormatText, "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Wrapf(config.ErrInvalid, "unknown log format %q", format)
	}
	return logger, nil
}
