package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// RotatingFile is the closable sink behind FileLogger.
type RotatingFile struct {
	*lumberjack.Logger
}

func ConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// FileLogger writes JSON lines to a size-rotated file and mirrors them to stdout.
func FileLogger(level logrus.Level, opts FileOptions) (*RotatingFile, *logrus.Logger, error) {
	if opts.Path == "" {
		return nil, ConsoleLogger(level), nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, err
	}
	file := &RotatingFile{Logger: &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}}

	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return file, logger, nil
}
