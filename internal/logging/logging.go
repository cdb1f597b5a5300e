// Package logging sets up the process-wide logger: colored console output at
// info level plus a timestamped debug log file that failure messages can point
// the operator at.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Setup builds the logger and opens its log file under dir. The file path is
// fixed once per process; callers should hold on to the returned path so error
// messages can reference it. A nil error always comes with a usable logger.
func Setup(dir string) (*logrus.Logger, string, error) {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	console := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
		ForceColors:     term.IsTerminal(int(os.Stderr.Fd())),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.SetOutput(os.Stderr)
		log.SetFormatter(console)
		return log, "", fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("llmdeploy-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.SetFormatter(console)
		return log, "", fmt.Errorf("open log file: %w", err)
	}

	log.SetFormatter(console)
	log.SetOutput(io.Discard)
	log.AddHook(&writerHook{writer: os.Stderr, formatter: console, minLevel: logrus.InfoLevel})
	log.AddHook(&writerHook{
		writer: file,
		formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
			DisableColors:   true,
		},
		minLevel: logrus.DebugLevel,
	})
	return log, path, nil
}

// Discard returns a logger that drops everything; handy default for tests and
// for components constructed without an explicit logger.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// writerHook routes entries at or above minLevel to one sink with its own
// formatter, so the console and the debug file can disagree about verbosity.
type writerHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	minLevel  logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= h.minLevel {
			levels = append(levels, l)
		}
	}
	return levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
