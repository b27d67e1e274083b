// Package logging builds the session logger. The proxied terminal owns stdout
// and stderr while a session runs, so session logs go to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	clog "github.com/charmbracelet/log"
)

// New returns a logger writing to w at the given level
func New(w io.Writer, level string) (*clog.Logger, error) {
	lvl := clog.InfoLevel
	if level != "" {
		var err error
		lvl, err = clog.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	return clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.StampMilli,
		Level:           lvl,
		Prefix:          "rainbowterm",
	}), nil
}

// Discard returns a logger that drops everything
func Discard() *clog.Logger {
	return clog.NewWithOptions(io.Discard, clog.Options{Level: clog.FatalLevel})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns a logger appending to path. An empty path yields a discarding
// logger.
func Open(path, level string) (*clog.Logger, io.Closer, error) {
	if path == "" {
		if _, err := New(io.Discard, level); err != nil {
			return nil, nil, err
		}
		return Discard(), nopCloser{}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger, err := New(f, level)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return logger, f, nil
}
